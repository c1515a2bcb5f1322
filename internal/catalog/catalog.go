// Package catalog loads the read-only place catalog the matcher ranks.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// Catalog is an ordered, immutable set of places. Order is the tie-break for
// equal scores, so every source must preserve it.
type Catalog struct {
	places   []models.Place
	source   string
	loadedAt time.Time
}

// New normalizes places, assigns positional IDs to entries without one and
// rejects duplicate IDs. The input slice is copied.
func New(source string, places []models.Place) (*Catalog, error) {
	out := make([]models.Place, 0, len(places))
	seen := make(map[string]int, len(places))

	for i, p := range places {
		p = p.Normalize()
		if p.ID == "" {
			p.ID = PositionalID(i)
		}
		if prev, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate place_id %q at rows %d and %d", p.ID, prev+1, i+1)
		}
		seen[p.ID] = i
		p.Tags = append([]string(nil), p.Tags...)
		out = append(out, p)
	}

	return &Catalog{places: out, source: source, loadedAt: time.Now().UTC()}, nil
}

// PositionalID is the id given to the i-th (0-based) place when the source has none.
func PositionalID(i int) string {
	return fmt.Sprintf("p%03d", i+1)
}

// Places returns a copy of the catalog in catalog order.
func (c *Catalog) Places() []models.Place {
	out := make([]models.Place, len(c.places))
	for i, p := range c.places {
		p.Tags = append([]string(nil), p.Tags...)
		out[i] = p
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.places)
}

// Source names where the catalog came from ("csv:data/places.csv", "redis:catalog:places").
func (c *Catalog) Source() string {
	return c.source
}

func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}

// Source loads a catalog. Implementations wrap every failure as DATA_UNAVAILABLE.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
	Describe() string
}

// Provider hands out the process-wide catalog, or the error that prevented loading it.
type Provider interface {
	Catalog() (*Catalog, error)
}

type fixed struct {
	cat *Catalog
	err error
}

func (f fixed) Catalog() (*Catalog, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.cat == nil {
		return nil, errors.NewDataUnavailableError("catalog", fmt.Errorf("catalog not loaded"))
	}
	return f.cat, nil
}

// Fixed returns a Provider for the result of a one-time load.
func Fixed(cat *Catalog, err error) Provider {
	return fixed{cat: cat, err: err}
}
