// internal/catalog/csv.go
package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/logger"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// Canonical column names.
const (
	ColPlaceID           = "place_id"
	ColName              = "name"
	ColType              = "type"
	ColDistrict          = "district"
	ColIndoor            = "indoor"
	ColNoise             = "noise"
	ColRomantic          = "romantic"
	ColBudgetLevel       = "budget_level"
	ColWalkScore         = "walk_score"
	ColAlcoholAvailable  = "alcohol_available"
	ColExtrovertFriendly = "extrovert_friendly"
	ColTags              = "tags"
)

// Header lists the canonical columns in the order WriteCSV emits them.
var Header = []string{
	ColPlaceID, ColName, ColType, ColDistrict, ColIndoor, ColNoise, ColRomantic,
	ColBudgetLevel, ColWalkScore, ColAlcoholAvailable, ColExtrovertFriendly, ColTags,
}

// columnAliases maps the older sheet headers onto canonical names.
var columnAliases = map[string]string{
	"noise_level":    ColNoise,
	"romantic_level": ColRomantic,
	"budget":         ColBudgetLevel,
	"distance":       ColWalkScore,
	"alcohol":        ColAlcoholAvailable,
	"location":       ColDistrict,
	"id":             ColPlaceID,
}

// fractionAliases are the older level columns stored as a 0..1 share of the
// scale rather than as 1..5.
var fractionAliases = map[string]bool{
	"noise_level":    true,
	"romantic_level": true,
}

// CSVSource reads the catalog from a CSV file with a header row.
type CSVSource struct {
	Path   string
	Logger logger.Logger
}

func NewCSVSource(path string, log logger.Logger) *CSVSource {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CSVSource{Path: path, Logger: log}
}

func (s *CSVSource) Describe() string {
	return "csv:" + s.Path
}

func (s *CSVSource) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}
	defer f.Close()

	places, skipped, err := ReadCSV(f)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}
	for _, row := range skipped {
		s.Logger.Warn("Skipping catalog row without a name", map[string]interface{}{
			"path": s.Path,
			"row":  row,
		})
	}

	cat, err := New(s.Describe(), places)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}
	return cat, nil
}

// Sheet is a parsed place sheet.
type Sheet struct {
	Places []models.Place
	// Skipped holds the 1-based line numbers of rows without a name.
	Skipped []int
	// Columns holds the canonical columns the header provided.
	Columns map[string]bool
}

// ReadCSV parses a place sheet. It returns the places in file order and the
// 1-based line numbers of rows skipped for having no name. Bad numeric cells
// become 0; they never fail the load.
func ReadCSV(r io.Reader) ([]models.Place, []int, error) {
	sheet, err := ParseSheet(r)
	if err != nil {
		return nil, nil, err
	}
	return sheet.Places, sheet.Skipped, nil
}

// ParseSheet is ReadCSV that also reports which columns the header carried.
func ParseSheet(r io.Reader) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty catalog file: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, fractions := indexColumns(header)
	if _, ok := cols[ColName]; !ok {
		return nil, fmt.Errorf("header has no %q column", ColName)
	}

	sheet := &Sheet{Columns: make(map[string]bool, len(cols))}
	for name := range cols {
		sheet.Columns[name] = true
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		level := func(col string) int {
			if fractions[col] {
				return parseFraction(get(col))
			}
			return parseLevel(get(col), models.LevelMax)
		}

		if get(ColName) == "" {
			sheet.Skipped = append(sheet.Skipped, line)
			continue
		}

		sheet.Places = append(sheet.Places, models.Place{
			ID:                get(ColPlaceID),
			Name:              get(ColName),
			Type:              get(ColType),
			District:          get(ColDistrict),
			Indoor:            models.ParseFlag(get(ColIndoor)) == models.FlagYes,
			Noise:             level(ColNoise),
			Romantic:          level(ColRomantic),
			BudgetLevel:       parseLevel(get(ColBudgetLevel), models.BudgetMax),
			WalkScore:         parseFloat(get(ColWalkScore)),
			AlcoholAvailable:  models.ParseFlag(get(ColAlcoholAvailable)) == models.FlagYes,
			ExtrovertFriendly: models.ParseFlag(get(ColExtrovertFriendly)),
			Tags:              models.SplitTags(get(ColTags)),
		})
	}

	return sheet, nil
}

// WriteCSV writes places with the canonical header.
func WriteCSV(w io.Writer, places []models.Place) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, p := range places {
		extro := ""
		if p.ExtrovertFriendly != models.FlagUnknown {
			extro = p.ExtrovertFriendly.String()
		}
		record := []string{
			p.ID,
			p.Name,
			p.Type,
			p.District,
			boolCell(p.Indoor, "1", "0"),
			strconv.Itoa(p.Noise),
			strconv.Itoa(p.Romantic),
			strconv.Itoa(p.BudgetLevel),
			strconv.FormatFloat(p.WalkScore, 'f', -1, 64),
			boolCell(p.AlcoholAvailable, "yes", "no"),
			extro,
			p.TagString(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// indexColumns maps canonical names to header positions. The second map marks
// the canonical columns read from a fractional alias.
func indexColumns(header []string) (map[string]int, map[string]bool) {
	cols := make(map[string]int, len(header))
	fractions := make(map[string]bool)
	for i, h := range header {
		raw := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		name, aliased := columnAliases[raw]
		if !aliased {
			name = raw
		}
		// a canonical column wins over an alias for the same field
		if _, exists := cols[name]; exists && aliased {
			continue
		}
		cols[name] = i
		fractions[name] = aliased && fractionAliases[raw]
	}
	return cols, fractions
}

// parseLevel reads a 0..hi scale cell, clamping before the int conversion.
func parseLevel(s string, hi int) int {
	v := math.Max(0, math.Min(parseFloat(s), float64(hi)))
	return int(math.Round(v))
}

// parseFraction reads a 0..1 share of the level scale. A present value maps
// onto 1..5, so 0 is the bottom of the scale, not "absent".
func parseFraction(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	v = math.Max(0, math.Min(v, 1))
	return int(math.Max(1, math.Min(math.Round(v*models.LevelMax), models.LevelMax)))
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func boolCell(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
