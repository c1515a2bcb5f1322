// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/database"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

const selectColumns = "place_id, name, type, district, indoor, noise, romantic, budget_level, walk_score, alcohol_available, extrovert_friendly, tags"

// CreateTableSQL returns the DDL for a catalog table. ordinal preserves catalog order.
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	ordinal            INTEGER NOT NULL,
	place_id           TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	type               TEXT NOT NULL DEFAULT '',
	district           TEXT NOT NULL DEFAULT '',
	indoor             BOOLEAN NOT NULL DEFAULT FALSE,
	noise              SMALLINT NOT NULL DEFAULT 0,
	romantic           SMALLINT NOT NULL DEFAULT 0,
	budget_level       SMALLINT NOT NULL DEFAULT 0,
	walk_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
	alcohol_available  BOOLEAN NOT NULL DEFAULT FALSE,
	extrovert_friendly TEXT,
	tags               TEXT NOT NULL DEFAULT ''
)`, pq.QuoteIdentifier(table))
}

// PostgresSource reads the catalog table in ordinal order.
type PostgresSource struct {
	Client *database.PostgresClient
	Table  string
}

func NewPostgresSource(client *database.PostgresClient, table string) *PostgresSource {
	return &PostgresSource{Client: client, Table: table}
}

func (s *PostgresSource) Describe() string {
	return "postgres:" + s.Table
}

func (s *PostgresSource) Load(ctx context.Context) (*Catalog, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY ordinal", selectColumns, pq.QuoteIdentifier(s.Table))

	rows, err := s.Client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}
	defer rows.Close()

	var places []models.Place
	for rows.Next() {
		var (
			p     models.Place
			extro sql.NullString
			tags  string
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Type, &p.District, &p.Indoor,
			&p.Noise, &p.Romantic, &p.BudgetLevel, &p.WalkScore,
			&p.AlcoholAvailable, &extro, &tags,
		); err != nil {
			return nil, errors.NewDataUnavailableError(s.Describe(), fmt.Errorf("scan place: %w", err))
		}
		if extro.Valid {
			p.ExtrovertFriendly = models.ParseFlag(extro.String)
		}
		p.Tags = models.SplitTags(tags)
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}

	cat, err := New(s.Describe(), places)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}
	return cat, nil
}

// PublishPostgres replaces the contents of table with cat in one transaction.
func PublishPostgres(ctx context.Context, client *database.PostgresClient, table string, cat *Catalog) error {
	quoted := pq.QuoteIdentifier(table)
	insert := fmt.Sprintf("INSERT INTO %s (ordinal, %s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		quoted, selectColumns)

	return client.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, CreateTableSQL(table)); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+quoted); err != nil {
			return fmt.Errorf("clear table: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, p := range cat.places {
			var extro sql.NullString
			if p.ExtrovertFriendly != models.FlagUnknown {
				extro = sql.NullString{String: p.ExtrovertFriendly.String(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				i, p.ID, p.Name, p.Type, p.District, p.Indoor,
				p.Noise, p.Romantic, p.BudgetLevel, p.WalkScore,
				p.AlcoholAvailable, extro, strings.Join(p.Tags, " "),
			); err != nil {
				return fmt.Errorf("insert %s: %w", p.ID, err)
			}
		}
		return nil
	})
}
