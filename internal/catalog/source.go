// internal/catalog/source.go
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/config"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/database"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/logger"
)

// Deps carries the clients a source may need. Only the one matching the
// configured source has to be set.
type Deps struct {
	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
	Logger        logger.Logger
}

// NewSource picks the implementation named by cfg.Source.
func NewSource(cfg config.CatalogConfig, deps Deps) (Source, error) {
	switch cfg.Source {
	case config.SourceCSV, "":
		return NewCSVSource(cfg.Path, deps.Logger), nil
	case config.SourcePostgres:
		if deps.Postgres == nil {
			return nil, fmt.Errorf("catalog source %q needs a postgres client", cfg.Source)
		}
		return NewPostgresSource(deps.Postgres, cfg.Table), nil
	case config.SourceRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("catalog source %q needs a redis client", cfg.Source)
		}
		return NewRedisSource(deps.Redis, cfg.RedisKey), nil
	case config.SourceElastic:
		if deps.Elasticsearch == nil {
			return nil, fmt.Errorf("catalog source %q needs an elasticsearch client", cfg.Source)
		}
		return NewElasticsearchSource(deps.Elasticsearch, cfg.Index), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// LoadWithTimeout loads src under a deadline and logs the outcome.
func LoadWithTimeout(ctx context.Context, src Source, timeout time.Duration, log logger.Logger) (*Catalog, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	cat, err := src.Load(ctx)
	if err != nil {
		log.Error("Catalog load failed", map[string]interface{}{
			"source": src.Describe(),
			"error":  err.Error(),
		})
		return nil, err
	}

	log.Info("Catalog loaded", map[string]interface{}{
		"source":     src.Describe(),
		"places":     cat.Len(),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return cat, nil
}
