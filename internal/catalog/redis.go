// internal/catalog/redis.go
package catalog

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/database"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// SnapshotVersion is bumped when the snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is the JSON document stored under the catalog key.
type Snapshot struct {
	Version     int            `json:"version"`
	GeneratedAt time.Time      `json:"generated_at"`
	Source      string         `json:"source"`
	Places      []models.Place `json:"places"`
}

// RedisSource reads a snapshot written by PublishRedis. The key has no TTL;
// it is the catalog of record for deployments without a shared filesystem.
type RedisSource struct {
	Client *database.RedisClient
	Key    string
}

func NewRedisSource(client *database.RedisClient, key string) *RedisSource {
	return &RedisSource{Client: client, Key: key}
}

func (s *RedisSource) Describe() string {
	return "redis:" + s.Key
}

func (s *RedisSource) Load(ctx context.Context) (*Catalog, error) {
	raw, err := s.Client.Client.Get(ctx, s.Key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NewDataUnavailableError(s.Describe(), fmt.Errorf("key %q not found", s.Key))
	}
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), fmt.Errorf("decode snapshot: %w", err))
	}
	if snap.Version != SnapshotVersion {
		return nil, errors.NewDataUnavailableError(s.Describe(),
			fmt.Errorf("unsupported snapshot version %d", snap.Version))
	}

	cat, err := New(s.Describe(), snap.Places)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}
	return cat, nil
}

// PublishRedis writes cat as a snapshot under key, replacing any previous one.
func PublishRedis(ctx context.Context, client *database.RedisClient, key string, cat *Catalog) error {
	payload, err := json.Marshal(Snapshot{
		Version:     SnapshotVersion,
		GeneratedAt: time.Now().UTC(),
		Source:      cat.Source(),
		Places:      cat.places,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := client.Client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
