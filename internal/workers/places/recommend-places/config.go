// internal/workers/places/recommend-places/config.go
package recommendplaces

import (
	"time"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
}

// LoadConfig derives the worker settings from the service config.
func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:      10 * time.Second,
		DefaultLimit: 5,
		MaxLimit:     100,
	}
	if cfg == nil {
		return c
	}
	if cfg.Camunda.Timeout > 0 {
		c.Timeout = config.GetDuration(cfg.Camunda.Timeout)
	}
	if cfg.Matcher.TopK > 0 {
		c.DefaultLimit = cfg.Matcher.TopK
	}
	return c
}
