// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/validation"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/matcher"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml
// on top, then applies environment overrides (server.port -> SERVER_PORT).
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return build(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, errors.NewConfigInvalidError(err)
	}
	return &cfg, nil
}

// setDefaults registers every key with viper so AutomaticEnv can override
// keys that are absent from the YAML file.
func setDefaults(v *viper.Viper) {
	w := matcher.DefaultWeights()

	defaults := map[string]interface{}{
		"app.name":        "place-recommender",
		"app.version":     "dev",
		"app.environment": "development",

		"server.port":                   8080,
		"server.read_timeout":           10000,
		"server.write_timeout":          10000,
		"server.shutdown_timeout":       15000,
		"server.cors.allowed_origins":   []string{"*"},
		"server.cors.allow_credentials": true,
		"server.cors.max_age":           300,
		"server.rate_limit.enabled":     true,
		"server.rate_limit.requests":    120,
		"server.rate_limit.window":      60000,

		"catalog.source":    SourceCSV,
		"catalog.path":      "data/places.csv",
		"catalog.table":     "places",
		"catalog.redis_key": "catalog:places",
		"catalog.index":     "places",
		"catalog.timeout":   10000,

		"matcher.top_k":               5,
		"matcher.weights.location":    w.Location,
		"matcher.weights.personality": w.Personality,
		"matcher.weights.drinking":    w.Drinking,
		"matcher.weights.activity":    w.Activity,
		"matcher.weights.noise":       w.Noise,
		"matcher.weights.romantic":    w.Romantic,
		"matcher.weights.budget":      w.Budget,
		"matcher.weights.walk":        w.Walk,

		"database.postgres.host":            "localhost",
		"database.postgres.port":            5432,
		"database.postgres.database":        "places",
		"database.postgres.user":            "",
		"database.postgres.password":        "",
		"database.postgres.max_connections": 25,
		"database.postgres.max_idle":        5,
		"database.postgres.sslmode":         "disable",
		"database.redis.address":            "localhost:6379",
		"database.redis.password":           "",
		"database.redis.db":                 0,
		"database.elasticsearch.addresses":  []string{"http://localhost:9200"},
		"database.elasticsearch.username":   "",
		"database.elasticsearch.password":   "",

		"camunda.enabled":         false,
		"camunda.broker_address":  "localhost:26500",
		"camunda.max_jobs_active": 10,
		"camunda.timeout":         30000,
		"camunda.request_timeout": 30000,
		"camunda.concurrency":     4,

		"logging.level":  "info",
		"logging.format": "json",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills credentials from the conventional variable names.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Database.Redis.Password == "" {
		cfg.Database.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
	if cfg.Database.Elasticsearch.Username == "" {
		cfg.Database.Elasticsearch.Username = os.Getenv("ES_USERNAME")
	}
	if cfg.Database.Elasticsearch.Password == "" {
		cfg.Database.Elasticsearch.Password = os.Getenv("ES_PASSWORD")
	}
	if cfg.Camunda.BrokerAddress == "" {
		cfg.Camunda.BrokerAddress = os.Getenv("ZEEBE_ADDRESS")
	}
}

// applyDefaults covers values a YAML file may have explicitly zeroed.
func applyDefaults(cfg *Config) {
	if cfg.Matcher.TopK == 0 {
		cfg.Matcher.TopK = 5
	}
	if cfg.Matcher.Weights.IsZero() {
		cfg.Matcher.Weights = matcher.DefaultWeights()
	}
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = SourceCSV
	}
	cfg.Catalog.Source = strings.ToLower(cfg.Catalog.Source)
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig runs the struct tags, then the cross-field rules.
func validateConfig(cfg *Config) error {
	if err := validation.ValidateStruct(cfg); err != nil {
		return err
	}
	if err := cfg.Matcher.Weights.Check(); err != nil {
		return err
	}

	switch cfg.Catalog.Source {
	case SourceCSV:
		if cfg.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for the csv source")
		}
	case SourcePostgres:
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.host and database.postgres.database are required for the postgres source")
		}
		if cfg.Catalog.Table == "" {
			return fmt.Errorf("catalog.table is required for the postgres source")
		}
	case SourceRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis source")
		}
		if cfg.Catalog.RedisKey == "" {
			return fmt.Errorf("catalog.redis_key is required for the redis source")
		}
	case SourceElastic:
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses is required for the elasticsearch source")
		}
		if cfg.Catalog.Index == "" {
			return fmt.Errorf("catalog.index is required for the elasticsearch source")
		}
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda.enabled is true")
	}
	return nil
}
