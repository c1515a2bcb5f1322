// internal/common/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/matcher"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Matcher  MatcherConfig  `mapstructure:"matcher"`
	Database DatabaseConfig `mapstructure:"database"`
	Camunda  CamundaConfig  `mapstructure:"camunda"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int       `mapstructure:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     int       `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int       `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int       `mapstructure:"shutdown_timeout"` // milliseconds
	CORS            CORS      `mapstructure:"cors"`
	RateLimit       RateLimit `mapstructure:"rate_limit"`
}

type CORS struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"` // seconds
}

type RateLimit struct {
	Enabled  bool `mapstructure:"enabled"`
	Requests int  `mapstructure:"requests" validate:"gte=0"`
	Window   int  `mapstructure:"window"` // milliseconds
}

// Catalog sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceRedis    = "redis"
	SourceElastic  = "elasticsearch"
)

type CatalogConfig struct {
	Source   string `mapstructure:"source" validate:"oneof=csv postgres redis elasticsearch"`
	Path     string `mapstructure:"path"`
	Table    string `mapstructure:"table"`
	RedisKey string `mapstructure:"redis_key"`
	Index    string `mapstructure:"index"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

type MatcherConfig struct {
	TopK    int             `mapstructure:"top_k" validate:"gte=1,lte=100"`
	Weights matcher.Weights `mapstructure:"weights"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	Concurrency    int    `mapstructure:"concurrency"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
