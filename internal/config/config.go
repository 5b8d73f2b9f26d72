package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. ENERLYZE_SERVER_PORT
const EnvPrefix = "ENERLYZE"

// Data sources the server can build its dataset from
const (
	SourceAPI      = "api"
	SourceDatabase = "database"
)

// Config is the full application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Projection ProjectionConfig `mapstructure:"projection"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Data       DataConfig       `mapstructure:"data"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds Postgres settings. Host empty means no database.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// Enabled reports whether a database was configured
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// UpstreamConfig describes the yearly electricity-generation API
type UpstreamConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key" json:"-"`
	EntityCode        string        `mapstructure:"entity_code"`
	StartYear         int           `mapstructure:"start_year"`
	IsAggregateSeries bool          `mapstructure:"is_aggregate_series"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryCount        int           `mapstructure:"retry_count"`
	RetryWait         time.Duration `mapstructure:"retry_wait"`
}

// ProjectionConfig bounds the horizon accepted from users
type ProjectionConfig struct {
	DefaultHorizon int `mapstructure:"default_horizon"`
	MinHorizon     int `mapstructure:"min_horizon"`
	MaxHorizon     int `mapstructure:"max_horizon"`
}

// RedisConfig holds the optional snapshot cache settings
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// Addr returns host:port for the redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DataConfig selects where the server loads its dataset from
type DataConfig struct {
	Source string `mapstructure:"source"`
}

// LoadConfig reads config.yaml from . or ./configs when present and applies
// ENERLYZE_* environment overrides on top of the defaults
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "enerlyze")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	v.SetDefault("logging.level", "info")

	v.SetDefault("upstream.base_url", "https://api.ember-energy.org")
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.entity_code", "BRA")
	v.SetDefault("upstream.start_year", 1990)
	v.SetDefault("upstream.is_aggregate_series", false)
	v.SetDefault("upstream.timeout", "30s")
	v.SetDefault("upstream.retry_count", 2)
	v.SetDefault("upstream.retry_wait", "1s")

	v.SetDefault("projection.default_horizon", 5)
	v.SetDefault("projection.min_horizon", 1)
	v.SetDefault("projection.max_horizon", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_ttl", "24h")

	v.SetDefault("data.source", SourceAPI)
}

// Validate checks the configuration for values the commands cannot work with
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}

	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("upstream.base_url %q is not an absolute URL", c.Upstream.BaseURL))
	}
	if c.Upstream.EntityCode == "" {
		problems = append(problems, "upstream.entity_code is required")
	}
	if c.Upstream.RetryCount < 0 {
		problems = append(problems, "upstream.retry_count must not be negative")
	}
	if c.Upstream.Timeout <= 0 {
		problems = append(problems, "upstream.timeout must be positive")
	}

	p := c.Projection
	if p.MinHorizon < 1 {
		problems = append(problems, "projection.min_horizon must be at least 1")
	}
	if p.MaxHorizon < p.MinHorizon {
		problems = append(problems, "projection.max_horizon must not be below min_horizon")
	}
	if p.DefaultHorizon < p.MinHorizon || p.DefaultHorizon > p.MaxHorizon {
		problems = append(problems, fmt.Sprintf("projection.default_horizon %d outside [%d, %d]", p.DefaultHorizon, p.MinHorizon, p.MaxHorizon))
	}

	switch c.Data.Source {
	case SourceAPI:
	case SourceDatabase:
		if !c.Database.Enabled() {
			problems = append(problems, "data.source=database requires database.host")
		}
	default:
		problems = append(problems, fmt.Sprintf("data.source %q must be %q or %q", c.Data.Source, SourceAPI, SourceDatabase))
	}

	if c.Redis.Enabled && c.Redis.SnapshotTTL <= 0 {
		problems = append(problems, "redis.snapshot_ttl must be positive when redis is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
