// Package config provides configuration management for the journal crawler.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Word count modes.
const (
	// WordCountsTransactional increments title words inside the article transaction.
	WordCountsTransactional = "transactional"
	// WordCountsDetached increments title words on a separate connection after the article commits.
	WordCountsDetached = "detached"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "JOURNALCRAWLER"

// DefaultUserAgent mimics a desktop browser; some journal sites refuse the Go default.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds all configuration for the journal crawler.
type Config struct {
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Crawl contains pagination and listing settings.
	Crawl CrawlConfig `mapstructure:"crawl"`
	// Fetch contains HTTP client settings for listing and article pages.
	Fetch FetchConfig `mapstructure:"fetch"`
	// WordCounts controls how title word counters are written.
	WordCounts WordCountsConfig `mapstructure:"word_counts"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Server contains the status server settings.
	Server ServerConfig `mapstructure:"server"`
	// Events contains the optional Kafka publisher settings.
	Events EventsConfig `mapstructure:"events"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username, usually supplied by the credentials file.
	User string `mapstructure:"user"`
	// Password is the database password, usually supplied by the credentials file.
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun applies pending migrations before a crawl starts.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// CrawlConfig holds pagination settings.
type CrawlConfig struct {
	// ListingURLTemplate is the listing URL; "{page}" is replaced by the page number.
	ListingURLTemplate string `mapstructure:"listing_url_template"`
	// BaseURL resolves relative article links found on listing pages.
	BaseURL string `mapstructure:"base_url"`
	// StartPage is the first listing page to fetch.
	StartPage int `mapstructure:"start_page"`
	// MaxPages is the highest page number the crawl may reach.
	MaxPages int `mapstructure:"max_pages"`
	// MaxCardsPerPage caps how many listing cards are processed per page.
	MaxCardsPerPage int `mapstructure:"max_cards_per_page"`
}

// FetchConfig holds HTTP client settings.
type FetchConfig struct {
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent"`
	// Timeout bounds a single page fetch.
	Timeout time.Duration `mapstructure:"timeout"`
}

// WordCountsConfig controls title word counting.
type WordCountsConfig struct {
	// Mode is "transactional" or "detached".
	Mode string `mapstructure:"mode"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// ServerConfig holds status server configuration.
type ServerConfig struct {
	// Enabled starts the status server alongside a crawl.
	Enabled bool `mapstructure:"enabled"`
	// Host is the address to bind the server to.
	Host string `mapstructure:"host"`
	// Port is the HTTP port.
	Port int `mapstructure:"port"`
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EventsConfig holds Kafka publisher settings for stored-article events.
type EventsConfig struct {
	// Enabled controls whether events are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic receives one message per stored article.
	Topic string `mapstructure:"topic"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// BatchSize is the number of messages that flushes a batch.
	BatchSize int `mapstructure:"batch_size"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// Address returns the status server listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ListingURL returns the listing URL for the given page.
func (c *CrawlConfig) ListingURL(page int) string {
	return strings.ReplaceAll(c.ListingURLTemplate, "{page}", fmt.Sprintf("%d", page))
}

// Load reads configuration from .env files, environment variables and an optional config file.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/journal-crawler")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "journals")
	v.SetDefault("database.ssl_mode", SSLModeDisable)
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Crawl defaults
	v.SetDefault("crawl.listing_url_template", "https://www.nature.com/search?q=breast+cancer&order=relevance&page={page}")
	v.SetDefault("crawl.base_url", "https://www.nature.com")
	v.SetDefault("crawl.start_page", 1)
	v.SetDefault("crawl.max_pages", 50)
	v.SetDefault("crawl.max_cards_per_page", 1000)

	// Fetch defaults
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.timeout", "30s")

	v.SetDefault("word_counts.mode", WordCountsTransactional)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")

	// Server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "journal-crawler.articles")
	v.SetDefault("events.batch_timeout", "1s")
	v.SetDefault("events.batch_size", 1)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	if err := c.Crawl.Validate(); err != nil {
		return err
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}

	switch c.WordCounts.Mode {
	case WordCountsTransactional, WordCountsDetached:
	default:
		return fmt.Errorf("invalid word_counts mode: %q", c.WordCounts.Mode)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events brokers are required when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events topic is required when events are enabled")
		}
	}

	return nil
}

// Validate checks the pagination settings. It runs again after CLI flags override them.
func (c *CrawlConfig) Validate() error {
	if !strings.Contains(c.ListingURLTemplate, "{page}") {
		return fmt.Errorf("listing url template must contain {page}: %q", c.ListingURLTemplate)
	}
	if c.StartPage < 1 {
		return fmt.Errorf("start page must be >= 1, got %d", c.StartPage)
	}
	if c.MaxPages < c.StartPage {
		return fmt.Errorf("max pages (%d) must be >= start page (%d)", c.MaxPages, c.StartPage)
	}
	if c.MaxCardsPerPage <= 0 {
		return fmt.Errorf("max cards per page must be positive")
	}
	return nil
}
