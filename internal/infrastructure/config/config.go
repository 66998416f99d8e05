// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for suggestor configuration.
	DefaultConfigDir = ".suggestor"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the default SQLite file name inside the config dir.
	DefaultDatabaseFile = "suggestor.db"

	// DriverSQLite selects the SQLite edit store.
	DriverSQLite = "sqlite"
	// DriverPostgres selects the PostgreSQL edit store.
	DriverPostgres = "postgres"

	// Version is reported in the default User-Agent.
	Version = "0.1.0"

	// DefaultSummaryPrefix is prepended to every published edit summary.
	DefaultSummaryPrefix = "Edit on behalf of Tor user: "
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Wiki    WikiConfig    `yaml:"wiki"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds configuration for the HTTP surface.
type ServerConfig struct {
	Address string `yaml:"address"`
	// LoginURL is where unauthenticated reviewers are sent.
	LoginURL     string        `yaml:"login_url"`
	CORSOrigins  []string      `yaml:"cors_origins,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StoreConfig selects and configures the edit store backend.
type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite edit store.
type SQLiteConfig struct {
	// Path is the database file. Relative paths resolve against the config dir.
	Path string `yaml:"path,omitempty"`
}

// PostgresConfig holds configuration for the PostgreSQL edit store.
type PostgresConfig struct {
	DSN      string `yaml:"dsn,omitempty"`
	MaxConns int32  `yaml:"max_conns,omitempty"`
	MinConns int32  `yaml:"min_conns,omitempty"`
}

// WikiConfig holds configuration for the MediaWiki API client.
type WikiConfig struct {
	// APIURLTemplate is the endpoint with a single %s for the wiki host.
	APIURLTemplate string `yaml:"api_url_template"`
	// CentralWiki answers identity lookups.
	CentralWiki   string `yaml:"central_wiki"`
	UserAgent     string `yaml:"user_agent"`
	SummaryPrefix string `yaml:"summary_prefix"`
	// MaxLag is sent as maxlag when positive; 0 omits it.
	MaxLag    int           `yaml:"max_lag"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	RateBurst int           `yaml:"rate_burst"`
}

// SessionConfig holds the secrets for reviewer session cookies and CSRF tokens.
type SessionConfig struct {
	// Key is a 32-byte secretbox key, hex- or base64-encoded.
	Key        string        `yaml:"key,omitempty"`
	CookieName string        `yaml:"cookie_name"`
	CSRFSecret string        `yaml:"csrf_secret,omitempty"`
	CSRFTTL    time.Duration `yaml:"csrf_ttl"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      "127.0.0.1:8000",
			LoginURL:     "/login",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			SQLite: SQLiteConfig{Path: DefaultDatabaseFile},
			Postgres: PostgresConfig{
				MaxConns: 10,
				MinConns: 1,
			},
		},
		Wiki: WikiConfig{
			APIURLTemplate: "https://%s/w/api.php",
			CentralWiki:    "meta.wikimedia.org",
			UserAgent:      "suggestor/" + Version,
			SummaryPrefix:  DefaultSummaryPrefix,
			Timeout:        30 * time.Second,
			RateLimit:      5,
			RateBurst:      10,
		},
		Session: SessionConfig{
			CookieName: "suggestor_session",
			CSRFTTL:    time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the .suggestor directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'suggestor init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(basePath)

	return cfg, nil
}

// Parse decodes YAML over the defaults and applies environment overrides.
func Parse(data []byte) (*Config, error) {
	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("SUGGESTOR_DATABASE_URL"); dsn != "" {
		c.Store.Driver = DriverPostgres
		c.Store.Postgres.DSN = dsn
	}
	if key := os.Getenv("SUGGESTOR_SESSION_KEY"); key != "" {
		c.Session.Key = key
	}
	if secret := os.Getenv("SUGGESTOR_CSRF_SECRET"); secret != "" {
		c.Session.CSRFSecret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		host, _, err := net.SplitHostPort(c.Server.Address)
		if err != nil {
			host = ""
		}
		c.Server.Address = net.JoinHostPort(host, port)
	}
}

// Validate reports configuration that cannot be served.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required"))
		}
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			errs = append(errs, errors.New("store.postgres.dsn is required (or set SUGGESTOR_DATABASE_URL)"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Store.Driver))
	}
	if strings.Count(c.Wiki.APIURLTemplate, "%s") != 1 {
		errs = append(errs, fmt.Errorf("wiki.api_url_template must contain exactly one %%s, got %q", c.Wiki.APIURLTemplate))
	}
	if c.Wiki.CentralWiki == "" {
		errs = append(errs, errors.New("wiki.central_wiki is required"))
	}
	if c.Wiki.Timeout <= 0 {
		errs = append(errs, errors.New("wiki.timeout must be positive"))
	}
	if c.Wiki.MaxLag < 0 {
		errs = append(errs, errors.New("wiki.max_lag must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) resolvePaths(basePath string) {
	if c.Store.Driver == DriverSQLite && c.Store.SQLite.Path != ":memory:" && !filepath.IsAbs(c.Store.SQLite.Path) {
		c.Store.SQLite.Path = filepath.Join(ConfigDir(basePath), c.Store.SQLite.Path)
	}
}

// ConfigDir returns the path to the .suggestor config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// Exists checks if a suggestor config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
