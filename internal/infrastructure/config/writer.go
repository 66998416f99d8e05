package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# Suggestor Configuration

server:
  address: 127.0.0.1:8000
  login_url: /login
  # cors_origins: ["https://en.wikipedia.org"]
  read_timeout: 15s
  write_timeout: 60s

store:
  driver: sqlite
  sqlite:
    path: suggestor.db
  # postgres:
  #   dsn: postgres://suggestor@localhost/suggestor (or set SUGGESTOR_DATABASE_URL)
  #   max_conns: 10

wiki:
  api_url_template: https://%s/w/api.php
  central_wiki: meta.wikimedia.org
  summary_prefix: "Edit on behalf of Tor user: "
  # max_lag: 5 (0 omits maxlag)
  timeout: 30s
  rate_limit: 5
  rate_burst: 10

session:
  cookie_name: suggestor_session
  csrf_ttl: 1h
  # key: 32-byte key, hex or base64 (or set SUGGESTOR_SESSION_KEY)
  # csrf_secret: any long random string (or set SUGGESTOR_CSRF_SECRET)

log:
  level: info
  format: text
`

// WriteDefault creates the .suggestor directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := ConfigDir(basePath)
	configFile := filepath.Join(configDir, DefaultConfigFile)

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	configDir := ConfigDir(basePath)

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, DefaultConfigFile), data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
