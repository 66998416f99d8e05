package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "https://%s/w/api.php", cfg.Wiki.APIURLTemplate)
	assert.Equal(t, "meta.wikimedia.org", cfg.Wiki.CentralWiki)
	assert.Equal(t, "Edit on behalf of Tor user: ", cfg.Wiki.SummaryPrefix)
	assert.Equal(t, 0, cfg.Wiki.MaxLag)
	assert.Equal(t, 30*time.Second, cfg.Wiki.Timeout)
	assert.Equal(t, "suggestor/"+Version, cfg.Wiki.UserAgent)
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	t.Setenv("SUGGESTOR_DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := Parse([]byte(`
wiki:
  max_lag: 5
  timeout: 10s
log:
  level: debug
`))

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Wiki.MaxLag)
	assert.Equal(t, 10*time.Second, cfg.Wiki.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched sections keep their defaults
	assert.Equal(t, "meta.wikimedia.org", cfg.Wiki.CentralWiki)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
}

func TestParseDefaultTemplate(t *testing.T) {
	t.Setenv("SUGGESTOR_DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := Parse([]byte(DefaultConfigYAML))

	require.NoError(t, err)
	assert.Equal(t, Default().Wiki.SummaryPrefix, cfg.Wiki.SummaryPrefix)
	assert.Equal(t, time.Hour, cfg.Session.CSRFTTL)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SUGGESTOR_DATABASE_URL", "postgres://localhost/suggestor")
	t.Setenv("SUGGESTOR_SESSION_KEY", "k")
	t.Setenv("SUGGESTOR_CSRF_SECRET", "s")
	t.Setenv("PORT", "9090")

	cfg := Default()
	cfg.applyEnvOverrides()

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/suggestor", cfg.Store.Postgres.DSN)
	assert.Equal(t, "k", cfg.Session.Key)
	assert.Equal(t, "s", cfg.Session.CSRFSecret)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "store.driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Driver = DriverPostgres }, wantErr: "store.postgres.dsn"},
		{name: "template without host", mutate: func(c *Config) { c.Wiki.APIURLTemplate = "https://example.org/w/api.php" }, wantErr: "api_url_template"},
		{name: "zero timeout", mutate: func(c *Config) { c.Wiki.Timeout = 0 }, wantErr: "wiki.timeout"},
		{name: "negative maxlag", mutate: func(c *Config) { c.Wiki.MaxLag = -1 }, wantErr: "max_lag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("SUGGESTOR_DATABASE_URL", "")
	t.Setenv("PORT", "")
	dir := t.TempDir()

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suggestor init")

	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".suggestor", "suggestor.db"), cfg.Store.SQLite.Path)

	err = WriteDefault(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestWrite(t *testing.T) {
	t.Setenv("SUGGESTOR_DATABASE_URL", "")
	t.Setenv("PORT", "")
	dir := t.TempDir()
	cfg := Default()
	cfg.Wiki.MaxLag = 3

	require.NoError(t, Write(dir, cfg))

	data, err := os.ReadFile(ConfigFilePath(dir))
	require.NoError(t, err)
	loaded, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Wiki.MaxLag)
	assert.Equal(t, cfg.Wiki.Timeout, loaded.Wiki.Timeout)
}

func TestConfigDir(t *testing.T) {
	assert.Equal(t, "/home/user/project/.suggestor", ConfigDir("/home/user/project"))
	assert.Equal(t, "/home/user/project/.suggestor/config.yaml", ConfigFilePath("/home/user/project"))
}
