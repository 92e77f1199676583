package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0644)
	require.NoError(t, err)
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
tridens:
  site_code: "kaizen"
  username: "user@example.com"
  password: "secret"
  backfill_days: 60

schedule:
  cron: "0 4 * * *"

server:
  port: 9090

database:
  host: "localhost"
  port: 5432
  name: "testdb"
  user: "testuser"
  password: "testpass"
  ssl_mode: "disable"

logging:
  level: "debug"
  format: "json"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, config)

	// Verify loaded values
	assert.Equal(t, "kaizen", config.Tridens.SiteCode)
	assert.Equal(t, "user@example.com", config.Tridens.Username)
	assert.Equal(t, 60, config.Tridens.BackfillDays)
	assert.Equal(t, "0 4 * * *", config.Schedule.Cron)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, "testdb", config.Database.Name)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadDefaults(t *testing.T) {
	configPath := writeConfig(t, `
tridens:
  username: "user@example.com"
  password: "secret"
`)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "HEAT_METER_READ_SERVICE", config.Tridens.ServiceType)
	assert.Equal(t, 30, config.Tridens.BackfillDays)
	assert.Equal(t, 15, config.Tridens.WindowDays)
	assert.Equal(t, "10 3 * * *", config.Schedule.Cron)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 1000, config.Server.CacheSize)
	assert.Equal(t, 5.0, config.Server.RateLimit)
	assert.Equal(t, "disable", config.Database.SSLMode)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("TRIDENS_PASSWORD", "env-secret")
	t.Setenv("APP_DATABASE_HOST", "envhost")

	configPath := writeConfig(t, `
tridens:
  username: "user@example.com"
  password: $TRIDENS_PASSWORD

database:
  host: $APP_DATABASE_HOST
`)

	config, err := Load(configPath)
	require.NoError(t, err)

	// Verify environment variables are expanded into the config
	assert.Equal(t, "env-secret", config.Tridens.Password)
	assert.Equal(t, "envhost", config.Database.Host)
}

func TestLoadMissingCredentials(t *testing.T) {
	configPath := writeConfig(t, `
tridens:
  username: "user@example.com"
`)

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
