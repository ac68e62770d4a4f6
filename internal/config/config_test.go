package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/statement-redactor/internal/redact"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	configContent := `
section_title = "Your Transactions"
currency_symbol = "$"
currency_code = "USD"
whitelist = ["Trainline", "TFL"]
row_tolerance = 2
registry_mode = "multi"
output_dir = "/tmp/redacted"
log_level = "debug"

[server]
  listen_addr = ":9090"
  max_upload_mb = 8
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Load the config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify config values
	assert.Equal(t, "Your Transactions", config.SectionTitle)
	assert.Equal(t, "$", config.CurrencySymbol)
	assert.Equal(t, "USD", config.CurrencyCode)
	assert.Equal(t, []string{"Trainline", "TFL"}, config.Whitelist)
	assert.Equal(t, 2, config.RowTolerance)
	assert.Equal(t, "/tmp/redacted", config.OutputDir)
	assert.Equal(t, slog.LevelDebug, config.Level())

	// Defaults survive for keys the file leaves out
	assert.Equal(t, "Limit", config.LimitLabel)
	assert.Len(t, config.Months, 12)

	// Check server config
	assert.Equal(t, ":9090", config.Server.ListenAddr)
	assert.Equal(t, int64(8), config.Server.MaxUploadMB)

	rc := config.Redaction()
	assert.Equal(t, redact.RegistryMulti, rc.Registry)
	assert.Equal(t, "Your Transactions", rc.SectionTitle)
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "Transaction Details", config.SectionTitle)
	assert.Equal(t, "£", config.CurrencySymbol)
	assert.Equal(t, "GBP", config.CurrencyCode)
	assert.Equal(t, string(redact.RegistryOverwrite), config.RegistryMode)
	assert.Equal(t, 1, config.RowTolerance)
	assert.Equal(t, ":8080", config.Server.ListenAddr)
	assert.Equal(t, slog.LevelInfo, config.Level())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("REDACTOR_SECTION_TITLE", "Statement Entries")
	t.Setenv("REDACTOR_SERVER_LISTEN_ADDR", "127.0.0.1:7000")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "Statement Entries", config.SectionTitle)
	assert.Equal(t, "127.0.0.1:7000", config.Server.ListenAddr)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	config, err := LoadConfig("nonexistent.toml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`registry_mode = "list"`), 0644))

	config, err := LoadConfig(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "registry_mode")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			SectionTitle:   "Transaction Details",
			CurrencySymbol: "£",
			Months:         []string{"Jan"},
			RegistryMode:   "overwrite",
			Server:         ServerConfig{MaxUploadMB: 1},
		}
	}

	c := valid()
	assert.NoError(t, c.Validate())

	c = valid()
	c.SectionTitle = " "
	assert.Error(t, c.Validate())

	c = valid()
	c.RowTolerance = -1
	assert.Error(t, c.Validate())

	c = valid()
	c.Months = nil
	assert.Error(t, c.Validate())

	c = valid()
	c.Server.MaxUploadMB = 0
	assert.Error(t, c.Validate())
}
