package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/example/statement-redactor/internal/redact"
)

// EnvPrefix prefixes environment overrides, e.g. REDACTOR_SECTION_TITLE
const EnvPrefix = "REDACTOR"

// Config represents the application configuration
type Config struct {
	SectionTitle   string       `mapstructure:"section_title"`
	CurrencySymbol string       `mapstructure:"currency_symbol"`
	CurrencyCode   string       `mapstructure:"currency_code"`
	LimitLabel     string       `mapstructure:"limit_label"`
	Months         []string     `mapstructure:"months"`
	Whitelist      []string     `mapstructure:"whitelist"`
	RowTolerance   int          `mapstructure:"row_tolerance"`
	RegistryMode   string       `mapstructure:"registry_mode"`
	OutputDir      string       `mapstructure:"output_dir"`
	LogLevel       string       `mapstructure:"log_level"`
	Server         ServerConfig `mapstructure:"server"`
}

// ServerConfig defines the upload server settings
type ServerConfig struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

func setDefaults(v *viper.Viper) {
	d := redact.DefaultConfig()
	v.SetDefault("section_title", d.SectionTitle)
	v.SetDefault("currency_symbol", d.CurrencySymbol)
	v.SetDefault("currency_code", "GBP")
	v.SetDefault("limit_label", d.LimitLabel)
	v.SetDefault("months", d.Months)
	v.SetDefault("whitelist", []string{})
	v.SetDefault("row_tolerance", d.RowTolerance)
	v.SetDefault("registry_mode", string(d.Registry))
	v.SetDefault("output_dir", ".")
	v.SetDefault("log_level", "info")
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.max_upload_mb", 32)
}

// LoadConfig loads configuration from file and environment variables.
// An empty path loads defaults and the environment only. A .env file in
// the working directory is read first if present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks the values the classifier cannot run without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SectionTitle) == "" {
		return fmt.Errorf("section_title must not be empty")
	}
	if c.CurrencySymbol == "" {
		return fmt.Errorf("currency_symbol must not be empty")
	}
	if len(c.Months) == 0 {
		return fmt.Errorf("months must list at least one abbreviation")
	}
	if c.RowTolerance < 0 {
		return fmt.Errorf("row_tolerance must not be negative")
	}
	switch redact.RegistryMode(c.RegistryMode) {
	case redact.RegistryOverwrite, redact.RegistryMulti:
	default:
		return fmt.Errorf("registry_mode must be %q or %q, got %q",
			redact.RegistryOverwrite, redact.RegistryMulti, c.RegistryMode)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	return nil
}

// Redaction returns the classifier settings
func (c *Config) Redaction() redact.Config {
	return redact.Config{
		SectionTitle:   c.SectionTitle,
		CurrencySymbol: c.CurrencySymbol,
		LimitLabel:     c.LimitLabel,
		Months:         c.Months,
		RowTolerance:   c.RowTolerance,
		Registry:       redact.RegistryMode(c.RegistryMode),
	}
}

// Level returns the slog level named by log_level, defaulting to info
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
