// Package config loads paycheck settings from defaults, an optional YAML
// file and PAYCHECK_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override (PAYCHECK_SERVER_PORT, ...).
const EnvPrefix = "PAYCHECK"

// Config holds application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ComplianceConfig selects the reference data of a session.
type ComplianceConfig struct {
	FiscalYear      int    `mapstructure:"fiscal_year"`
	RateTablesDir   string `mapstructure:"rate_tables_dir"`
	RulesFile       string `mapstructure:"rules_file"`
	RateTableChecks bool   `mapstructure:"rate_table_checks"`
	PercentRates    bool   `mapstructure:"percent_rates"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration. path is an explicit config file; when empty,
// PAYCHECK_CONFIG is used, then ./paycheck.yaml and the user config
// directory are searched. A missing file is not an error unless it was
// named explicitly.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("database.path", "paycheck.db")
	v.SetDefault("compliance.fiscal_year", 2024)
	v.SetDefault("compliance.rate_tables_dir", "")
	v.SetDefault("compliance.rules_file", "")
	v.SetDefault("compliance.rate_table_checks", false)
	v.SetDefault("compliance.percent_rates", false)
	v.SetDefault("log.level", "info")

	v.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("paycheck")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "paycheck"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path: required")
	}
	if c.Compliance.FiscalYear <= 0 {
		return fmt.Errorf("compliance.fiscal_year: %d is not a year", c.Compliance.FiscalYear)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// NewLogger builds a production zap logger at the configured level;
// verbose forces debug.
func (c Config) NewLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
