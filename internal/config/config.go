package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/duizhang/settlement/internal/domain"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	DBPath string

	// Bill rendering
	BillConfigPath  string
	PDFFontPath     string
	ExportCacheSize int

	// Sample data loaded into an empty database
	SeedDir string

	LogLevel string
}

// Load reads the configuration from the environment. Callers load .env
// first if they want one.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "duizhang.db"),
		BillConfigPath:  getEnv("BILL_CONFIG_PATH", ""),
		PDFFontPath:     getEnv("PDF_FONT_PATH", ""),
		ExportCacheSize: getEnvInt("EXPORT_CACHE_SIZE", 64),
		SeedDir:         getEnv("SEED_DIR", "testdata"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	}

	if c.ExportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid export cache size %d: must be at least 1", c.ExportCacheSize))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	files := []struct{ name, path string }{
		{"bill config", c.BillConfigPath},
		{"PDF font", c.PDFFontPath},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			errors = append(errors, fmt.Sprintf("%s file does not exist: %s", f.name, f.path))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", s)
	}
	return l, nil
}

// NewLogger returns a text logger writing to stdout at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// LoadBillConfig reads bill party defaults from a YAML file. An empty path
// yields the defaults.
func LoadBillConfig(path string) (domain.BillConfig, error) {
	cfg := domain.BillConfig{Title: domain.DefaultBillTitle}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read bill config: %w", err)
	}
	var fromFile domain.BillConfig
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return cfg, fmt.Errorf("parse bill config %s: %w", path, err)
	}
	return cfg.Merge(fromFile), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
