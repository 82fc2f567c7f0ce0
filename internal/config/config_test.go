package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/duizhang/settlement/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_PATH", "BILL_CONFIG_PATH", "PDF_FONT_PATH", "SEED_DIR", "EXPORT_CACHE_SIZE", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, &Config{
		Port:            "8080",
		DBPath:          "duizhang.db",
		ExportCacheSize: 64,
		SeedDir:         "testdata",
		LogLevel:        "info",
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EXPORT_CACHE_SIZE", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 64, cfg.ExportCacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errorString string
	}{
		{
			name:        "non-numeric port",
			config:      Config{Port: "abc", DBPath: "x.db", ExportCacheSize: 1, LogLevel: "info"},
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "port out of range",
			config:      Config{Port: "70000", DBPath: "x.db", ExportCacheSize: 1, LogLevel: "info"},
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "empty db path",
			config:      Config{Port: "8080", ExportCacheSize: 1, LogLevel: "info"},
			errorString: "database path cannot be empty",
		},
		{
			name:        "cache size",
			config:      Config{Port: "8080", DBPath: "x.db", LogLevel: "info"},
			errorString: "invalid export cache size 0",
		},
		{
			name:        "log level",
			config:      Config{Port: "8080", DBPath: "x.db", ExportCacheSize: 1, LogLevel: "loud"},
			errorString: "invalid log level 'loud'",
		},
		{
			name:        "missing font",
			config:      Config{Port: "8080", DBPath: "x.db", ExportCacheSize: 1, LogLevel: "info", PDFFontPath: "/nonexistent/font.ttf"},
			errorString: "PDF font file does not exist",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	err := (&Config{Port: "x", LogLevel: "info", ExportCacheSize: 1}).Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "database path")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	assert.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLoadBillConfig(t *testing.T) {
	cfg, err := LoadBillConfig("")
	assert.NoError(t, err)
	assert.Equal(t, domain.BillConfig{Title: domain.DefaultBillTitle}, cfg)

	path := filepath.Join(t.TempDir(), "bill.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(`
payer_company: 甲方网络科技有限公司
payer_tax_id: 91110000XXXXXXXX
receiver_company: 乙方游戏工作室
receiver_bank: 招商银行
`), 0o600))

	cfg, err = LoadBillConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, domain.DefaultBillTitle, cfg.Title)
	assert.Equal(t, "甲方网络科技有限公司", cfg.PayerCompany)
	assert.Equal(t, "91110000XXXXXXXX", cfg.PayerTaxID)
	assert.Equal(t, "招商银行", cfg.ReceiverBank)

	_, err = LoadBillConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
