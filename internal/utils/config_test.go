package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratescraper/internal/workbook"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "exchange_rates.xlsx", cfg.Output.Path)
	assert.Equal(t, string(workbook.DuplicateSkip), cfg.Output.OnDuplicate)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
scraper:
  baseURL: http://localhost:9000/rates
  timeout: 5
  retries: 0
  delay: 2
  browser:
    enabled: true
    headless: false
output:
  path: out/rates.xlsx
  onDuplicate: replace
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/rates", cfg.Scraper.BaseURL)
	assert.Equal(t, 5, cfg.Scraper.Timeout)
	assert.Equal(t, 0, cfg.Scraper.Retries)
	assert.Equal(t, 2, cfg.Scraper.Delay)
	assert.True(t, cfg.Scraper.Browser.Enabled)
	assert.False(t, cfg.Scraper.Browser.Headless)
	assert.Equal(t, "out/rates.xlsx", cfg.Output.Path)
	assert.Equal(t, string(workbook.DuplicateReplace), cfg.Output.OnDuplicate)
	// untouched keys keep their defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 500, cfg.Scraper.BackoffMs)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "output:\n  path: from-file.xlsx\n")
	t.Setenv("RATES_OUTPUT_PATH", "from-env.xlsx")
	t.Setenv("RATES_SCRAPER_RETRIES", "4")
	t.Setenv("RATES_SCRAPER_BROWSER_ENABLED", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.xlsx", cfg.Output.Path)
	assert.Equal(t, 4, cfg.Scraper.Retries)
	assert.True(t, cfg.Scraper.Browser.Enabled)
}

func TestLoadConfigIgnoresUnprefixedEnv(t *testing.T) {
	t.Setenv("PATH", "/usr/local/bin:/usr/bin")
	t.Setenv("DIR", "/tmp/elsewhere")
	t.Setenv("LEVEL", "debug")
	t.Setenv("DEBUG", "true")
	t.Setenv("ENABLED", "true")
	t.Setenv("TIMEOUT", "99")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigSplitWordEnvKeys(t *testing.T) {
	t.Setenv("RATES_SCRAPER_BASE_URL", "http://localhost:9000/rates")
	t.Setenv("RATES_SCRAPER_BACKOFF_MS", "50")
	t.Setenv("RATES_SCRAPER_USER_AGENT", "rates-agent/1.0")
	t.Setenv("RATES_OUTPUT_ON_DUPLICATE", "error")
	t.Setenv("RATES_LOGGING_DIR", "var/log")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/rates", cfg.Scraper.BaseURL)
	assert.Equal(t, 50, cfg.Scraper.BackoffMs)
	assert.Equal(t, "rates-agent/1.0", cfg.Scraper.UserAgent)
	assert.Equal(t, string(workbook.DuplicateError), cfg.Output.OnDuplicate)
	assert.Equal(t, "var/log", cfg.Logging.Dir)
	assert.Equal(t, "exchange_rates.xlsx", cfg.Output.Path)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero timeout", body: "scraper:\n  timeout: 0\n"},
		{name: "bad url", body: "scraper:\n  baseURL: not a url\n"},
		{name: "too many retries", body: "scraper:\n  retries: 50\n"},
		{name: "unknown duplicate policy", body: "output:\n  onDuplicate: merge\n"},
		{name: "unknown log level", body: "logging:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "scraper: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestScraperDurations(t *testing.T) {
	c := ScraperConfig{Timeout: 3, BackoffMs: 250, Delay: 1}
	assert.Equal(t, "3s", c.TimeoutDuration().String())
	assert.Equal(t, "250ms", c.BackoffDuration().String())
	assert.Equal(t, "1s", c.DelayDuration().String())
}
