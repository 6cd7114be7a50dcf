package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"ratescraper/internal/workbook"
)

// EnvPrefix is the prefix for environment overrides. Keys follow the
// struct path, e.g. RATES_OUTPUT_PATH or RATES_SCRAPER_BROWSER_ENABLED.
const EnvPrefix = "RATES"

type Config struct {
	Scraper ScraperConfig `yaml:"scraper"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

type ScraperConfig struct {
	BaseURL string `yaml:"baseURL" split_words:"true" validate:"required,url"`
	// Timeout is per attempt, in seconds.
	Timeout int `yaml:"timeout" validate:"gt=0"`
	// Retries counts extra attempts after the first.
	Retries int `yaml:"retries" validate:"gte=0,lte=10"`
	// BackoffMs is the first retry delay, doubled on every further attempt.
	BackoffMs int `yaml:"backoffMs" split_words:"true" validate:"gte=0"`
	// Delay is the minimum gap between requests, in seconds.
	Delay     int           `yaml:"delay" validate:"gte=0"`
	UserAgent string        `yaml:"userAgent" split_words:"true"`
	Browser   BrowserConfig `yaml:"browser"`
}

type BrowserConfig struct {
	Enabled  bool `yaml:"enabled"`
	Headless bool `yaml:"headless"`
	Debug    bool `yaml:"debug"`
}

type OutputConfig struct {
	Path string `yaml:"path" validate:"required"`
	// OnDuplicate is a workbook.DuplicatePolicy.
	OnDuplicate string `yaml:"onDuplicate" split_words:"true"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig mirrors configs/config.yaml.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			BaseURL:   "https://tygiausd.org/TyGia",
			Timeout:   30,
			Retries:   2,
			BackoffMs: 500,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124 Safari/537.36",
			Browser: BrowserConfig{
				Headless: true,
			},
		},
		Output: OutputConfig{
			Path:        "exchange_rates.xlsx",
			OnDuplicate: string(workbook.DuplicateSkip),
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// RATES_* environment overrides and validates the result. A missing file is
// not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("loading config from env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := workbook.ParsePolicy(c.Output.OnDuplicate); err != nil {
		return fmt.Errorf("config validation failed: output.onDuplicate: %w", err)
	}
	return nil
}

func (c ScraperConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c ScraperConfig) BackoffDuration() time.Duration {
	return time.Duration(c.BackoffMs) * time.Millisecond
}

func (c ScraperConfig) DelayDuration() time.Duration {
	return time.Duration(c.Delay) * time.Second
}
