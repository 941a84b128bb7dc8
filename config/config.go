package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/execfeed/bitflyer"
	"github.com/rustyeddy/execfeed/candles"
	"github.com/rustyeddy/execfeed/crawl"
	"github.com/rustyeddy/execfeed/internal/backoff"
	"github.com/rustyeddy/execfeed/sink"
)

// Config is the complete execfeed configuration
type Config struct {
	Feed    FeedConfig    `json:"feed" yaml:"feed"`
	Crawl   CrawlConfig   `json:"crawl" yaml:"crawl"`
	Retry   RetryConfig   `json:"retry" yaml:"retry"`
	Candles CandlesConfig `json:"candles" yaml:"candles"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// FeedConfig points at the venue
type FeedConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Timeout string `json:"timeout" yaml:"timeout"` // per request, e.g. "10s"
}

// CrawlConfig controls paging
type CrawlConfig struct {
	ProductCode  string `json:"product_code" yaml:"product_code"`
	PageSize     int    `json:"page_size" yaml:"page_size"`
	PageLimit    int    `json:"page_limit" yaml:"page_limit"` // 0 = no cap
	Exhaustive   bool   `json:"exhaustive" yaml:"exhaustive"`
	RequestDelay string `json:"request_delay" yaml:"request_delay"`
}

// RetryConfig controls per-page retries
type RetryConfig struct {
	MaxAttempts int     `json:"max_attempts" yaml:"max_attempts"`
	BackoffBase float64 `json:"backoff_base" yaml:"backoff_base"`
	BackoffUnit string  `json:"backoff_unit" yaml:"backoff_unit"`
}

// CandlesConfig controls aggregation
type CandlesConfig struct {
	Interval  string `json:"interval" yaml:"interval"`
	FillGaps  bool   `json:"fill_gaps" yaml:"fill_gaps"`
	Ordering  string `json:"ordering" yaml:"ordering"`     // "id" or "arrival"
	SeedClose string `json:"seed_close" yaml:"seed_close"` // empty = first execution price
}

// OutputConfig controls where files go
type OutputConfig struct {
	Dir      string `json:"dir" yaml:"dir"`
	Format   string `json:"format" yaml:"format"` // json, csv or parquet
	Compress bool   `json:"compress" yaml:"compress"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type     string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath   string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	RunsFile string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON).
// Keys missing from the file keep their defaults. Environment overrides are
// applied before validation.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Env variables that override file values.
const (
	EnvBaseURL     = "EXECFEED_BASE_URL"
	EnvProductCode = "EXECFEED_PRODUCT_CODE"
	EnvOutputDir   = "EXECFEED_OUTPUT_DIR"
	EnvLogLevel    = "EXECFEED_LOG_LEVEL"
	EnvJournalDB   = "EXECFEED_JOURNAL_DB"
)

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvBaseURL, &c.Feed.BaseURL)
	set(EnvProductCode, &c.Crawl.ProductCode)
	set(EnvOutputDir, &c.Output.Dir)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvJournalDB, &c.Journal.DBPath)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if err := checkDuration("feed.timeout", c.Feed.Timeout); err != nil {
		return err
	}
	if strings.TrimSpace(c.Crawl.ProductCode) == "" {
		return fmt.Errorf("crawl.product_code is required")
	}
	if c.Crawl.PageSize < 1 || c.Crawl.PageSize > bitflyer.MaxCount {
		return fmt.Errorf("crawl.page_size must be between 1 and %d", bitflyer.MaxCount)
	}
	if c.Crawl.PageLimit < 0 {
		return fmt.Errorf("crawl.page_limit must not be negative")
	}
	if err := checkDuration("crawl.request_delay", c.Crawl.RequestDelay); err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BackoffBase < 1 {
		return fmt.Errorf("retry.backoff_base must be at least 1")
	}
	if err := checkDuration("retry.backoff_unit", c.Retry.BackoffUnit); err != nil {
		return err
	}
	interval, err := time.ParseDuration(c.Candles.Interval)
	if err != nil {
		return fmt.Errorf("candles.interval: %w", err)
	}
	if interval < time.Second || (24*time.Hour)%interval != 0 {
		return fmt.Errorf("candles.interval must be at least 1s and divide a day")
	}
	if _, err := candles.ParseOrdering(c.Candles.Ordering); err != nil {
		return fmt.Errorf("candles.ordering: %w", err)
	}
	if c.Candles.SeedClose != "" {
		if _, err := decimal.NewFromString(c.Candles.SeedClose); err != nil {
			return fmt.Errorf("candles.seed_close must be a decimal: %q", c.Candles.SeedClose)
		}
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if _, err := sink.NewSaver(c.Output.Format, c.Output.Compress); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.RunsFile == "" {
			return fmt.Errorf("journal runs_file required for CSV type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

func checkDuration(key, s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative", key)
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Feed: FeedConfig{
			BaseURL: bitflyer.DefaultBaseURL,
			Timeout: "10s",
		},
		Crawl: CrawlConfig{
			ProductCode:  "BTC_JPY",
			PageSize:     100,
			PageLimit:    20,
			Exhaustive:   true,
			RequestDelay: "1s",
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BackoffBase: 2.0,
			BackoffUnit: "1s",
		},
		Candles: CandlesConfig{
			Interval: "1m",
			Ordering: string(candles.OrderByID),
		},
		Output: OutputConfig{
			Dir:    "./output",
			Format: "json",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./execfeed.sqlite",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// The accessors below assume Validate has passed and ignore parse errors.

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// Timeout is the per-request HTTP deadline.
func (c *Config) Timeout() time.Duration {
	return mustDuration(c.Feed.Timeout)
}

// CrawlOptions maps the crawl section onto crawl.Options.
func (c *Config) CrawlOptions() crawl.Options {
	return crawl.Options{
		ProductCode:  c.Crawl.ProductCode,
		PageSize:     c.Crawl.PageSize,
		PageLimit:    c.Crawl.PageLimit,
		Exhaustive:   c.Crawl.Exhaustive,
		RequestDelay: mustDuration(c.Crawl.RequestDelay),
	}
}

// Backoff maps the retry section onto the wait schedule.
func (c *Config) Backoff() backoff.Backoff {
	return backoff.Backoff{
		Unit: mustDuration(c.Retry.BackoffUnit),
		Base: c.Retry.BackoffBase,
	}
}

// CandleOptions maps the candles section onto candles.Options.
func (c *Config) CandleOptions() candles.Options {
	ordering, _ := candles.ParseOrdering(c.Candles.Ordering)
	return candles.Options{
		Interval: mustDuration(c.Candles.Interval),
		Ordering: ordering,
		FillGaps: c.Candles.FillGaps,
	}
}

// Seed is the configured carry-forward seed, nil when unset.
func (c *Config) Seed() *decimal.Decimal {
	if c.Candles.SeedClose == "" {
		return nil
	}
	d, err := decimal.NewFromString(c.Candles.SeedClose)
	if err != nil {
		return nil
	}
	return &d
}

// Saver builds the configured output sink.
func (c *Config) Saver() (sink.Saver, error) {
	return sink.NewSaver(c.Output.Format, c.Output.Compress)
}

// JournalPath is the file the configured journal writes to.
func (c *Config) JournalPath() string {
	if c.Journal.Type == "csv" {
		return c.Journal.RunsFile
	}
	return c.Journal.DBPath
}
