// Package config loads the tracker configuration from a TOML file with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/scryfall-client/internal/report"
	"github.com/Sternrassler/scryfall-client/pkg/cache"
	"github.com/Sternrassler/scryfall-client/pkg/client"
	"github.com/Sternrassler/scryfall-client/pkg/ratelimit"
	"github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DefaultPath is read when no path is given and SCRYFALL_CONFIG is unset.
const DefaultPath = "scryfall.toml"

// DisplayNameColumn is the column path that yields card.Card.DisplayName.
const DisplayNameColumn = report.DisplayNameColumn

// Environment variables that override file values.
const (
	EnvConfig    = "SCRYFALL_CONFIG"
	EnvUserAgent = "USER_AGENT"
	EnvBaseURL   = "SCRYFALL_BASE_URL"
	EnvRedisURL  = "REDIS_URL"
)

// Config is the complete tracker configuration.
type Config struct {
	Scryfall ScryfallConfig `toml:"scryfall"`
	Redis    RedisConfig    `toml:"redis"`
	Paths    PathsConfig    `toml:"paths"`
	Charts   ChartsConfig   `toml:"charts"`
	Report   ReportConfig   `toml:"report"`
}

// ScryfallConfig configures the API client.
type ScryfallConfig struct {
	UserAgent  string   `toml:"user_agent"`
	Accept     string   `toml:"accept"`
	BaseURL    string   `toml:"base_url"`
	Timeout    Duration `toml:"timeout"`
	Cooldown   Duration `toml:"cooldown"`
	MaxRetries int      `toml:"max_retries"`
}

// RedisConfig configures the optional GET response cache. An empty URL
// disables caching.
type RedisConfig struct {
	URL      string   `toml:"url"`
	CacheTTL Duration `toml:"cache_ttl"`
}

// PathsConfig holds the input and output file locations.
type PathsConfig struct {
	Collection   string `toml:"collection"`
	Cards        string `toml:"cards"`
	PriceHistory string `toml:"price_history"`
	Reports      string `toml:"reports"`
	Workbook     string `toml:"workbook"`
}

// ChartsConfig controls the price charts of the workbook.
type ChartsConfig struct {
	// PriceThreshold in USD; only cards whose latest price is above it get a chart.
	PriceThreshold float64 `toml:"price_threshold"`
	MaxTicks       int     `toml:"max_ticks"`
}

// Threshold returns PriceThreshold as a decimal.
func (c ChartsConfig) Threshold() decimal.Decimal {
	return decimal.NewFromFloat(c.PriceThreshold)
}

// ReportConfig controls the card report.
type ReportConfig struct {
	Columns []Column `toml:"columns"`
	TopN    int      `toml:"top_n"`
}

// Column is one card report column.
type Column = report.Column

// Duration is a time.Duration written as a string ("100ms", "24h") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Scryfall: ScryfallConfig{
			Accept:     client.DefaultAccept,
			BaseURL:    client.DefaultBaseURL,
			Timeout:    Duration{client.DefaultTimeout},
			Cooldown:   Duration{ratelimit.CooldownMin},
			MaxRetries: 3,
		},
		Redis: RedisConfig{
			CacheTTL: Duration{cache.DefaultTTL},
		},
		Paths: PathsConfig{
			Collection:   "data/collection.csv",
			Cards:        "data/cards.csv",
			PriceHistory: "data/price_history.csv",
			Reports:      "reports",
			Workbook:     "reports/prices.xlsx",
		},
		Charts: ChartsConfig{
			PriceThreshold: 5,
			MaxTicks:       10,
		},
		Report: ReportConfig{
			Columns: report.DefaultColumns(),
			TopN:    10,
		},
	}
}

// Load reads the configuration from path, falling back to SCRYFALL_CONFIG and
// then DefaultPath when path is empty. A missing file at the fallback
// location yields the defaults; a missing file that was asked for is an error.
// Environment variables override file values, and the result is validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if path = os.Getenv(EnvConfig); path != "" {
			explicit = true
		} else {
			path = DefaultPath
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data over cfg. Unknown keys are rejected. Report columns
// given in data replace the existing ones instead of being appended.
func Parse(data []byte, cfg *Config) error {
	columns := cfg.Report.Columns
	cfg.Report.Columns = nil

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		cfg.Report.Columns = columns
		return err
	}

	if len(cfg.Report.Columns) == 0 {
		cfg.Report.Columns = columns
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvUserAgent); v != "" {
		c.Scryfall.UserAgent = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Scryfall.BaseURL = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Redis.URL = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Scryfall.UserAgent) == "" {
		return fmt.Errorf("scryfall.user_agent (or %s): %w", EnvUserAgent, client.ErrMissingUserAgent)
	}

	u, err := url.Parse(c.Scryfall.BaseURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("scryfall.base_url %q is not an absolute http(s) url", c.Scryfall.BaseURL)
	}
	if c.Scryfall.Timeout.Duration < 0 {
		return fmt.Errorf("scryfall.timeout must not be negative")
	}
	if c.Scryfall.Cooldown.Duration < ratelimit.CooldownMin {
		return fmt.Errorf("scryfall.cooldown must be at least %v", ratelimit.CooldownMin)
	}
	if c.Scryfall.MaxRetries < 0 {
		return fmt.Errorf("scryfall.max_retries must not be negative")
	}

	if c.Charts.PriceThreshold < 0 {
		return fmt.Errorf("charts.price_threshold must not be negative")
	}
	if c.Charts.MaxTicks < 1 {
		return fmt.Errorf("charts.max_ticks must be at least 1")
	}

	if len(c.Report.Columns) == 0 {
		return fmt.Errorf("report.columns must not be empty")
	}
	for i, col := range c.Report.Columns {
		if col.Header == "" || col.Path == "" {
			return fmt.Errorf("report.columns[%d] needs a header and a path", i)
		}
		if col.Path != DisplayNameColumn && !strings.HasPrefix(col.Path, "$") {
			return fmt.Errorf("report.columns[%d]: path %q must be a JSONPath starting with $ or %q", i, col.Path, DisplayNameColumn)
		}
	}

	for name, p := range map[string]string{
		"paths.collection":    c.Paths.Collection,
		"paths.cards":         c.Paths.Cards,
		"paths.price_history": c.Paths.PriceHistory,
		"paths.reports":       c.Paths.Reports,
		"paths.workbook":      c.Paths.Workbook,
	} {
		if p == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	if c.Redis.URL != "" {
		if _, err := c.Redis.Options(); err != nil {
			return err
		}
	}
	return nil
}

// Options converts URL into redis options. A bare host:port is accepted.
func (r RedisConfig) Options() (*redis.Options, error) {
	if !strings.Contains(r.URL, "://") {
		return &redis.Options{Addr: r.URL}, nil
	}
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, fmt.Errorf("redis.url: %w", err)
	}
	return opts, nil
}

// ClientConfig builds the API client configuration. rdb may be nil.
func (c *Config) ClientConfig(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig(c.Scryfall.UserAgent)
	cfg.Accept = c.Scryfall.Accept
	cfg.BaseURL = c.Scryfall.BaseURL
	cfg.Timeout = c.Scryfall.Timeout.Duration
	cfg.Cooldown = c.Scryfall.Cooldown.Duration
	cfg.Redis = rdb
	cfg.CacheTTL = c.Redis.CacheTTL.Duration
	cfg.Retry.MaxAttempts = c.Scryfall.MaxRetries + 1
	return cfg
}
