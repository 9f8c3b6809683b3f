// Package config loads the runtime configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"casa/internal/log"
)

type Config struct {
	// Backend selection
	DataBackend string `env:"DATA_BACKEND" envDefault:"sqlite"`

	// Database
	SQLiteDBPath string `env:"SQLITE_DB_PATH" envDefault:"./data/casa.db"`

	// Memory backend seed directory (optional)
	MemorySeedDir string `env:"MEMORY_SEED_DIR"`

	// AMQP, disabled when the URL is empty
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"casa"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"cycle_events"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Person cache
	PersonCacheSize int           `env:"PERSON_CACHE_SIZE" envDefault:"256"`
	PersonCacheTTL  time.Duration `env:"PERSON_CACHE_TTL" envDefault:"5m"`

	// Worker
	WorkerInterval time.Duration `env:"WORKER_INTERVAL" envDefault:"1h"`
	CycleRollover  string        `env:"CYCLE_ROLLOVER" envDefault:"manual"`

	// Presentation
	Locale   string `env:"LOCALE" envDefault:"pt-BR"`
	Currency string `env:"CURRENCY" envDefault:"BRL"`
}

// Load reads the configuration from the environment, applying defaults for
// unset variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	switch c.DataBackend {
	case "sqlite":
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			errors = append(errors, "SQLITE_DB_PATH is required for sqlite backend")
		}
	case "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of sqlite, memory", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be amqp or amqps", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP_EXCHANGE is required when AMQP_URL is set")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP_QUEUE is required when AMQP_URL is set")
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != log.FormatText && c.LogFormat != log.FormatJSON {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.PersonCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid person cache size %d: must not be negative", c.PersonCacheSize))
	}
	if c.PersonCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid person cache TTL %v: must be positive", c.PersonCacheTTL))
	}

	if c.WorkerInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid worker interval %v: must be at least 1m", c.WorkerInterval))
	}
	switch c.CycleRollover {
	case "manual", "weekly", "monthly":
	default:
		errors = append(errors, fmt.Sprintf("invalid cycle rollover '%s': must be one of manual, weekly, monthly", c.CycleRollover))
	}

	if _, err := language.Parse(c.Locale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
	}
	if _, err := currency.ParseISO(c.Currency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': %v", c.Currency, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Language returns the parsed presentation locale. Call after Validate.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.BrazilianPortuguese
	}
	return tag
}

// CurrencyUnit returns the parsed presentation currency. Call after Validate.
func (c *Config) CurrencyUnit() currency.Unit {
	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return currency.BRL
	}
	return unit
}

// AMQPEnabled reports whether cycle events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}
