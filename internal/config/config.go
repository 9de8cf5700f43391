// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

// Package config loads armory configuration.
//
// Sources are layered lowest to highest: built-in defaults, an optional YAML
// file, the DATABASE_URL environment variable, then command-line flags that
// the user explicitly set.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Preferred character capability modes.
const (
	PreferredAuto     = "auto"
	PreferredDisabled = "disabled"
)

// MinSessionKeyLength is the shortest accepted cookie signing key.
const MinSessionKeyLength = 32

// Config is the full armory configuration.
type Config struct {
	Listen      string         `koanf:"listen"`
	MetricsAddr string         `koanf:"metrics_addr"`
	LogFormat   string         `koanf:"log_format"`
	LogLevel    string         `koanf:"log_level"`
	Session     SessionConfig  `koanf:"session"`
	Database    DatabaseConfig `koanf:"database"`
	Schema      SchemaConfig   `koanf:"schema"`
}

// SessionConfig configures the login cookie.
type SessionConfig struct {
	Key    string        `koanf:"key"`
	MaxAge time.Duration `koanf:"max_age"`
	Secure bool          `koanf:"secure"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL              string        `koanf:"url"`
	StatementTimeout time.Duration `koanf:"statement_timeout"`
	ConnectRetries   uint64        `koanf:"connect_retries"`
}

// SchemaConfig controls optional schema features.
type SchemaConfig struct {
	// PreferredCharacter is "auto" to probe for users.preferred_character_id
	// or "disabled" to treat it as absent.
	PreferredCharacter string `koanf:"preferred_character"`
}

var defaults = map[string]any{
	"listen":                     ":8080",
	"metrics_addr":               "127.0.0.1:9100",
	"log_format":                 "json",
	"log_level":                  "info",
	"session.max_age":            7 * 24 * time.Hour,
	"session.secure":             true,
	"database.statement_timeout": 30 * time.Second,
	"database.connect_retries":   uint64(5),
	"schema.preferred_character": PreferredAuto,
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"listen":              "listen",
	"metrics-addr":        "metrics_addr",
	"log-format":          "log_format",
	"log-level":           "log_level",
	"database-url":        "database.url",
	"preferred-character": "schema.preferred_character",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("listen", defaults["listen"].(string), "HTTP listen address")
	fs.String("metrics-addr", defaults["metrics_addr"].(string), "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", defaults["log_format"].(string), "log format (json or text)")
	fs.String("log-level", defaults["log_level"].(string), "log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	fs.String("preferred-character", PreferredAuto, "preferred character column handling (auto or disabled)")
}

// Load builds a Config from defaults, path, getenv and fs. path and fs may be
// empty or nil. Only flags the user changed override lower layers.
func Load(path string, fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read config file").
				With("path", path).
				Wrap(err)
		}
	}

	if getenv != nil {
		if url := getenv("DATABASE_URL"); url != "" {
			if err := k.Set("database.url", url); err != nil {
				return nil, oops.Code("CONFIG_INVALID").With("key", "database.url").Wrap(err)
			}
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read flags").
				Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "decode config").
			Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	invalid := oops.Code("CONFIG_INVALID")

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid.With("key", "log_format").
			Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid.With("key", "log_level").
			Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.Schema.PreferredCharacter {
	case PreferredAuto, PreferredDisabled:
	default:
		return invalid.With("key", "schema.preferred_character").
			Errorf("schema.preferred_character must be %q or %q, got %q",
				PreferredAuto, PreferredDisabled, c.Schema.PreferredCharacter)
	}
	if c.Database.StatementTimeout < 0 {
		return invalid.With("key", "database.statement_timeout").
			Errorf("database.statement_timeout cannot be negative")
	}
	return nil
}

// RequireDatabase checks that a database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database.url or DATABASE_URL is required")
	}
	return nil
}

// ValidateServe checks the additional settings the HTTP server needs.
func (c *Config) ValidateServe() error {
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	invalid := oops.Code("CONFIG_INVALID")
	if c.Listen == "" {
		return invalid.With("key", "listen").Errorf("listen is required")
	}
	if len(c.Session.Key) < MinSessionKeyLength {
		return invalid.With("key", "session.key").
			Errorf("session.key must be at least %d bytes", MinSessionKeyLength)
	}
	if c.Session.MaxAge <= 0 {
		return invalid.With("key", "session.max_age").
			Errorf("session.max_age must be positive")
	}
	return nil
}
