// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// HTTPConfig holds settings for the public HTTP API server.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// ObservabilityConfig holds settings for the metrics and health endpoint server.
// An empty Addr disables the server.
type ObservabilityConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig holds PostgreSQL connection settings. When URL is empty,
// the DATABASE_URL environment variable is consulted.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config is the root configuration for the memberlane service.
type Config struct {
	HTTP          HTTPConfig          `koanf:"http"`
	Observability ObservabilityConfig `koanf:"observability"`
	Database      DatabaseConfig      `koanf:"database"`
	Session       SessionConfig       `koanf:"session"`
	Log           LogConfig           `koanf:"log"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		HTTP:          HTTPConfig{Addr: ":8080"},
		Observability: ObservabilityConfig{Addr: "127.0.0.1:9090"},
		Session: SessionConfig{
			TTL:           24 * time.Hour,
			PurgeInterval: time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// envPrefix is stripped from environment variables before mapping them onto
// config keys. MEMBERLANE_HTTP_ADDR maps to http.addr.
const envPrefix = "MEMBERLANE_"

// Load builds a Config from defaults, then the YAML file at path (if path is
// non-empty), then MEMBERLANE_* environment variables, then any flags that
// were set on flags (if non-nil). Each layer wins over the previous one.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.
				Code("CONFIG_FILE_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, oops.
			Code("CONFIG_ENV_LOAD_FAILED").
			Wrap(err)
	}

	if flags != nil {
		// Passing k makes unchanged flags defer to values already loaded
		// from the file.
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.
				Code("CONFIG_FLAGS_LOAD_FAILED").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.
			Code("CONFIG_UNMARSHAL_FAILED").
			Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}

// Validate checks that the configuration is complete enough to run the
// service.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.
			Code("CONFIG_INVALID").
			Errorf("database URL is required (set database.url or DATABASE_URL)")
	}
	if c.HTTP.Addr == "" {
		return oops.
			Code("CONFIG_INVALID").
			Errorf("HTTP listen address is required")
	}
	if c.Session.TTL <= 0 {
		return oops.
			Code("CONFIG_INVALID").
			With("ttl", c.Session.TTL.String()).
			Errorf("session TTL must be positive")
	}
	return nil
}
