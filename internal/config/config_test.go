// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberlane/memberlane/pkg/errutil"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "127.0.0.1:9090", cfg.Observability.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, time.Hour, cfg.Session.PurgeInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
http:
  addr: ":9999"
session:
  ttl: 1h
log:
  level: debug
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults
	assert.Equal(t, "127.0.0.1:9090", cfg.Observability.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, `
http:
  addr: ":9999"
`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("http.addr", ":8080", "")
	flags.String("log.level", "info", "")
	require.NoError(t, flags.Parse([]string{"--http.addr", ":7777"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	// Explicitly set flag wins over the file
	assert.Equal(t, ":7777", cfg.HTTP.Addr)
	// Unchanged flag does not clobber the default
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_FILE_LOAD_FAILED")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("MEMBERLANE_HTTP_ADDR", ":6666")
	t.Setenv("MEMBERLANE_LOG_LEVEL", "warn")
	path := writeConfigFile(t, `
http:
  addr: ":9999"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":6666", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_DatabaseURLFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/memberlane")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-host/memberlane", cfg.Database.URL)
}

func TestLoad_FileDatabaseURLWinsOverEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/memberlane")
	path := writeConfigFile(t, `
database:
  url: postgres://file-host/memberlane
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file-host/memberlane", cfg.Database.URL)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost/memberlane"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("missing database URL", func(t *testing.T) {
		cfg := valid()
		cfg.Database.URL = ""
		err := cfg.Validate()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("missing HTTP addr", func(t *testing.T) {
		cfg := valid()
		cfg.HTTP.Addr = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("non-positive TTL", func(t *testing.T) {
		cfg := valid()
		cfg.Session.TTL = 0
		require.Error(t, cfg.Validate())
	})
}
