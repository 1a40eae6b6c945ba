// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loginsys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/loginsys")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	want := Default()
	want.Store.DatabaseURL = "postgres://localhost/loginsys"
	assert.Equal(t, want, cfg)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load("", nil)
	requireCode(t, err, "CONFIG_INVALID")
}

func TestLoad_MemoryStoreNeedsNoURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("", newFlags(t, "--store", "memory"))
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
http:
  addr: ":9000"
  request_timeout: 2s
  cors_origins: ["https://app.example"]
log:
  format: text
  level: debug
store:
  driver: redis
  redis_addr: "redis:6379"
password:
  min_length: 8
hash:
  time: 2
  memory_kib: 1024
  threads: 2
registration:
  initial_status: active
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 2*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, []string{"https://app.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "64K", cfg.HTTP.BodyLimit, "unset keys keep defaults")
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 8, cfg.Password.MinLength)
	assert.Equal(t, HashConfig{Time: 2, MemoryKiB: 1024, Threads: 2}, cfg.Hash)
	assert.Equal(t, "active", cfg.Registration.InitialStatus)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	requireCode(t, err, "CONFIG_READ_FAILED")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "store:\n  driver: memory\npassword:\n  min_length: 8\n")
	t.Setenv("LOGINSYS_PASSWORD_MIN_LENGTH", "12")
	t.Setenv("LOGINSYS_HTTP_REQUEST_TIMEOUT", "750ms")
	t.Setenv("LOGINSYS_HTTP_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LOGINSYS_UNKNOWN_THING", "ignored")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Password.MinLength)
	assert.Equal(t, 750*time.Millisecond, cfg.HTTP.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("LOGINSYS_STORE_DRIVER", "redis")
	t.Setenv("LOGINSYS_HTTP_ADDR", ":7000")

	cfg, err := Load("", newFlags(t, "--store=memory", "--auto-migrate"))
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.True(t, cfg.Store.AutoMigrate)
	assert.Equal(t, ":7000", cfg.HTTP.Addr, "unchanged flags must not mask env")
}

func TestLoad_DatabaseURLPrecedence(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://fallback/db")
	t.Setenv("LOGINSYS_STORE_DATABASE_URL", "postgres://primary/db")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary/db", cfg.Store.DatabaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad format":      "store:\n  driver: memory\nlog:\n  format: xml\n",
		"bad driver":      "store:\n  driver: sqlite\n",
		"zero min length": "store:\n  driver: memory\npassword:\n  min_length: 0\n",
		"bad status":      "store:\n  driver: memory\nregistration:\n  initial_status: suspended\n",
		"zero hash time":  "store:\n  driver: memory\nhash:\n  time: 0\n",
		"redis no addr":   "store:\n  driver: redis\n  redis_addr: \"\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body), nil)
			requireCode(t, err, "CONFIG_INVALID")
		})
	}
}

func TestEnvKey(t *testing.T) {
	known := keys()
	assert.Equal(t, "store.database_url", envKey("LOGINSYS_STORE_DATABASE_URL", known))
	assert.Equal(t, "hash.memory_kib", envKey("LOGINSYS_HASH_MEMORY_KIB", known))
	assert.Equal(t, "http.addr", envKey("LOGINSYS_HTTP_ADDR", known))
	assert.Empty(t, envKey("LOGINSYS_NOPE", known))
}

func TestKeys_CoverFlags(t *testing.T) {
	known := keys()
	for flag, key := range flagKeys {
		assert.Contains(t, known, key, "flag %s", flag)
	}
}
