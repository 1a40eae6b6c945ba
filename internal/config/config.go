// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

// Package config loads process configuration. Sources are layered, later
// ones winning: built-in defaults, a YAML file, LOGINSYS_* environment
// variables, then command-line flags.
package config

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variable names.
const EnvPrefix = "LOGINSYS_"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config is the full process configuration.
type Config struct {
	HTTP         HTTPConfig         `koanf:"http"`
	Metrics      MetricsConfig      `koanf:"metrics"`
	Log          LogConfig          `koanf:"log"`
	Store        StoreConfig        `koanf:"store"`
	Password     PasswordConfig     `koanf:"password"`
	Hash         HashConfig         `koanf:"hash"`
	Registration RegistrationConfig `koanf:"registration"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	BodyLimit       string        `koanf:"body_limit" validate:"required"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" validate:"oneof=json text"`
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
}

// StoreConfig selects and configures the account store.
type StoreConfig struct {
	Driver         string        `koanf:"driver" validate:"oneof=postgres redis memory"`
	DatabaseURL    string        `koanf:"database_url" validate:"required_if=Driver postgres"`
	RedisAddr      string        `koanf:"redis_addr" validate:"required_if=Driver redis"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	AutoMigrate    bool          `koanf:"auto_migrate"`
}

// PasswordConfig is the password policy.
type PasswordConfig struct {
	MinLength int `koanf:"min_length" validate:"min=1,max=1024"`
}

// HashConfig holds the argon2id cost parameters.
type HashConfig struct {
	Time      uint32 `koanf:"time" validate:"min=1"`
	MemoryKiB uint32 `koanf:"memory_kib" validate:"min=8"`
	Threads   uint8  `koanf:"threads" validate:"min=1"`
}

// RegistrationConfig is the registration policy.
type RegistrationConfig struct {
	InitialStatus string `koanf:"initial_status" validate:"oneof=active pending_activation"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8000",
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       "64K",
			CORSOrigins:     []string{"*"},
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Store: StoreConfig{
			Driver:         DriverPostgres,
			RedisAddr:      "127.0.0.1:6379",
			ConnectTimeout: 30 * time.Second,
		},
		Password:     PasswordConfig{MinLength: 6},
		Hash:         HashConfig{Time: 1, MemoryKiB: 64 * 1024, Threads: 4},
		Registration: RegistrationConfig{InitialStatus: "pending_activation"},
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"store":        "store.driver",
	"database-url": "store.database_url",
	"auto-migrate": "store.auto_migrate",
}

// RegisterFlags adds the flags that override config keys to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String("http-addr", def.HTTP.Addr, "API listen address")
	fs.String("metrics-addr", def.Metrics.Addr, "metrics and health probe listen address (empty disables)")
	fs.String("log-format", def.Log.Format, "log format: json or text")
	fs.String("log-level", def.Log.Level, "log level: debug, info, warn or error")
	fs.String("store", def.Store.Driver, "account store: postgres, redis or memory")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.Bool("auto-migrate", false, "apply pending migrations at startup")
}

// Load reads configuration. path may be empty to skip the file. flags may be
// nil; only flags the user actually set override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
	}

	known := keys()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(name, value string) (string, any) {
			return envKey(name, known), value
		},
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			ZeroFields:       true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if cfg.Store.DatabaseURL == "" {
		cfg.Store.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fields []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields = append(fields, fe.Namespace()+" failed "+fe.Tag())
		}
	}
	return oops.Code("CONFIG_INVALID").With("fields", fields).Wrap(err)
}

// envKey maps LOGINSYS_STORE_DATABASE_URL to store.database_url by matching
// against the known keys, since key names themselves contain underscores.
// Unknown variables map to "" and are ignored.
func envKey(name string, known []string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	for _, key := range known {
		if strings.ReplaceAll(key, ".", "_") == trimmed {
			return key
		}
	}
	return ""
}

// keys lists every leaf key of Config in dotted form.
func keys() []string {
	var out []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := range t.NumField() {
			f := t.Field(i)
			tag := f.Tag.Get("koanf")
			if tag == "" {
				continue
			}
			key := prefix + tag
			if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Duration(0)) {
				walk(f.Type, key+".")
				continue
			}
			out = append(out, key)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return out
}
