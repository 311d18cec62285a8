package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KEEL_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the runtime configuration of the keel binary.
type Config struct {
	Listen       string        `mapstructure:"listen" yaml:"listen"`
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
	Store        string        `mapstructure:"store" yaml:"store"`
	EvaluatorURL string        `mapstructure:"evaluator_url" yaml:"evaluator_url"`
	Debounce     time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Scope        string        `mapstructure:"scope" yaml:"scope"`
	Redis        RedisConfig   `mapstructure:"redis" yaml:"redis"`
	SQLite       SQLiteConfig  `mapstructure:"sqlite" yaml:"sqlite"`
}

// RedisConfig configures the redis store and session locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// SQLiteConfig configures the sqlite store.
type SQLiteConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Store:    BackendMemory,
		Debounce: 500 * time.Millisecond,
		Scope:    "GOVERNANCE",
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		SQLite: SQLiteConfig{
			DSN: "keel.db",
		},
	}
}

// envKeys maps environment variable suffixes to config paths.
var envKeys = map[string][]string{
	"LISTEN":         {"listen"},
	"LOG_LEVEL":      {"log_level"},
	"STORE":          {"store"},
	"EVALUATOR_URL":  {"evaluator_url"},
	"DEBOUNCE":       {"debounce"},
	"SCOPE":          {"scope"},
	"REDIS_ADDR":     {"redis", "addr"},
	"REDIS_PASSWORD": {"redis", "password"},
	"REDIS_DB":       {"redis", "db"},
	"REDIS_PREFIX":   {"redis", "prefix"},
	"REDIS_TTL":      {"redis", "ttl"},
	"SQLITE_DSN":     {"sqlite", "dsn"},
}

// Load builds a Config from defaults, an optional YAML file and the
// environment, in that order of precedence. An empty path skips the file.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	for suffix, keyPath := range envKeys {
		if v, ok := lookup(EnvPrefix + suffix); ok {
			set(raw, keyPath, v)
		}
	}

	cfg := Default()
	if err := Decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Decode applies raw settings onto cfg. Strings are converted weakly so
// values coming from the environment ("3", "2s") decode into typed fields.
func Decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store: unknown backend %q", c.Store))
	}
	if c.Store == BackendRedis && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr: required for the redis store"))
	}
	if c.Store == BackendSQLite && c.SQLite.DSN == "" {
		errs = append(errs, errors.New("sqlite.dsn: required for the sqlite store"))
	}
	if c.Debounce < 0 {
		errs = append(errs, errors.New("debounce: must not be negative"))
	}
	switch strings.ToUpper(c.Scope) {
	case "GOVERNANCE", "WIZARD", "JOB":
	default:
		errs = append(errs, fmt.Errorf("scope: unknown scope %q", c.Scope))
	}
	return errors.Join(errs...)
}

func set(raw map[string]any, path []string, v string) {
	m := raw
	for _, k := range path[:len(path)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}
