// Package config loads tool configuration from TOML files.
package config

import (
	"context"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pomstack/pkg/cache"
	"github.com/matzehuels/pomstack/pkg/errors"
)

// Cache backend kinds.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheRedis  = "redis"
)

// Config is the full tool configuration. Zero values fall back to
// [Default] settings at load time.
type Config struct {
	Cache        CacheConfig  `toml:"cache"`
	HTTP         HTTPConfig   `toml:"http"`
	Server       ServerConfig `toml:"server"`
	Repositories []Repository `toml:"repositories"`

	// ActiveProfiles activates the named profiles for every resolution.
	ActiveProfiles []string `toml:"active_profiles"`

	// SettingsPath points at an external settings document consulted for
	// profile repositories.
	SettingsPath string `toml:"settings_path"`
}

// Repository is a configured remote repository, appended after
// descriptor-declared ones.
type Repository struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// CacheConfig selects and configures the descriptor byte cache.
type CacheConfig struct {
	Kind string   `toml:"kind"` // none, memory, file, redis
	Dir  string   `toml:"dir"`  // file backend
	Size int      `toml:"size"` // memory backend, entry count
	TTL  duration `toml:"ttl"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// HTTPConfig tunes the descriptor downloader.
type HTTPConfig struct {
	UserAgent  string   `toml:"user_agent"`
	MaxRetries int      `toml:"max_retries"`
	BaseDelay  duration `toml:"base_delay"`
	Timeout    duration `toml:"timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// duration wraps time.Duration with TOML string decoding ("30s", "5m").
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Duration returns the wrapped value.
func (d duration) Duration() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			Kind: CacheMemory,
			Size: 512,
			TTL:  duration(24 * time.Hour),
		},
		HTTP: HTTPConfig{
			UserAgent:  "pomstack",
			MaxRetries: 3,
			BaseDelay:  duration(500 * time.Millisecond),
			Timeout:    duration(30 * time.Second),
		},
		Server: ServerConfig{
			Addr: ":8673",
		},
	}
}

// Load reads a TOML configuration file on top of the defaults. A missing
// file is not an error; the defaults apply unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "reading config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parsing config %s", path)
	}
	return cfg, nil
}

// BuildCache constructs the configured cache backend. The context is used
// only for backends that verify connectivity at construction time.
func (c CacheConfig) BuildCache(ctx context.Context) (cache.Cache, error) {
	switch c.Kind {
	case "", CacheNone:
		return cache.NewNullCache(), nil
	case CacheMemory:
		size := c.Size
		if size <= 0 {
			size = 512
		}
		return cache.NewMemoryCache(size)
	case CacheFile:
		return cache.NewFileCache(c.Dir)
	case CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
		})
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache kind %q", c.Kind)
	}
}
