package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. DECLMETA_OUTPUT_FORMAT.
const EnvPrefix = "DECLMETA"

// configNames are the file names searched for, in order.
var configNames = []string{"declmeta.yml", "declmeta.yaml"}

// ErrNoConfigFile is returned by FindConfigFile when no config file exists
// between the start directory and the file system root.
var ErrNoConfigFile = errors.New("no declmeta.yml found")

// Config represents the declmeta configuration
type Config struct {
	Output OutputConfig `mapstructure:"output"`
	Filter FilterConfig `mapstructure:"filter"`
	Docs   DocsConfig   `mapstructure:"docs"`
	Index  IndexConfig  `mapstructure:"index"`
	Serve  ServeConfig  `mapstructure:"serve"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Log    LogConfig    `mapstructure:"log"`
}

// OutputConfig controls how describe renders its result
type OutputConfig struct {
	Format   string `mapstructure:"format"`
	Path     string `mapstructure:"path"`
	Compress bool   `mapstructure:"compress"`
}

// FilterConfig selects the top-level declarations to expand
type FilterConfig struct {
	Include []string `mapstructure:"include"`
}

// DocsConfig configures documentation comment parsing
type DocsConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

// IndexConfig configures the definition index database
type IndexConfig struct {
	Driver string `mapstructure:"driver"`
	DB     string `mapstructure:"db"`
}

// ServeConfig configures the HTTP API
type ServeConfig struct {
	Address         string          `mapstructure:"address"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration   `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig budgets API requests per client. Zero requests disables
// limiting. The budget lives in Redis when cache.backend is redis.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// WatchConfig configures the fixture watcher
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// CacheConfig configures the rendered document cache
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

var (
	validFormats  = []string{"json", "yaml", "yml", "xml", "tree", "markdown"}
	validDrivers  = []string{"sqlite3", "postgres", "pgx"}
	validBackends = []string{"none", "memory", "redis"}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.format", "json")
	v.SetDefault("output.path", "")
	v.SetDefault("output.compress", false)
	v.SetDefault("filter.include", []string{})
	v.SetDefault("docs.cache_size", 512)
	v.SetDefault("index.driver", "sqlite3")
	v.SetDefault("index.db", "declmeta.db")
	v.SetDefault("serve.address", ":8090")
	v.SetDefault("serve.read_timeout", 15*time.Second)
	v.SetDefault("serve.write_timeout", 15*time.Second)
	v.SetDefault("serve.idle_timeout", 60*time.Second)
	v.SetDefault("serve.shutdown_timeout", 30*time.Second)
	v.SetDefault("serve.rate_limit.requests", 0)
	v.SetDefault("serve.rate_limit.window", time.Minute)
	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load loads the configuration. An explicit configFile must exist;
// otherwise declmeta.yml is searched for from the working directory
// upwards and defaults are used when none is found.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile == "" {
		found, err := FindConfigFile("")
		if err != nil && !errors.Is(err, ErrNoConfigFile) {
			return nil, err
		}
		configFile = found
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile looks for declmeta.yml (or .yaml) in start and its
// parents. An empty start means the working directory.
func FindConfigFile(start string) (string, error) {
	dir := start
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoConfigFile
		}
		dir = parent
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !oneOf(c.Output.Format, validFormats) {
		return fmt.Errorf("output.format must be one of %s, got: %s", strings.Join(validFormats, ", "), c.Output.Format)
	}
	if c.Docs.CacheSize < 0 {
		return fmt.Errorf("docs.cache_size must not be negative, got: %d", c.Docs.CacheSize)
	}
	if !oneOf(c.Index.Driver, validDrivers) {
		return fmt.Errorf("index.driver must be one of %s, got: %s", strings.Join(validDrivers, ", "), c.Index.Driver)
	}
	if strings.TrimSpace(c.Serve.Address) == "" {
		return fmt.Errorf("serve.address must not be empty")
	}
	if c.Serve.RateLimit.Requests < 0 {
		return fmt.Errorf("serve.rate_limit.requests must not be negative, got: %d", c.Serve.RateLimit.Requests)
	}
	if c.Serve.RateLimit.Requests > 0 && c.Serve.RateLimit.Window <= 0 {
		return fmt.Errorf("serve.rate_limit.window must be positive when rate limiting is enabled")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got: %s", c.Watch.Debounce)
	}
	if !oneOf(c.Cache.Backend, validBackends) {
		return fmt.Errorf("cache.backend must be one of %s, got: %s", strings.Join(validBackends, ", "), c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis backend")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
