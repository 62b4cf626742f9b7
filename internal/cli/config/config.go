package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// FileName is the config file written by init
const FileName = "wpkgen.yaml"

// EnvPrefix prefixes environment overrides, e.g. WPKGEN_CACHE_BACKEND
const EnvPrefix = "WPKGEN"

// Config represents the wpkgen configuration
type Config struct {
	Plan   PlanConfig   `mapstructure:"plan" yaml:"plan"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	Build  BuildConfig  `mapstructure:"build" yaml:"build"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	Ledger LedgerConfig `mapstructure:"ledger" yaml:"ledger"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// PlanConfig locates the plan document
type PlanConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// OutputConfig controls what generate writes
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
	// Format is "json" or "json.gz"
	Format   string `mapstructure:"format" yaml:"format"`
	Metadata bool   `mapstructure:"metadata" yaml:"metadata"`
}

// Compressed reports whether output files are gzipped
func (o OutputConfig) Compressed() bool { return o.Format == "json.gz" }

// BuildConfig tunes the generator
type BuildConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
	// IncludeBaseController overrides the plan when "true" or "false"
	IncludeBaseController string `mapstructure:"include_base_controller" yaml:"include_base_controller,omitempty"`
}

// BaseControllerOverride returns nil when the plan decides
func (b BuildConfig) BaseControllerOverride() (*bool, error) {
	if b.IncludeBaseController == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(b.IncludeBaseController)
	if err != nil {
		return nil, fmt.Errorf("build.include_base_controller must be true or false, got %q", b.IncludeBaseController)
	}
	return &v, nil
}

// CacheConfig selects the artifact cache backend
type CacheConfig struct {
	// Backend is "memory", "redis" or "none"
	Backend string        `mapstructure:"backend" yaml:"backend"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Prefix  string        `mapstructure:"prefix" yaml:"prefix"`
	Size    int           `mapstructure:"size" yaml:"size"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig addresses the redis cache
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// LedgerConfig locates the build ledger database
type LedgerConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Driver is "sqlite3", "pgx" or "postgres"
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// ServerConfig represents compile service configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// JWTSecret enables bearer auth when set
	JWTSecret string          `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl" yaml:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	// Pprof mounts /debug/pprof and /debug/stats behind the debug scope
	Pprof bool `mapstructure:"pprof" yaml:"pprof"`
}

// RateLimitConfig throttles the compile endpoints per caller. Zero
// requests disables throttling. The allowance lives in redis when the
// cache does.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Plan:   PlanConfig{Path: "wpkgen.plan.yaml"},
		Output: OutputConfig{Dir: ".generated/php", Format: "json", Metadata: true},
		Build:  BuildConfig{Workers: 1},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
			Prefix:  "wpkgen:",
			Size:    128,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Ledger: LedgerConfig{Enabled: true, Driver: "sqlite3", DSN: ".wpkgen/builds.db"},
		Server: ServerConfig{
			Addr:      ":8080",
			TokenTTL:  24 * time.Hour,
			RateLimit: RateLimitConfig{Requests: 120, Window: time.Minute},
		},
		Log:    LogConfig{Level: "info"},
	}
}

// New creates a viper instance with every default registered. An empty
// file searches "." and $HOME/.wpkgen for wpkgen.{yaml,yml,json,toml}.
func New(file string) *viper.Viper {
	v := viper.New()

	d := Default()
	v.SetDefault("plan.path", d.Plan.Path)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.metadata", d.Output.Metadata)
	v.SetDefault("build.workers", d.Build.Workers)
	v.SetDefault("build.include_base_controller", d.Build.IncludeBaseController)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.prefix", d.Cache.Prefix)
	v.SetDefault("cache.size", d.Cache.Size)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("ledger.enabled", d.Ledger.Enabled)
	v.SetDefault("ledger.driver", d.Ledger.Driver)
	v.SetDefault("ledger.dsn", d.Ledger.DSN)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("server.token_ttl", d.Server.TokenTTL)
	v.SetDefault("server.rate_limit.requests", d.Server.RateLimit.Requests)
	v.SetDefault("server.rate_limit.window", d.Server.RateLimit.Window)
	v.SetDefault("server.pprof", d.Server.Pprof)
	v.SetDefault("log.level", d.Log.Level)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("wpkgen")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".wpkgen"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file, if any, and decodes v
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Write saves cfg as YAML, refusing to replace an existing file
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}

// LogLevel parses Log.Level
func (c *Config) LogLevel() (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return level, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Output.Format {
	case "json", "json.gz":
	default:
		return fmt.Errorf("output.format must be json or json.gz, got: %s", cfg.Output.Format)
	}
	switch cfg.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.backend must be memory, redis or none, got: %s", cfg.Cache.Backend)
	}
	switch cfg.Ledger.Driver {
	case "sqlite3", "pgx", "postgres":
	default:
		return fmt.Errorf("ledger.driver must be sqlite3, pgx or postgres, got: %s", cfg.Ledger.Driver)
	}
	if cfg.Build.Workers < 0 {
		return fmt.Errorf("build.workers must not be negative, got: %d", cfg.Build.Workers)
	}
	if cfg.Cache.Size < 1 {
		return fmt.Errorf("cache.size must be positive, got: %d", cfg.Cache.Size)
	}
	if rl := cfg.Server.RateLimit; rl.Requests < 0 || (rl.Requests > 0 && rl.Window <= 0) {
		return fmt.Errorf("server.rate_limit needs requests >= 0 and a positive window, got: %d per %s", rl.Requests, rl.Window)
	}
	if _, err := cfg.Build.BaseControllerOverride(); err != nil {
		return err
	}
	if _, err := cfg.LogLevel(); err != nil {
		return err
	}
	return nil
}
