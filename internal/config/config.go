package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName       string `mapstructure:"app_name"`
	Env           string `mapstructure:"app_env"`
	LogLevel      string `mapstructure:"log_level"`
	PlatformsFile string `mapstructure:"platforms_file"`
	NotifiersFile string `mapstructure:"notifiers_file"`
	OutputDir     string `mapstructure:"output_dir"`

	MaxRetries     int           `mapstructure:"max_retries"`
	TimeoutSeconds int64         `mapstructure:"timeout_seconds"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	RetryDelayMs   int64         `mapstructure:"retry_delay_ms"`
	Timeout        time.Duration `mapstructure:"-"`
	RetryDelay     time.Duration `mapstructure:"-"`

	CacheType       string        `mapstructure:"cache_type"`
	CachePath       string        `mapstructure:"cache_path"`
	CacheTTLSeconds int64         `mapstructure:"cache_ttl_seconds"`
	CacheTTL        time.Duration `mapstructure:"-"`
	ProbeWindowDays int           `mapstructure:"probe_window_days"`

	HarvestIntervalSeconds int64         `mapstructure:"harvest_interval"`
	HarvestInterval        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with command line flags taking precedence over the
// environment. Flag names use dashes in place of the config key underscores.
func LoadWithFlags(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-epaper-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("platforms_file", "./configs/platforms.yaml")
	v.SetDefault("notifiers_file", "")
	v.SetDefault("output_dir", "./downloads")
	v.SetDefault("max_retries", 3)
	v.SetDefault("timeout_seconds", 60)
	v.SetDefault("chunk_size", 8192)
	v.SetDefault("retry_delay_ms", 0)
	v.SetDefault("cache_type", "bbolt")
	v.SetDefault("cache_path", "./data/availability.db")
	v.SetDefault("cache_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("probe_window_days", 7)
	v.SetDefault("harvest_interval", int64((6*time.Hour)/time.Second))

	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil || !f.Changed {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("invalid max_retries (must be positive)")
	}
	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid timeout_seconds (must be positive seconds)")
	}
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk_size (must be positive bytes)")
	}
	if cfg.RetryDelayMs < 0 {
		return fmt.Errorf("invalid retry_delay_ms (must not be negative)")
	}
	if cfg.ProbeWindowDays <= 0 {
		return fmt.Errorf("invalid probe_window_days (must be positive)")
	}
	if cfg.CacheTTLSeconds <= 0 {
		return fmt.Errorf("invalid cache_ttl_seconds (must be positive seconds)")
	}
	if cfg.HarvestIntervalSeconds <= 0 {
		return fmt.Errorf("invalid harvest_interval (must be positive seconds)")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return fmt.Errorf("output_dir must not be empty")
	}

	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	cfg.RetryDelay = time.Duration(cfg.RetryDelayMs) * time.Millisecond
	cfg.CacheTTL = time.Duration(cfg.CacheTTLSeconds) * time.Second
	cfg.HarvestInterval = time.Duration(cfg.HarvestIntervalSeconds) * time.Second
	return nil
}
