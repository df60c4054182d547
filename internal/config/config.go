package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config mirrors config/config.yaml.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Facebook FacebookConfig `mapstructure:"facebook"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug/release/test
}

// DatabaseConfig PostgreSQL connection settings
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig summary cache backend. An empty Addr keeps the cache in process.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SummaryTTL time.Duration `mapstructure:"summary_ttl"`
}

// FacebookConfig Graph API client settings
type FacebookConfig struct {
	BaseURL           string   `mapstructure:"base_url"`
	APIVersion        string   `mapstructure:"api_version"`
	Timeout           int      `mapstructure:"timeout"` // seconds
	Proxy             string   `mapstructure:"proxy"`
	AccessToken       string   `mapstructure:"access_token"`
	Limit             int      `mapstructure:"limit"`
	Level             string   `mapstructure:"level"`
	Fields            []string `mapstructure:"fields"`
	Breakdowns        []string `mapstructure:"breakdowns"`
	RequestIntervalMS int      `mapstructure:"request_interval_ms"` // spacing between day fetches
	Burst             int      `mapstructure:"burst"`
}

// SyncConfig scheduled synchronization
type SyncConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Cron         string        `mapstructure:"cron"`
	LookbackDays int           `mapstructure:"lookback_days"`
	Workers      int           `mapstructure:"workers"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
}

// AuthConfig bearer token verification. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DefaultFields insights fields requested when none are configured.
var DefaultFields = []string{
	"account_id", "campaign_id", "campaign_name", "adset_id", "adset_name", "ad_id", "ad_name",
	"date_start", "date_stop", "spend", "impressions", "clicks", "reach", "frequency",
	"ctr", "cpc", "cpm", "actions", "action_values", "cost_per_action_type",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("redis.summary_ttl", 10*time.Minute)
	v.SetDefault("facebook.base_url", "https://graph.facebook.com")
	v.SetDefault("facebook.api_version", "v21.0")
	v.SetDefault("facebook.timeout", 30)
	v.SetDefault("facebook.limit", 500)
	v.SetDefault("facebook.level", "ad")
	v.SetDefault("facebook.fields", DefaultFields)
	v.SetDefault("facebook.breakdowns", []string{})
	v.SetDefault("facebook.request_interval_ms", 500)
	v.SetDefault("facebook.burst", 1)
	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.cron", "0 30 3 * * *")
	v.SetDefault("sync.lookback_days", 3)
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.run_timeout", 30*time.Minute)
}

// LoadConfig reads config/config.yaml; secrets are overridden from .env / the environment.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overrideFromEnv environment wins over yaml for sensitive values
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("FACEBOOK_ACCESS_TOKEN"); v != "" {
		cfg.Facebook.AccessToken = v
	}
	if v := os.Getenv("FACEBOOK_PROXY"); v != "" {
		cfg.Facebook.Proxy = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Facebook.Limit <= 0 {
		return fmt.Errorf("facebook.limit must be positive, got %d", c.Facebook.Limit)
	}
	switch c.Facebook.Level {
	case "":
		c.Facebook.Level = "ad"
	case "account", "campaign", "adset", "ad":
	default:
		return fmt.Errorf("facebook.level %q is not an insights level", c.Facebook.Level)
	}
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = 1
	}
	if c.Facebook.Burst <= 0 {
		c.Facebook.Burst = 1
	}
	return nil
}

// RequestInterval spacing between consecutive Graph API calls.
func (f *FacebookConfig) RequestInterval() time.Duration {
	if f.RequestIntervalMS <= 0 {
		return 0
	}
	return time.Duration(f.RequestIntervalMS) * time.Millisecond
}
