package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port      int `mapstructure:"port"`
	BodyLimit int `mapstructure:"body_limit"`
}

type StoreConfig struct {
	Driver      string        `mapstructure:"driver"` // memory, sqlite or postgres
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	Name        string        `mapstructure:"name"`
	PoolSize    int           `mapstructure:"pool_size"`
	Path        string        `mapstructure:"path"` // directory for SQLite database files
	SeedFile    string        `mapstructure:"seed_file"`
	MockLatency time.Duration `mapstructure:"mock_latency"`
}

type PublishConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type AuthConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

type SessionsConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type WebhookConfig struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// DSN returns the driver-specific data source name.
func (d StoreConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d StoreConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", 1<<20)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.name", "formcraft")
	v.SetDefault("store.pool_size", 10)
	v.SetDefault("store.path", "./data")
	v.SetDefault("store.mock_latency", "0s")
	v.SetDefault("publish.base_url", "https://formcraft.app/forms")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "changeme-secret")
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("sessions.idle_timeout", "2h")
	v.SetDefault("sessions.sweep_interval", "5m")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.max_attempts", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads app.yaml (if present), FORMCRAFT_* environment variables and
// the defaults above. An explicit path overrides the search locations.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("../..")
	}

	v.SetEnvPrefix("formcraft")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
