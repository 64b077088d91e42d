package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port         int           `mapstructure:"port" envconfig:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	// Driver selects the storage profile: "memory" for the single-user
	// desktop mode, "postgres" for the server mode.
	Driver   string `mapstructure:"driver" envconfig:"DB_DRIVER"`
	Host     string `mapstructure:"host" envconfig:"DB_HOST"`
	Port     int    `mapstructure:"port" envconfig:"DB_PORT"`
	User     string `mapstructure:"user" envconfig:"DB_USER"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
}

type SessionConfig struct {
	TTLSeconds int    `mapstructure:"ttl_seconds" envconfig:"SESSION_TTL_SECONDS"`
	JWTSecret  string `mapstructure:"jwt_secret" envconfig:"SESSION_JWT_SECRET"`
}

type RegistryConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl" envconfig:"REGISTRY_CACHE_TTL"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" envconfig:"REDIS_URL"`
}

type BlobConfig struct {
	CacheDir   string `mapstructure:"cache_dir" envconfig:"BLOB_CACHE_DIR"`
	CacheQuota int64  `mapstructure:"cache_quota_bytes" envconfig:"BLOB_CACHE_QUOTA_BYTES"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"RATE_LIMIT_RPS"`
	Burst             int     `mapstructure:"burst" envconfig:"RATE_LIMIT_BURST"`
}

type BootstrapConfig struct {
	AdminUsername string `mapstructure:"admin_username" envconfig:"BOOTSTRAP_ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"admin_password" envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Blob      BlobConfig      `mapstructure:"blob"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:  "memory",
			SSLMode: "disable",
		},
		Session:  SessionConfig{TTLSeconds: 7200},
		Registry: RegistryConfig{CacheTTL: 30 * time.Second},
		Blob: BlobConfig{
			CacheDir:   "./downloads",
			CacheQuota: 512 << 20,
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 100, Burst: 200},
	}
}

// LoadConfig reads config.yml (working dir or ./config), then applies
// environment overrides. A missing file is fine; defaults plus env
// carry the desktop profile.
func LoadConfig() (*Config, error) {
	config := defaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := viper.Unmarshal(&config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := envconfig.Process("clinic", &config); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if config.Session.JWTSecret == "" {
		return nil, fmt.Errorf("session.jwt_secret is required")
	}
	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}
