package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	Push       PushConfig       `mapstructure:"push"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// AdminToken guards the internal operations routes. Empty disables them.
	AdminToken string `mapstructure:"admin_token"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsMemory reports whether the in-memory driver is selected.
func (c *DatabaseConfig) IsMemory() bool {
	return c.Driver == "memory"
}

// RedisConfig holds Redis configuration. An empty address disables Redis.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IdentityConfig holds identity provider configuration.
type IdentityConfig struct {
	APIURL    string `mapstructure:"api_url"`
	SecretKey string `mapstructure:"secret_key"`
	// PublicKey is the PEM encoded RSA key used to verify session tokens.
	PublicKey string `mapstructure:"public_key"`
	// JWTSecret enables HS256 verification when no public key is set.
	JWTSecret string `mapstructure:"jwt_secret"`
	// Issuer, when set, must match the token "iss" claim.
	Issuer            string        `mapstructure:"issuer"`
	WebhookSecret     string        `mapstructure:"webhook_secret"`
	WebhookTolerance  time.Duration `mapstructure:"webhook_tolerance"`
	InviteRedirectURL string        `mapstructure:"invite_redirect_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// PushConfig holds push gateway configuration.
type PushConfig struct {
	URL         string        `mapstructure:"url"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  uint64        `mapstructure:"max_retries"`
}

// SchedulerConfig holds deadline reminder scheduler configuration.
type SchedulerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Spec            string        `mapstructure:"spec"`
	Timezone        string        `mapstructure:"timezone"`
	Concurrency     int           `mapstructure:"concurrency"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
	LedgerTTL       time.Duration `mapstructure:"ledger_ttl"`
}

// Location resolves the configured time zone.
func (c *SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// HTTPClientConfig holds outbound HTTP client configuration.
type HTTPClientConfig struct {
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	KeepAlive           time.Duration `mapstructure:"keep_alive"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// Enabled reports whether a Redis address is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Address != ""
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/crewboard")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("CREWBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Secrets are read from the environment even when a config file exists.
	if password := os.Getenv("CREWBOARD_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("CREWBOARD_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("CREWBOARD_IDENTITY_SECRET_KEY"); key != "" {
		cfg.Identity.SecretKey = key
	}
	if key := os.Getenv("CREWBOARD_IDENTITY_PUBLIC_KEY"); key != "" {
		cfg.Identity.PublicKey = key
	}
	if secret := os.Getenv("CREWBOARD_JWT_SECRET"); secret != "" {
		cfg.Identity.JWTSecret = secret
	}
	if secret := os.Getenv("CREWBOARD_WEBHOOK_SECRET"); secret != "" {
		cfg.Identity.WebhookSecret = secret
	}
	if token := os.Getenv("CREWBOARD_PUSH_ACCESS_TOKEN"); token != "" {
		cfg.Push.AccessToken = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Scheduler.Concurrency <= 0 {
		return fmt.Errorf("config: scheduler.concurrency must be positive")
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("config: scheduler.timezone: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.admin_token", "")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "crewboard")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Identity provider defaults
	// Keys without a default are invisible to AutomaticEnv on Unmarshal.
	v.SetDefault("identity.api_url", "https://api.clerk.com/v1")
	v.SetDefault("identity.secret_key", "")
	v.SetDefault("identity.public_key", "")
	v.SetDefault("identity.jwt_secret", "")
	v.SetDefault("identity.issuer", "")
	v.SetDefault("identity.webhook_secret", "")
	v.SetDefault("identity.invite_redirect_url", "")
	v.SetDefault("identity.webhook_tolerance", 5*time.Minute)
	v.SetDefault("identity.timeout", 10*time.Second)

	// Push gateway defaults
	v.SetDefault("push.url", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("push.access_token", "")
	v.SetDefault("push.timeout", 10*time.Second)
	v.SetDefault("push.max_retries", 2)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.spec", "0 9 * * *")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.concurrency", 8)
	v.SetDefault("scheduler.dispatch_timeout", 15*time.Second)
	v.SetDefault("scheduler.ledger_ttl", 48*time.Hour)

	// Outbound HTTP defaults
	v.SetDefault("http_client.dial_timeout", 5*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 5*time.Second)
	v.SetDefault("http_client.response_timeout", 30*time.Second)

	v.SetDefault("cors.allow_origins", []string{"*"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
