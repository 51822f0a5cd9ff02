// Package config provides configuration loading for the lost-and-found server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvJWTSecret    = "LOSTFOUND_JWT_SECRET"
	EnvSMTPPassword = "LOSTFOUND_SMTP_PASSWORD"
	EnvRedisPass    = "LOSTFOUND_REDIS_PASSWORD"
	EnvDatabasePath = "LOSTFOUND_DB"
	EnvAddr         = "LOSTFOUND_ADDR"
)

// Mail drivers.
const (
	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
	MailDriverNATS = "nats"
)

// Revocation backends.
const (
	RevocationSQLite = "sqlite"
	RevocationRedis  = "redis"
)

// Config represents the complete server configuration.
type Config struct {
	Server          ServerConfig   `yaml:"server"`
	Database        DatabaseConfig `yaml:"database"`
	FrontendBaseURL string         `yaml:"frontend_base_url"`
	Admin           AdminConfig    `yaml:"admin"`
	Mail            MailConfig     `yaml:"mail"`
	Auth            AuthConfig     `yaml:"auth"`
	Log             LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Debug exposes internal error text in 500 responses.
	Debug           bool          `yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AdminConfig describes the bootstrap administrator created on first run.
type AdminConfig struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// MailConfig configures outgoing email.
type MailConfig struct {
	Driver string     `yaml:"driver"`
	From   string     `yaml:"from"`
	Async  bool       `yaml:"async"`
	SMTP   SMTPConfig `yaml:"smtp"`
	NATS   NATSConfig `yaml:"nats"`
}

// SMTPConfig configures the SMTP relay.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig configures the NATS connection used to hand off email jobs.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// AuthConfig configures token handling.
type AuthConfig struct {
	Revocation string      `yaml:"revocation"`
	Redis      RedisConfig `yaml:"redis"`
	// JWTSecret overrides the secret persisted in the database.
	JWTSecret string `yaml:"-"`
}

// RedisConfig configures the Redis revocation backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File duplicates all log output when set.
	File string `yaml:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "lostfound.sqlite3",
		},
		FrontendBaseURL: "http://localhost:5173",
		Admin: AdminConfig{
			Email: "admin@campus.edu",
			Name:  "Administrator",
		},
		Mail: MailConfig{
			Driver: MailDriverLog,
			From:   "Campus Lost & Found <noreply@campus.edu>",
			Async:  true,
			SMTP: SMTPConfig{
				Port: 587,
			},
			NATS: NATSConfig{
				URL:     "nats://localhost:4222",
				Subject: "lostfound.mail",
			},
		},
		Auth: AuthConfig{
			Revocation: RevocationSQLite,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides secrets and a few common settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv(EnvSMTPPassword); v != "" {
		c.Mail.SMTP.Password = v
	}
	if v := getenv(EnvRedisPass); v != "" {
		c.Auth.Redis.Password = v
	}
	if v := getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("LOSTFOUND_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOSTFOUND_DEBUG: %w", err)
		}
		c.Server.Debug = debug
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	u, err := url.Parse(c.FrontendBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("frontend_base_url must be an absolute http(s) URL, got %q", c.FrontendBaseURL)
	}
	if c.Admin.Email == "" {
		return fmt.Errorf("admin.email is required")
	}

	switch c.Mail.Driver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.Mail.SMTP.Host == "" {
			return fmt.Errorf("mail.smtp.host is required for the smtp driver")
		}
		if c.Mail.SMTP.Port <= 0 || c.Mail.SMTP.Port > 65535 {
			return fmt.Errorf("mail.smtp.port must be between 1 and 65535")
		}
	case MailDriverNATS:
		if c.Mail.NATS.URL == "" || c.Mail.NATS.Subject == "" {
			return fmt.Errorf("mail.nats.url and mail.nats.subject are required for the nats driver")
		}
	default:
		return fmt.Errorf("unknown mail.driver %q", c.Mail.Driver)
	}

	switch c.Auth.Revocation {
	case RevocationSQLite:
	case RevocationRedis:
		if c.Auth.Redis.Addr == "" {
			return fmt.Errorf("auth.redis.addr is required for the redis revocation backend")
		}
	default:
		return fmt.Errorf("unknown auth.revocation %q", c.Auth.Revocation)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	return nil
}
