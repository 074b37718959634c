package config

import (
	"fmt"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Associations AssociationsConfig `yaml:"associations"`
	BattleNet    BattleNetConfig    `yaml:"battlenet"`
	Registration RegistrationConfig `yaml:"registration"`
	Session      SessionConfig      `yaml:"session"`
	State        StateConfig        `yaml:"state"`
	Templates    TemplatesConfig    `yaml:"templates"`
	Logging      LoggingConfig      `yaml:"logging"`
	Environment  string             `yaml:"environment" default:"local"` // local, dev, prod
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host      string `yaml:"host" default:"localhost"`
	Port      int    `yaml:"port" default:"8080"`
	AdminPort int    `yaml:"admin_port" default:"6060"` // health, readiness and metrics
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432"`
	Database string `yaml:"database" default:"bnetsso"`
	User     string `yaml:"user" default:"postgres"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode" default:"disable"` // disable, require, verify-ca, verify-full
}

// RedisConfig holds the connection for the redis association backend
type RedisConfig struct {
	Addr      string `yaml:"addr" default:"localhost:6379"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Association store backends
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// AssociationsConfig selects where externalId -> account mappings live
type AssociationsConfig struct {
	Backend string `yaml:"backend" default:"postgres"` // postgres, redis, memory
}

// BattleNetConfig holds the provider settings. All of key, secret, region
// and domain must be set for the provider to be enabled.
type BattleNetConfig struct {
	Key          string        `yaml:"key"`
	Secret       string        `yaml:"secret"`
	Region       string        `yaml:"region"`
	Domain       string        `yaml:"domain"` // public base URL, e.g. https://forum.example.com
	Scopes       []string      `yaml:"scopes,omitempty"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" default:"10s"`
}

// Enabled reports whether every required setting is present.
func (b BattleNetConfig) Enabled() bool {
	return b.Key != "" && b.Secret != "" && b.Region != "" && b.Domain != ""
}

// RegistrationConfig bounds the username accepted on the interstitial
type RegistrationConfig struct {
	UsernameMinLength int `yaml:"username_min_length" default:"2"`
	UsernameMaxLength int `yaml:"username_max_length" default:"16"`
}

// SessionConfig holds session configuration
type SessionConfig struct {
	Secret string `yaml:"secret"`                     // 32-byte base64-encoded string
	Store  string `yaml:"store" default:"filesystem"` // filesystem, cookie
	Path   string `yaml:"path"`                       // filesystem store directory, empty means os.TempDir
	MaxAge int    `yaml:"max_age" default:"604800"`   // seconds
}

// StateConfig configures the signed OAuth2 state parameter
type StateConfig struct {
	SigningKey string        `yaml:"signing_key"`
	Lifetime   time.Duration `yaml:"lifetime" default:"10m"`
}

// TemplatesConfig holds template loading configuration
type TemplatesConfig struct {
	Path string `yaml:"path" default:"web/templates"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`  // debug, info, warn, error
	Format string `yaml:"format" default:"text"` // json, text
	File   string `yaml:"file"`
}

// ConnectionString returns the PostgreSQL connection string
func (p *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Database.Postgres.Password = mask(c.Database.Postgres.Password)
	c.Redis.Password = mask(c.Redis.Password)
	c.BattleNet.Secret = mask(c.BattleNet.Secret)
	c.Session.Secret = mask(c.Session.Secret)
	c.State.SigningKey = mask(c.State.SigningKey)
	return c
}
