package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// DefaultConfigPaths defines the default locations to search for configuration files
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./configs/config.yaml",
	"./configs/config.yml",
	"./configs/development.yaml",
	"/etc/bnetsso/config.yaml",
	"/etc/bnetsso/config.yml",
}

// Defaults returns a configuration populated with built-in defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8080,
			AdminPort: 6060,
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "bnetsso",
				User:     "postgres",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Associations: AssociationsConfig{
			Backend: BackendPostgres,
		},
		BattleNet: BattleNetConfig{
			Scopes:       []string{"wow.profile"},
			FetchTimeout: 10 * time.Second,
		},
		Registration: RegistrationConfig{
			UsernameMinLength: 2,
			UsernameMaxLength: 16,
		},
		Session: SessionConfig{
			Store:  "filesystem",
			MaxAge: 7 * 24 * 3600,
		},
		State: StateConfig{
			Lifetime: 10 * time.Minute,
		},
		Templates: TemplatesConfig{
			Path: "web/templates",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Environment: "local",
	}
}

// Load loads the configuration from the specified file or default locations
func Load(configPath string) (*Config, error) {
	config := Defaults()

	// If no config path is provided, search in default locations
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" && fileExists(configPath) {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if configPath != "" {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	// Environment variables take precedence for secrets
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		config.Session.Secret = secret
	}
	if secret := os.Getenv("BATTLENET_SECRET"); secret != "" {
		config.BattleNet.Secret = secret
	}

	config.BattleNet.Region = strings.ToLower(strings.TrimSpace(config.BattleNet.Region))
	config.BattleNet.Domain = strings.TrimRight(strings.TrimSpace(config.BattleNet.Domain), "/")

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// findConfigFile searches for a configuration file in default locations
func findConfigFile() string {
	for _, path := range DefaultConfigPaths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// validate performs basic validation on the configuration
func validate(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if config.Server.AdminPort < 0 || config.Server.AdminPort > 65535 {
		return fmt.Errorf("server.admin_port must be between 0 and 65535")
	}

	switch config.Associations.Backend {
	case BackendPostgres:
		if config.Database.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if config.Database.Postgres.Database == "" {
			return fmt.Errorf("postgres database name is required")
		}
		if config.Database.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	case BackendRedis:
		if config.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("associations.backend must be one of postgres, redis, memory (got %q)", config.Associations.Backend)
	}

	reg := config.Registration
	if reg.UsernameMinLength < 1 {
		return fmt.Errorf("registration.username_min_length must be at least 1")
	}
	if reg.UsernameMaxLength < reg.UsernameMinLength {
		return fmt.Errorf("registration.username_max_length must be >= username_min_length")
	}

	if config.BattleNet.FetchTimeout <= 0 {
		return fmt.Errorf("battlenet.fetch_timeout must be positive")
	}
	if config.State.Lifetime <= 0 {
		return fmt.Errorf("state.lifetime must be positive")
	}

	switch config.Session.Store {
	case "filesystem", "cookie":
	default:
		return fmt.Errorf("session.store must be filesystem or cookie (got %q)", config.Session.Store)
	}

	return nil
}
