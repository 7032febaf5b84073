// Package config loads the server configuration from layered sources:
// built-in defaults, an optional YAML file, then GEARSHOP_* environment
// variables, with later layers overriding earlier ones.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultPaths lists where config files are searched, in order. The first
// file found wins.
var DefaultPaths = []string{
	"gearshop.yaml",
	"gearshop.yml",
	"/etc/gearshop/config.yaml",
	"/etc/gearshop/config.yml",
}

// PathEnvVar overrides the config file search entirely.
const PathEnvVar = "GEARSHOP_CONFIG"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Auth      AuthConfig      `koanf:"auth"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// LoginRatePerMinute bounds login attempts per client address.
	LoginRatePerMinute int `koanf:"login_rate_per_minute"`
	LoginRateBurst     int `koanf:"login_rate_burst"`
}

type StorageConfig struct {
	// Backend selects the storage adapter: "memory" or "postgres".
	Backend  string         `koanf:"backend"`
	Postgres PostgresConfig `koanf:"postgres"`
}

type PostgresConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type AuthConfig struct {
	// JWTSecret signs session tokens. Required; at least 32 bytes.
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	// Hasher selects the password hasher: "bcrypt" or "pbkdf2".
	Hasher     string `koanf:"hasher"`
	BcryptCost int    `koanf:"bcrypt_cost"`
}

type CatalogConfig struct {
	AllowedCategories   []string `koanf:"allowed_categories"`
	PurgeableCategories []string `koanf:"purgeable_categories"`
}

type BootstrapConfig struct {
	Username string `koanf:"username"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

type LoggingConfig struct {
	// Verbosity is the logr V-level surfaced by the server, 0 or higher.
	Verbosity int `koanf:"verbosity"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8080",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			LoginRatePerMinute: 10,
			LoginRateBurst:     5,
		},
		Storage: StorageConfig{
			Backend: "memory",
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
			},
		},
		Auth: AuthConfig{
			TokenTTL:   time.Hour,
			Hasher:     "bcrypt",
			BcryptCost: 10,
		},
		Catalog: CatalogConfig{
			AllowedCategories:   []string{"keyboards", "mice", "headphones", "monitors", "speakers"},
			PurgeableCategories: []string{"watches", "clocks"},
		},
		Bootstrap: BootstrapConfig{
			Username: "superadmin",
			Email:    "superadmin@gmail.com",
			Password: "SuperAdmin123",
		},
		Logging: LoggingConfig{
			Verbosity: 0,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// GEARSHOP_* environment variables, in that order of precedence.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// GEARSHOP_STORAGE_BACKEND -> storage.backend, and so on.
	envProvider := env.Provider("GEARSHOP_", ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := normalizeSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(PathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps a GEARSHOP_-stripped, lowercased env var name to its
// config path. Unmapped variables are ignored so unrelated environment
// state cannot leak into the configuration.
var envMappings = map[string]string{
	"listen_addr":           "server.addr",
	"read_timeout":          "server.read_timeout",
	"write_timeout":         "server.write_timeout",
	"shutdown_timeout":      "server.shutdown_timeout",
	"login_rate_per_minute": "server.login_rate_per_minute",
	"login_rate_burst":      "server.login_rate_burst",

	"storage_backend":    "storage.backend",
	"postgres_dsn":       "storage.postgres.dsn",
	"postgres_max_open":  "storage.postgres.max_open_conns",
	"postgres_max_idle":  "storage.postgres.max_idle_conns",
	"postgres_conn_life": "storage.postgres.conn_max_lifetime",

	"jwt_secret":  "auth.jwt_secret",
	"token_ttl":   "auth.token_ttl",
	"hasher":      "auth.hasher",
	"bcrypt_cost": "auth.bcrypt_cost",

	"allowed_categories":   "catalog.allowed_categories",
	"purgeable_categories": "catalog.purgeable_categories",

	"bootstrap_username": "bootstrap.username",
	"bootstrap_email":    "bootstrap.email",
	"bootstrap_password": "bootstrap.password",

	"log_verbosity": "logging.verbosity",
}

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "GEARSHOP_"))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// sliceConfigPaths lists paths whose env values arrive as comma-separated
// strings and must be split before unmarshaling.
var sliceConfigPaths = []string{
	"catalog.allowed_categories",
	"catalog.purgeable_categories",
}

func normalizeSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Auth.Hasher {
	case "bcrypt", "pbkdf2":
	default:
		return fmt.Errorf("unknown password hasher %q", c.Auth.Hasher)
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if len(c.Catalog.AllowedCategories) == 0 {
		return fmt.Errorf("catalog.allowed_categories must not be empty")
	}
	if c.Bootstrap.Username == "" || c.Bootstrap.Email == "" || c.Bootstrap.Password == "" {
		return fmt.Errorf("bootstrap identity is incomplete")
	}
	return nil
}
