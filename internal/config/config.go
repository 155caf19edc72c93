// Package config loads application configuration from command-line flags,
// environment variables, a .env file and an optional YAML file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quillpost/quillpost-server/internal/logger"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Logger   LoggerConfig   `yaml:"logger"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Search   SearchConfig   `yaml:"search"`
	Redis    RedisConfig    `yaml:"redis"`
	AMQP     AMQPConfig     `yaml:"amqp"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `yaml:"environment"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// AuthConfig holds operator credentials and session settings.
// Empty values are allowed here; they fail per request.
type AuthConfig struct {
	Secret             string `yaml:"secret"`
	AdminUsername      string `yaml:"admin_username"`
	AdminPassword      string `yaml:"admin_password"`
	LoginRatePerMinute int    `yaml:"login_rate_per_minute"`
	LoginBurst         int    `yaml:"login_burst"`
}

// DatabaseConfig selects the article store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite or postgres
	URL      string `yaml:"url"`    // postgres DSN, or sqlite file path
	DataPath string `yaml:"data_path"`
}

// StorageConfig selects and configures the upload backend.
type StorageConfig struct {
	Provider        string `yaml:"provider"`
	PublicRoot      string `yaml:"public_root"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Bucket          string `yaml:"bucket"`
	PublicBaseURL   string `yaml:"public_base_url"`
	// Path-style addressing (host/bucket/key) for MinIO and similar endpoints.
	UsePathStyle bool `yaml:"use_path_style"`
}

// SearchConfig holds full-text index settings.
type SearchConfig struct {
	IndexPath string `yaml:"index_path"`
}

// RedisConfig configures the optional listing cache.
type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// AMQPConfig configures the optional article event publisher.
type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// SQLitePath returns the database file used by the sqlite driver.
func (c *Config) SQLitePath() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return filepath.Join(c.Database.DataPath, "quillpost.db")
}

func defaults() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Auth: AuthConfig{
			LoginRatePerMinute: 10,
			LoginBurst:         5,
		},
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			DataPath: "data",
		},
		Storage: StorageConfig{
			Provider:   "local",
			PublicRoot: "public",
		},
		Redis: RedisConfig{TTL: 60 * time.Second},
		AMQP: AMQPConfig{
			Exchange:   "quillpost",
			RoutingKey: "articles",
		},
	}
}

// LoadConfig loads configuration using the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. YAML file named by -config or CONFIG_FILE, with ${VAR} expansion.
// 5. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fset := flag.NewFlagSet("quillpost", flag.ContinueOnError)

	configPath := fset.String("config", "", "Path to YAML config file")
	envFile := fset.String("env-file", ".env", "Path to .env file")
	env := fset.String("env", "", "Environment (development, staging, production)")
	logLevel := fset.String("log-level", "", "Log level (debug, info, warn, error)")
	port := fset.String("port", "", "Server port (default: 8080)")
	dbDriver := fset.String("db-driver", "", "Database driver (sqlite, postgres)")
	dbURL := fset.String("db-url", "", "Database URL or sqlite file path")
	dataPath := fset.String("data-path", "", "Directory for the sqlite database and search index")
	publicRoot := fset.String("public-root", "", "Directory served at / for local uploads")
	storageProvider := fset.String("storage-provider", "", "Upload backend (local, s3, oss)")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	// Existing environment variables win over the .env file.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	file := defaults()
	if path := getConfigValue(*configPath, "CONFIG_FILE", ""); path != "" {
		if err := readYAML(path, file); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", file.App.Environment),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", file.Logger.Level),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*port, "SERVER_PORT", file.Server.Port),
			CORSOrigins: getListConfigValue("CORS_ORIGINS", file.Server.CORSOrigins),
		},
		Auth: AuthConfig{
			Secret:        getConfigValue("", "AUTH_SECRET", file.Auth.Secret),
			AdminUsername: getConfigValue("", "ADMIN_USERNAME", file.Auth.AdminUsername),
			AdminPassword: getConfigValue("", "ADMIN_PASSWORD", file.Auth.AdminPassword),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getConfigValue(*dbDriver, "DATABASE_DRIVER", file.Database.Driver)),
			URL:      getConfigValue(*dbURL, "DATABASE_URL", file.Database.URL),
			DataPath: getConfigValue(*dataPath, "DATA_PATH", file.Database.DataPath),
		},
		Storage: StorageConfig{
			Provider:        getConfigValue(*storageProvider, "STORAGE_PROVIDER", file.Storage.Provider),
			PublicRoot:      getConfigValue(*publicRoot, "PUBLIC_ROOT", file.Storage.PublicRoot),
			Region:          getConfigValue("", "STORAGE_REGION", getConfigValue("", "OSS_REGION", file.Storage.Region)),
			Endpoint:        getConfigValue("", "STORAGE_ENDPOINT", file.Storage.Endpoint),
			AccessKeyID:     getConfigValue("", "STORAGE_ACCESS_KEY_ID", getConfigValue("", "OSS_ACCESS_KEY_ID", file.Storage.AccessKeyID)),
			AccessKeySecret: getConfigValue("", "STORAGE_ACCESS_KEY_SECRET", getConfigValue("", "OSS_ACCESS_KEY_SECRET", file.Storage.AccessKeySecret)),
			Bucket:          getConfigValue("", "STORAGE_BUCKET", getConfigValue("", "OSS_BUCKET", file.Storage.Bucket)),
			PublicBaseURL:   getConfigValue("", "STORAGE_PUBLIC_BASE_URL", getConfigValue("", "OSS_PUBLIC_URL", file.Storage.PublicBaseURL)),
		},
		Search: SearchConfig{
			IndexPath: getConfigValue("", "SEARCH_INDEX_PATH", file.Search.IndexPath),
		},
		Redis: RedisConfig{
			URL: getConfigValue("", "REDIS_URL", file.Redis.URL),
		},
		AMQP: AMQPConfig{
			URL:        getConfigValue("", "AMQP_URL", file.AMQP.URL),
			Exchange:   getConfigValue("", "AMQP_EXCHANGE", file.AMQP.Exchange),
			RoutingKey: getConfigValue("", "AMQP_ROUTING_KEY", file.AMQP.RoutingKey),
		},
	}

	var err error
	if cfg.Auth.LoginRatePerMinute, err = getIntConfigValue("LOGIN_RATE_PER_MINUTE", file.Auth.LoginRatePerMinute); err != nil {
		return nil, err
	}
	if cfg.Auth.LoginBurst, err = getIntConfigValue("LOGIN_BURST", file.Auth.LoginBurst); err != nil {
		return nil, err
	}

	if cfg.Storage.UsePathStyle, err = getBoolConfigValue("STORAGE_PATH_STYLE", file.Storage.UsePathStyle); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout, file.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout, file.Server.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout, file.Server.IdleTimeout},
		{"REDIS_TTL", &cfg.Redis.TTL, file.Redis.TTL},
	}
	for _, d := range durations {
		if *d.dst, err = getDurationConfigValue(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.Search.IndexPath == "" {
		cfg.Search.IndexPath = filepath.Join(cfg.Database.DataPath, "search")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks values that must be correct at startup. Credentials are
// not checked; a missing secret fails the request that needs it.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	if !logger.ValidLevel(c.Logger.Level) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.URL == "" && c.Database.DataPath == "" {
			return errors.New("DATA_PATH or DATABASE_URL is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite or postgres)", c.Database.Driver)
	}

	if c.Auth.LoginRatePerMinute <= 0 || c.Auth.LoginBurst <= 0 {
		return errors.New("LOGIN_RATE_PER_MINUTE and LOGIN_BURST must be positive")
	}

	return nil
}

// readYAML overlays the file at path onto cfg.
func readYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //#nosec G304 -- config path is operator input
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getListConfigValue splits a comma-separated env var, dropping blanks.
func getListConfigValue(envKey string, defaultValue []string) []string {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getIntConfigValue(envKey string, defaultValue int) (int, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return v, nil
}

func getBoolConfigValue(envKey string, defaultValue bool) (bool, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return v, nil
}

func getDurationConfigValue(envKey string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return d, nil
}
