package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the restaurant system
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `yaml:"port"`
	MigrationsPath  string `yaml:"migrations_path"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// RedisConfig holds the metrics cache connection configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// MetricsConfig holds billing and metrics cache settings
type MetricsConfig struct {
	TipPercentage    float64 `yaml:"tip_percentage"`
	CacheTTL         int     `yaml:"cache_ttl"`
	RealTimeCacheTTL int     `yaml:"real_time_cache_ttl"`
}

// Default returns the configuration used when a key is absent from both file and environment
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			MigrationsPath:  "migrations",
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "restaurant_user",
			Password: "restaurant_pass",
			Database: "restaurant_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Auth: AuthConfig{
			TokenTTLMinutes: 24 * 60,
		},
		Metrics: MetricsConfig{
			TipPercentage:    10,
			CacheTTL:         300,
			RealTimeCacheTTL: 60,
		},
	}
}

// Load reads configuration from a YAML file, then applies overrides from the
// environment and an optional .env file in the working directory.
func Load(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := Default()
	if err := config.loadFile(filename); err != nil {
		return nil, err
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) loadFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			currentSection = strings.TrimSuffix(line, ":")
			continue
		}

		if strings.Contains(line, ":") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := unquote(strings.TrimSpace(parts[1]))

			if err := c.setValue(currentSection, key, value); err != nil {
				return fmt.Errorf("failed to set config value %s.%s: %w", currentSection, key, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// envOverrides maps environment variables to config keys
var envOverrides = []struct {
	env     string
	section string
	key     string
}{
	{"PORT", "server", "port"},
	{"MIGRATIONS_PATH", "server", "migrations_path"},
	{"DB_HOST", "database", "host"},
	{"DB_PORT", "database", "port"},
	{"DB_USER", "database", "user"},
	{"DB_PASSWORD", "database", "password"},
	{"DB_NAME", "database", "database"},
	{"RABBITMQ_ENABLED", "rabbitmq", "enabled"},
	{"RABBITMQ_HOST", "rabbitmq", "host"},
	{"RABBITMQ_PORT", "rabbitmq", "port"},
	{"RABBITMQ_USER", "rabbitmq", "user"},
	{"RABBITMQ_PASSWORD", "rabbitmq", "password"},
	{"REDIS_ENABLED", "redis", "enabled"},
	{"REDIS_HOST", "redis", "host"},
	{"REDIS_PORT", "redis", "port"},
	{"REDIS_PASSWORD", "redis", "password"},
	{"REDIS_DB", "redis", "db"},
	{"JWT_SECRET", "auth", "jwt_secret"},
	{"TOKEN_TTL_MINUTES", "auth", "token_ttl_minutes"},
	{"TIP_PERCENTAGE", "metrics", "tip_percentage"},
	{"METRICS_CACHE_TTL", "metrics", "cache_ttl"},
	{"REAL_TIME_CACHE_TTL", "metrics", "real_time_cache_ttl"},
}

func (c *Config) applyEnv() error {
	for _, o := range envOverrides {
		value, ok := os.LookupEnv(o.env)
		if !ok || value == "" {
			continue
		}
		if err := c.setValue(o.section, o.key, value); err != nil {
			return fmt.Errorf("invalid environment variable %s: %w", o.env, err)
		}
	}
	return nil
}

// Validate checks values that would otherwise fail at runtime
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Metrics.TipPercentage < 0 || c.Metrics.TipPercentage > 100 {
		return fmt.Errorf("metrics.tip_percentage must be between 0 and 100")
	}
	if c.Metrics.CacheTTL <= 0 || c.Metrics.RealTimeCacheTTL <= 0 {
		return fmt.Errorf("metrics cache ttl values must be positive")
	}
	return nil
}

// setValue sets a configuration value based on section and key
func (c *Config) setValue(section, key, value string) error {
	switch section {
	case "server":
		return c.setServerValue(key, value)
	case "database":
		return c.setDatabaseValue(key, value)
	case "rabbitmq":
		return c.setRabbitMQValue(key, value)
	case "redis":
		return c.setRedisValue(key, value)
	case "auth":
		return c.setAuthValue(key, value)
	case "metrics":
		return c.setMetricsValue(key, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) setServerValue(key, value string) error {
	switch key {
	case "port":
		return setInt(&c.Server.Port, value)
	case "migrations_path":
		c.Server.MigrationsPath = value
	case "shutdown_timeout":
		return setInt(&c.Server.ShutdownTimeout, value)
	default:
		return fmt.Errorf("unknown server key: %s", key)
	}
	return nil
}

// setDatabaseValue sets database configuration values
func (c *Config) setDatabaseValue(key, value string) error {
	switch key {
	case "host":
		c.Database.Host = value
	case "port":
		return setInt(&c.Database.Port, value)
	case "user":
		c.Database.User = value
	case "password":
		c.Database.Password = value
	case "database":
		c.Database.Database = value
	default:
		return fmt.Errorf("unknown database key: %s", key)
	}
	return nil
}

// setRabbitMQValue sets RabbitMQ configuration values
func (c *Config) setRabbitMQValue(key, value string) error {
	switch key {
	case "enabled":
		return setBool(&c.RabbitMQ.Enabled, value)
	case "host":
		c.RabbitMQ.Host = value
	case "port":
		return setInt(&c.RabbitMQ.Port, value)
	case "user":
		c.RabbitMQ.User = value
	case "password":
		c.RabbitMQ.Password = value
	default:
		return fmt.Errorf("unknown rabbitmq key: %s", key)
	}
	return nil
}

func (c *Config) setRedisValue(key, value string) error {
	switch key {
	case "enabled":
		return setBool(&c.Redis.Enabled, value)
	case "host":
		c.Redis.Host = value
	case "port":
		return setInt(&c.Redis.Port, value)
	case "password":
		c.Redis.Password = value
	case "db":
		return setInt(&c.Redis.DB, value)
	default:
		return fmt.Errorf("unknown redis key: %s", key)
	}
	return nil
}

func (c *Config) setAuthValue(key, value string) error {
	switch key {
	case "jwt_secret":
		c.Auth.JWTSecret = value
	case "token_ttl_minutes":
		return setInt(&c.Auth.TokenTTLMinutes, value)
	default:
		return fmt.Errorf("unknown auth key: %s", key)
	}
	return nil
}

func (c *Config) setMetricsValue(key, value string) error {
	switch key {
	case "tip_percentage":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid tip_percentage value: %w", err)
		}
		c.Metrics.TipPercentage = v
	case "cache_ttl":
		return setInt(&c.Metrics.CacheTTL, value)
	case "real_time_cache_ttl":
		return setInt(&c.Metrics.RealTimeCacheTTL, value)
	default:
		return fmt.Errorf("unknown metrics key: %s", key)
	}
	return nil
}

func setInt(dst *int, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer value: %w", err)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean value: %w", err)
	}
	*dst = v
	return nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// RedisAddr returns the host:port address of the cache server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Metrics.CacheTTL) * time.Second
}

func (c *Config) RealTimeCacheTTL() time.Duration {
	return time.Duration(c.Metrics.RealTimeCacheTTL) * time.Second
}
