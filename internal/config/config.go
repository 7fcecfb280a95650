package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DevSessionSecret is the signing key used when SESSION_SECRET is not set.
// It is rejected in release mode.
const DevSessionSecret = "dev"

type Config struct {
	AppName       string
	AppEnv        string
	AppPort       string
	GinMode       string
	SessionSecret string

	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
}

type DBConfig struct {
	Driver   string // sqlite or pgx
	Path     string // sqlite database file
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host          string
	Port          string
	RedisPassword string
	RedisDB       string
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

// Enabled reports whether a RabbitMQ broker is configured.
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logrus.Info("Loaded configuration from .env")
	}

	return &Config{
		AppName:       getEnv("APP_NAME", "blog_app"),
		AppEnv:        getEnv("APP_ENV", "development"),
		AppPort:       getEnv("APP_PORT", "8087"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		SessionSecret: getEnv("SESSION_SECRET", DevSessionSecret),

		DB: DBConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Path:     getEnv("DB_PATH", "instance/blog.sqlite"),
			Host:     os.Getenv("DB_HOST"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:          os.Getenv("REDIS_HOST"),
			Port:          getEnv("REDIS_PORT", "6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnv("REDIS_DB", "0"),
		},

		RabbitMQ: RabbitMQConfig{
			URL:   os.Getenv("RABBITMQ_URL"),
			Queue: getEnv("RABBITMQ_QUEUE", "blog_events"),
		},
	}
}

// Validate checks settings that must not be left at their defaults.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "pgx":
		if c.DB.Host == "" || c.DB.Name == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for the pgx driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	if c.Redis.Enabled() {
		if _, err := strconv.Atoi(c.Redis.RedisDB); err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", c.Redis.RedisDB, err)
		}
	}

	if c.GinMode == "release" && (c.SessionSecret == "" || c.SessionSecret == DevSessionSecret) {
		return fmt.Errorf("SESSION_SECRET is required in release mode")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
