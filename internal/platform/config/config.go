package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Env  string
	Port string

	StorageBackend string
	DataDir        string
	DBDSN          string
	RedisURL       string
	KVPrefix       string

	JWTSecret  string
	SessionTTL time.Duration

	PushGatewayURL string
	PushGatewayKey string
	SchedulerTick  time.Duration

	AuthRatePerMin int
}

// Load lee .env (si existe) y luego variables de entorno.
func Load() (*Config, error) {
	// .env es opcional; en prod se usan variables del sistema.
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendFile)),
		DataDir:        getEnv("DATA_DIR", "data"),
		DBDSN:          getEnv("DB_DSN", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		KVPrefix:       getEnv("KV_PREFIX", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		PushGatewayURL: getEnv("PUSH_GATEWAY_URL", ""),
		PushGatewayKey: getEnv("PUSH_GATEWAY_KEY", ""),
		SchedulerTick:  getEnvDuration("SCHEDULER_TICK", time.Second),
		AuthRatePerMin: getEnvInt("AUTH_RATE_PER_MIN", 30),
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = "dev-secret-change-me"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) Validate() error {
	switch c.Env {
	case "development", "staging", "production":
	default:
		return errors.New("APP_ENV must be one of: development, staging, production")
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return errors.New("DATA_DIR is required when STORAGE_BACKEND=file")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			return errors.New("DB_DSN is required when STORAGE_BACKEND=postgres")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("REDIS_URL is required when STORAGE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required outside development")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SchedulerTick <= 0 {
		return errors.New("SCHEDULER_TICK must be positive")
	}
	if c.AuthRatePerMin <= 0 {
		return errors.New("AUTH_RATE_PER_MIN must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
