package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultServerPort      = "8080"
	defaultTempPassword    = "123456"
	defaultLoginRatePerMin = 20
)

// AppConfig holds process-wide settings read from the environment.
type AppConfig struct {
	JWTSecret            string
	ServerPort           string
	DefaultPassword      string
	CORSOrigins          []string
	LogLevel             string
	LogFormat            string
	LoginRatePerMinute   int
	InitialAdminUsername string
	InitialAdminPassword string
}

// LoadEnv loads a .env file if one exists. It reports whether it did.
func LoadEnv() bool {
	return godotenv.Load() == nil
}

// LoadAppConfig reads AppConfig from the environment. A missing
// JWT_SECRET_KEY is an error: the server cannot sign tokens without it.
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		JWTSecret:            os.Getenv("JWT_SECRET_KEY"),
		ServerPort:           getEnv("SERVER_PORT", defaultServerPort),
		DefaultPassword:      getEnv("DEFAULT_PASSWORD", defaultTempPassword),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		LoginRatePerMinute:   defaultLoginRatePerMin,
		InitialAdminUsername: os.Getenv("INITIAL_ADMIN_USERNAME"),
		InitialAdminPassword: os.Getenv("INITIAL_ADMIN_PASSWORD"),
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY not set in environment")
	}

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if v := os.Getenv("LOGIN_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid LOGIN_RATE_PER_MINUTE %q", v)
		}
		cfg.LoginRatePerMinute = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
