package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	// DBDriver selects the storage backend: "sqlite" (default) or "postgres".
	DBDriver    string
	SQLitePath  string
	DatabaseURL string

	// VerifyHandshake switches identity resolution from the compatibility
	// claim-peek to full HS256 verification; requires JWTSecret.
	VerifyHandshake bool
	JWTSecret       string

	// AllowAnonymous lets sockets without a resolved identity join rooms and
	// send messages. Off by default: unresolved sockets may only query
	// presence.
	AllowAnonymous bool

	CORSOrigins  []string
	HistoryLimit int
	Debug        bool
}

func Load() (*Config, error) {
	dbHost := getEnv("POSTGRES_HOST", "localhost")
	dbPort := getEnv("POSTGRES_PORT", "5432")
	dbUser := getEnv("POSTGRES_USER", "postgres")
	dbPass := getEnv("POSTGRES_PASSWORD", "postgres")
	dbName := getEnv("POSTGRES_DB", "carechat")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbUser, dbPass),
		Host:     fmt.Sprintf("%s:%s", dbHost, dbPort),
		Path:     dbName,
		RawQuery: "sslmode=disable",
	}

	cfg := &Config{
		AppName: getEnv("APP_NAME", "CareChat Gateway"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 8000),

		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		SQLitePath:  getEnv("SQLITE_PATH", "carechat.db"),
		DatabaseURL: u.String(),

		VerifyHandshake: getEnvAsBool("VERIFY_HANDSHAKE", false),
		JWTSecret:       os.Getenv("JWT_SECRET"),

		AllowAnonymous: getEnvAsBool("ALLOW_ANONYMOUS", false),

		HistoryLimit: getEnvAsInt("HISTORY_LIMIT", 200),
		Debug:        getEnvAsBool("DEBUG", true),
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("DB_DRIVER must be 'sqlite' or 'postgres', got %q", cfg.DBDriver)
	}
	if cfg.VerifyHandshake && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when VERIFY_HANDSHAKE is enabled")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
