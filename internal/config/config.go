// Package config loads application configuration from environment
// variables. A local .env file is honored when present; real deployments
// inject the environment directly.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Strings for identifiers and secrets, ints for
// durations and costs, bools for policy toggles.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	LogLevel        string // zerolog level (debug, info, warn, error)
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	JWTSecret       string // secret used to sign access tokens
	InternalKey     string // pre-shared secret expected from the gateway
	AccessTTLMin    int    // access token time-to-live in minutes
	RefreshTTLDays  int    // refresh session time-to-live in days
	VerifyTTLHours  int    // email-verification token time-to-live in hours
	BcryptCost      int    // bcrypt cost for password hashing
	RefreshRotate   bool   // rotate refresh sessions on every refresh call
	ReplayRevokeAll bool   // revoke all sessions when a revoked token is replayed
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must(); missing values cause
// the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"), // empty allowed
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		InternalKey:     must("INTERNAL_API_KEY"),
		AccessTTLMin:    envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:  envInt("REFRESH_TOKEN_TTL_DAYS", 30),
		VerifyTTLHours:  envInt("VERIFY_TOKEN_TTL_HOURS", 24),
		BcryptCost:      envInt("BCRYPT_COST", 12),
		RefreshRotate:   envBool("REFRESH_ROTATION", true),
		ReplayRevokeAll: envBool("REPLAY_REVOKE_ALL", true),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}
