// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	SessionSecret string
	SessionTTL    time.Duration
	IPHashSalt    string

	PublicBaseURL  string
	// Browser origins allowed to call the API. Empty allows any origin
	// without credentials.
	CORSOrigins    []string
	UploadDir      string
	UploadMaxBytes int64

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	AMQPURL   string
	AMQPQueue string

	SeedFile      string
	AdminEmail    string
	AdminPassword string

	// Advertised to clients as the voting-config refetch interval.
	PollInterval time.Duration
}

// ParseFlags validates flags and fills the rest from the environment.
// A .env file in the working directory is loaded first if present;
// variables already set in the process environment win over it.
func ParseFlags(args []string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config

	fs := flag.NewFlagSet("bankass-awards", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "Session signing secret (prefer env)")
	fs.StringVar(&cfg.SeedFile, "seed", "", "YAML seed file for categories and candidates")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DatabaseSQLite
		}
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	cfg.IPHashSalt = os.Getenv("IP_HASH_SALT")
	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = cfg.SessionSecret
	}

	var err error
	if cfg.SessionTTL, err = envDuration("SESSION_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = envDuration("POLL_INTERVAL", 30*time.Second); err != nil {
		return Config{}, err
	}

	cfg.PublicBaseURL = envOr("PUBLIC_BASE_URL", "http://localhost:"+strconv.Itoa(cfg.Port))
	cfg.CORSOrigins = envList("CORS_ORIGINS")
	cfg.UploadDir = envOr("UPLOAD_DIR", "uploads")
	cfg.UploadMaxBytes = 5 << 20
	if v := os.Getenv("UPLOAD_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, errors.New("invalid UPLOAD_MAX_BYTES env variable")
		}
		cfg.UploadMaxBytes = n
	}

	cfg.MinIOEndpoint = os.Getenv("MINIO_ENDPOINT")
	cfg.MinIOAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.MinIOSecretKey = os.Getenv("MINIO_SECRET_KEY")
	cfg.MinIOBucket = envOr("MINIO_BUCKET", "bankass-uploads")
	cfg.MinIOUseSSL = os.Getenv("MINIO_USE_SSL") == "true"

	cfg.AMQPURL = os.Getenv("AMQP_URL")
	cfg.AMQPQueue = envOr("AMQP_QUEUE", "bankass.events")

	if cfg.SeedFile == "" {
		cfg.SeedFile = os.Getenv("SEED_FILE")
	}
	cfg.AdminEmail = os.Getenv("ADMIN_EMAIL")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key + " env variable")
	}
	return d, nil
}
