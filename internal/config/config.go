package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	RunMigrations   bool
	SessionLifetime time.Duration
	CookieSecure    bool
	AdminUsername   string
	AdminPassword   string
	UploadBackend   string
	UploadDir       string
	S3Bucket        string
	S3PublicURL     string
}

// Load reads .env (if present) and then the process environment
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8090"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RunMigrations:   os.Getenv("RUN_MIGRATIONS") == "true",
		SessionLifetime: 24 * time.Hour,
		CookieSecure:    os.Getenv("COOKIE_SECURE") == "true",
		AdminUsername:   os.Getenv("ADMIN_USERNAME"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		UploadBackend:   getEnv("UPLOAD_BACKEND", "local"),
		UploadDir:       getEnv("UPLOAD_DIR", "./web/uploads"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3PublicURL:     os.Getenv("S3_PUBLIC_URL"),
	}

	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_LIFETIME %q: %w", v, err)
		}
		cfg.SessionLifetime = d
	}

	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set")
	}

	switch cfg.UploadBackend {
	case "local":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET must be set when UPLOAD_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("unknown UPLOAD_BACKEND %q", cfg.UploadBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
