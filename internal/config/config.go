// Package config loads process configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "SIZES_"

// Config holds all configuration for the application.
type Config struct {
	Storage StorageConfig
	Blob    BlobConfig
	HTTP    HTTPConfig
	Log     LogConfig
}

// StorageConfig selects the entity store backend.
type StorageConfig struct {
	Driver     string // memory|sqlite
	SQLitePath string
}

// BlobConfig selects where backup archives are written.
type BlobConfig struct {
	Driver      string // fs|memory|s3
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3AccessKey string
	S3SecretKey string
}

// HTTPConfig holds the local HTTP adapter settings.
type HTTPConfig struct {
	Addr            string
	AllowedOrigins  []string
	PublicBaseURL   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// LogConfig controls the slog handler built by the CLI.
type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // text|json
}

// Load reads .env files (without overriding variables already set) and
// builds a validated Config.
func Load() (*Config, error) {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from the current environment without touching .env files.
func FromEnv() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:     getEnv("STORAGE_DRIVER", "sqlite"),
			SQLitePath: getEnv("SQLITE_PATH", "sizes.db"),
		},
		Blob: BlobConfig{
			Driver:      getEnv("BLOB_DRIVER", "fs"),
			FSRoot:      getEnv("BLOB_FS_ROOT", "./sizesdata"),
			S3Bucket:    getEnv("BLOB_S3_BUCKET", ""),
			S3Region:    getEnv("BLOB_S3_REGION", "us-east-1"),
			S3Endpoint:  getEnv("BLOB_S3_ENDPOINT", ""),
			S3PathStyle: getBoolEnv("BLOB_S3_PATH_STYLE", false),
			S3AccessKey: getEnv("BLOB_S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("BLOB_S3_SECRET_KEY", ""),
		},
		HTTP: HTTPConfig{
			Addr:            getEnv("HTTP_ADDR", "127.0.0.1:8080"),
			AllowedOrigins:  getStringSliceEnv("HTTP_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://127.0.0.1:8080"),
			ReadTimeout:     getDurationEnv("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("HTTP_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("HTTP_SHUTDOWN_TIMEOUT", 5*time.Second),
			MaxUploadBytes:  getInt64Env("HTTP_MAX_UPLOAD_BYTES", 10<<20),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}
}

// Validate checks enumerations and driver-specific requirements.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("%sSTORAGE_DRIVER: unknown driver %q", EnvPrefix, c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3Bucket == "" {
			errs = append(errs, fmt.Errorf("%sBLOB_S3_BUCKET is required for the s3 driver", EnvPrefix))
		}
	default:
		errs = append(errs, fmt.Errorf("%sBLOB_DRIVER: unknown driver %q", EnvPrefix, c.Blob.Driver))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%sLOG_FORMAT: unknown format %q", EnvPrefix, c.Log.Format))
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("%sHTTP_MAX_UPLOAD_BYTES must be positive", EnvPrefix))
	}
	return errors.Join(errs...)
}

// SlogLevel maps the configured level onto slog.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%sLOG_LEVEL: %w", EnvPrefix, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(EnvPrefix + key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return defaultValue
	}
	return parts
}
