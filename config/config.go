// config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration for the app.
type Config struct {
	Port         string
	DatabaseURL  string // libsql/Turso URL; empty means local sqlite file
	DatabasePath string
	AppEnv       string // "development" | "production"
	LogLevel     string

	CacheSize        int           // max resolver cache entries
	CacheTTL         time.Duration // positive entries
	NegativeCacheTTL time.Duration // known-absent entries, shorter on purpose

	OriginHashSalt string
	MaxFieldLen    int // bound for stored user agent / referrer
	RecorderBuffer int // click recorder channel capacity
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabasePath:   getenv("DATABASE_PATH", "data/linkbio.sqlite3"),
		AppEnv:         getenv("APP_ENV", "production"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		OriginHashSalt: os.Getenv("ORIGIN_HASH_SALT"),
	}

	var err error
	if cfg.CacheSize, err = getint("CACHE_SIZE", 4096); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getdur("CACHE_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.NegativeCacheTTL, err = getdur("NEGATIVE_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxFieldLen, err = getint("MAX_FIELD_LEN", 255); err != nil {
		return nil, err
	}
	if cfg.RecorderBuffer, err = getint("RECORDER_BUFFER", 8192); err != nil {
		return nil, err
	}

	// Required validations
	if cfg.OriginHashSalt == "" {
		if cfg.AppEnv == "production" {
			return nil, errors.New("ORIGIN_HASH_SALT is required in production")
		}
		cfg.OriginHashSalt = "linkbio-dev"
	}
	if cfg.NegativeCacheTTL > cfg.CacheTTL {
		return nil, errors.New("NEGATIVE_CACHE_TTL must not exceed CACHE_TTL")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: expected positive integer, got %q", key, v)
	}
	return n, nil
}

func getdur(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: expected positive duration, got %q", key, v)
	}
	return d, nil
}
