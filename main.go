package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"                // loads .env automatically if present
	_ "github.com/mattn/go-sqlite3"                      // local fallback driver (sqlite file)
	_ "github.com/tursodatabase/libsql-client-go/libsql" // libSQL (Turso) driver

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"linkbio/cache"
	"linkbio/config"
	"linkbio/store"
	"linkbio/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if cfg.LogLevel == "debug" || cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	if err := os.MkdirAll("data", 0o755); err != nil {
		logger.Fatal("create data dir", zap.Error(err))
	}

	var dbConn *sql.DB
	if cfg.DatabaseURL != "" {
		logger.Info("using libsql (Turso) DB", zap.String("url", cfg.DatabaseURL))
		dbConn, err = sql.Open("libsql", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open libsql", zap.Error(err))
		}
	} else {
		logger.Info("using local sqlite file", zap.String("path", cfg.DatabasePath))
		dbConn, err = sql.Open("sqlite3", cfg.DatabasePath)
		if err != nil {
			logger.Fatal("open sqlite", zap.Error(err))
		}
		_, _ = dbConn.Exec("PRAGMA journal_mode=WAL;")
		_, _ = dbConn.Exec("PRAGMA synchronous=NORMAL;")
	}

	dbConn.SetMaxOpenConns(1)
	dbConn.SetMaxIdleConns(1)
	defer dbConn.Close()

	q := store.New(dbConn)
	if err := retry.Do(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return q.Init(ctx)
		},
		retry.Attempts(5),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying schema init", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	); err != nil {
		logger.Fatal("schema init", zap.Error(err))
	}

	linkCache, err := cache.New(cfg.CacheSize, cfg.CacheTTL, cfg.NegativeCacheTTL)
	if err != nil {
		logger.Fatal("create cache", zap.Error(err))
	}

	rec := workers.NewRecorder(q, linkCache, logger, cfg.RecorderBuffer)
	rec.Start()
	defer rec.Stop()

	srv := NewServer(dbConn, logger, q, linkCache, rec, cfg.OriginHashSalt, cfg.MaxFieldLen)

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("starting server", zap.String("address", addr))
	if err := srv.Start(addr); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
