package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"linkbio/cache"
	"linkbio/handlers/links"
	"linkbio/handlers/redirect"
	"linkbio/helpers"
	"linkbio/store"
	"linkbio/workers"
)

type Server struct {
	E        *echo.Echo
	DB       *sql.DB
	Q        *store.Queries
	Log      *zap.Logger
	Cache    *cache.LinkCache
	Recorder *workers.Recorder

	HashSalt    string
	MaxFieldLen int
}

func NewServer(dbConn *sql.DB, log *zap.Logger, q *store.Queries, c *cache.LinkCache, rec *workers.Recorder, salt string, maxFieldLen int) *Server {
	e := echo.New()

	// essential middleware only
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())

	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		E:           e,
		DB:          dbConn,
		Q:           q,
		Log:         log,
		Cache:       c,
		Recorder:    rec,
		HashSalt:    salt,
		MaxFieldLen: maxFieldLen,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.E.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rd := redirect.New(s.Q, s.Log, s.Cache, s.Recorder, s.HashSalt, s.MaxFieldLen)
	goLimiter := helpers.NewRateLimiter(60, time.Minute)
	s.E.GET("/go/:id", rd.Redirect, goLimiter.Middleware)
	s.E.GET("/go/:id/", rd.Redirect, goLimiter.Middleware)
	s.E.HEAD("/go/:id", rd.Redirect, goLimiter.Middleware)
	s.E.HEAD("/go/:id/", rd.Redirect, goLimiter.Middleware)

	lh := links.New(s.Q, s.Log, s.Cache)
	createLimiter := helpers.NewRateLimiter(30, time.Minute)
	s.E.POST("/api/v1/links", lh.Create, createLimiter.Middleware)
	s.E.GET("/api/v1/links/:id", lh.Get)
	s.E.PUT("/api/v1/links/:id", lh.Update)
	s.E.DELETE("/api/v1/links/:id", lh.Delete)
	s.E.GET("/api/v1/links/:id/stats", lh.Stats)
	s.E.GET("/api/v1/stats/top", lh.Top)
	s.E.POST("/api/v1/cache/invalidate/:id", lh.InvalidateCache)
	s.E.POST("/api/v1/cache/flush", lh.FlushCache)
}

func (s *Server) Start(addr string) error {
	s.Log.Info("server starting", zap.String("addr", addr))
	return s.E.Start(addr)
}
