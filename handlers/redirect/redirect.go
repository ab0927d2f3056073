// Package redirect is the hot path: /go/:id in, 301 out, one click
// recorded per delivered redirect.
package redirect

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"linkbio/cache"
	h "linkbio/helpers"
	"linkbio/store"
	"linkbio/workers"
)

// Handler resolves link ids and issues redirects.
type Handler struct {
	Q           *store.Queries
	Log         *zap.Logger
	Cache       *cache.LinkCache
	Recorder    *workers.Recorder
	HashSalt    string
	MaxFieldLen int
}

func New(q *store.Queries, log *zap.Logger, c *cache.LinkCache, rec *workers.Recorder, salt string, maxFieldLen int) *Handler {
	return &Handler{
		Q:           q,
		Log:         log,
		Cache:       c,
		Recorder:    rec,
		HashSalt:    salt,
		MaxFieldLen: maxFieldLen,
	}
}

// GET /go/:id  and HEAD
func (rd *Handler) Redirect(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		return notFound(c)
	}

	url, ok := rd.resolve(c.Request().Context(), id)
	if !ok {
		return notFound(c)
	}

	if err := c.Redirect(http.StatusMovedPermanently, url); err != nil {
		return err
	}
	// Client gone before the redirect was written: nothing was delivered,
	// so nothing is recorded.
	if c.Request().Context().Err() != nil {
		return nil
	}

	rd.recordClick(c, id)
	return nil
}

// resolve turns a link id into a destination URL, cache first. A row that
// is absent, of a non-link kind, or without a URL caches a short-lived
// known-absent marker; a store failure caches nothing.
func (rd *Handler) resolve(ctx context.Context, id int64) (string, bool) {
	if url, hit, missing := rd.Cache.GetURL(id); hit {
		return url, !missing
	}

	link, err := rd.Q.GetLink(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		rd.Cache.SetMissing(id)
		return "", false
	}
	if err != nil {
		rd.Log.Error("link lookup failed", zap.Int64("link_id", id), zap.Error(err))
		return "", false
	}
	if link.Kind != store.KindLink || link.URL == "" {
		rd.Cache.SetMissing(id)
		return "", false
	}

	rd.Cache.SetURL(id, link.URL)
	return link.URL, true
}

func (rd *Handler) recordClick(c echo.Context, id int64) {
	req := c.Request()
	ev := workers.Click{
		LinkID:     id,
		TreeID:     0, // no tree context on the redirect path yet
		Time:       time.Now(),
		OriginHash: h.HashOrigin(h.ClientOrigin(c), rd.HashSalt),
		UserAgent:  h.Truncate(req.UserAgent(), rd.MaxFieldLen),
		Referrer:   h.Truncate(req.Referer(), rd.MaxFieldLen),
	}

	if rd.Recorder.Enqueue(ev) {
		return
	}

	// buffer full — record inline rather than drop the click
	rd.Log.Debug("recorder buffer full, recording inline", zap.Int64("link_id", id))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rd.Recorder.Record(ctx, ev)
}

func notFound(c echo.Context) error {
	return c.String(http.StatusNotFound, "Link not found")
}
