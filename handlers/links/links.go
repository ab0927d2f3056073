// Package links is the editing and reporting surface: link CRUD that keeps
// the resolver cache honest, plus aggregate queries over the click log.
package links

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"linkbio/cache"
	h "linkbio/helpers"
	"linkbio/store"
)

type Handler struct {
	Q     *store.Queries
	Log   *zap.Logger
	Cache *cache.LinkCache
}

func New(q *store.Queries, log *zap.Logger, c *cache.LinkCache) *Handler {
	return &Handler{Q: q, Log: log, Cache: c}
}

// POST /api/v1/links
func (l *Handler) Create(c echo.Context) error {
	var req struct {
		URL    string `json:"url" validate:"required,url"`
		TreeID int64  `json:"tree_id"`
		Kind   string `json:"kind"`
	}
	if err := h.BindAndValidate(c, &req); err != nil {
		return err
	}

	link, err := l.Q.CreateLink(c.Request().Context(), req.Kind, req.URL, req.TreeID)
	if err != nil {
		l.Log.Error("failed to create link", zap.Error(err))
		return h.JSONError(c, http.StatusInternalServerError, "couldn't create link")
	}

	return h.JSONSuccess(c, http.StatusCreated, map[string]any{
		"id":      link.ID,
		"url":     link.URL,
		"kind":    link.Kind,
		"tree_id": link.TreeID,
		"go_path": "/go/" + strconv.FormatInt(link.ID, 10) + "/",
	}, "")
}

// GET /api/v1/links/:id
func (l *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.JSONError(c, http.StatusBadRequest, "invalid id")
	}

	link, err := l.Q.GetLink(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return h.JSONError(c, http.StatusNotFound, "not found")
	}
	if err != nil {
		l.Log.Error("link fetch failed", zap.Int64("link_id", id), zap.Error(err))
		return h.JSONError(c, http.StatusInternalServerError, "db error")
	}

	resp := map[string]any{
		"id":      link.ID,
		"url":     link.URL,
		"kind":    link.Kind,
		"tree_id": link.TreeID,
		"clicks":  link.Clicks,
	}
	if link.LastClicked.Valid {
		resp["last_clicked"] = link.LastClicked.Time
	}
	return h.JSONSuccess(c, http.StatusOK, resp, "")
}

// PUT /api/v1/links/:id
//
// The cache entry is dropped after the durable write commits and before the
// response goes out, so no resolve started after this call returns can see
// the old URL.
func (l *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.JSONError(c, http.StatusBadRequest, "invalid id")
	}

	var req struct {
		URL string `json:"url" validate:"required,url"`
	}
	if err := h.BindAndValidate(c, &req); err != nil {
		return err
	}

	err = l.Q.UpdateLinkURL(c.Request().Context(), id, req.URL)
	if errors.Is(err, store.ErrNotFound) {
		return h.JSONError(c, http.StatusNotFound, "not found")
	}
	if err != nil {
		l.Log.Error("link update failed", zap.Int64("link_id", id), zap.Error(err))
		return h.JSONError(c, http.StatusInternalServerError, "db error")
	}

	l.Cache.Invalidate(id)
	return h.JSONSuccess(c, http.StatusOK, nil, "updated")
}

// DELETE /api/v1/links/:id
func (l *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.JSONError(c, http.StatusBadRequest, "invalid id")
	}

	err = l.Q.DeleteLink(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return h.JSONError(c, http.StatusNotFound, "not found")
	}
	if err != nil {
		l.Log.Error("link delete failed", zap.Int64("link_id", id), zap.Error(err))
		return h.JSONError(c, http.StatusInternalServerError, "db error")
	}

	l.Cache.Invalidate(id)
	return h.JSONSuccess(c, http.StatusOK, nil, "")
}

// GET /api/v1/links/:id/stats?days=30
func (l *Handler) Stats(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.JSONError(c, http.StatusBadRequest, "invalid id")
	}
	days := 30
	if v := c.QueryParam("days"); v != "" {
		if days, err = strconv.Atoi(v); err != nil || days <= 0 {
			return h.JSONError(c, http.StatusBadRequest, "invalid days")
		}
	}

	ctx := c.Request().Context()
	link, err := l.Q.GetLink(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return h.JSONError(c, http.StatusNotFound, "not found")
	}
	if err != nil {
		l.Log.Error("stats fetch failed", zap.Int64("link_id", id), zap.Error(err))
		return h.JSONError(c, http.StatusInternalServerError, "db error")
	}

	dailyRows, err := l.Q.DailyClicks(ctx, id, days)
	if err != nil {
		l.Log.Error("daily clicks query failed", zap.Int64("link_id", id), zap.Error(err))
		return h.JSONError(c, http.StatusInternalServerError, "db error")
	}

	daily := make([]map[string]any, 0, len(dailyRows))
	for _, r := range dailyRows {
		daily = append(daily, map[string]any{"day": r.Day, "clicks": r.Clicks})
	}

	resp := map[string]any{
		"id":    link.ID,
		"url":   link.URL,
		"total": link.Clicks,
		"daily": daily,
	}
	if link.LastClicked.Valid {
		resp["last_clicked"] = link.LastClicked.Time
	}
	return h.JSONSuccess(c, http.StatusOK, resp, "")
}

// GET /api/v1/stats/top?n=10&ids=1,2,3
func (l *Handler) Top(c echo.Context) error {
	n := 10
	var err error
	if v := c.QueryParam("n"); v != "" {
		if n, err = strconv.Atoi(v); err != nil || n <= 0 {
			return h.JSONError(c, http.StatusBadRequest, "invalid n")
		}
	}
	var ids []int64
	if v := c.QueryParam("ids"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id < 0 {
				return h.JSONError(c, http.StatusBadRequest, "invalid ids")
			}
			ids = append(ids, id)
		}
	}

	rows, err := l.Q.TopLinks(c.Request().Context(), n, ids)
	if err != nil {
		l.Log.Error("top links query failed", zap.Error(err))
		return h.JSONError(c, http.StatusInternalServerError, "db error")
	}

	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{"id": r.LinkID, "url": r.URL, "clicks": r.Clicks})
	}
	return h.JSONSuccess(c, http.StatusOK, out, "")
}

// POST /api/v1/cache/invalidate/:id
//
// For editing collaborators that write to the links table without going
// through this API. Same contract as Update: call after the write commits.
func (l *Handler) InvalidateCache(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.JSONError(c, http.StatusBadRequest, "invalid id")
	}
	l.Cache.Invalidate(id)
	return h.JSONSuccess(c, http.StatusOK, nil, "")
}

// POST /api/v1/cache/flush
func (l *Handler) FlushCache(c echo.Context) error {
	l.Cache.Flush()
	return h.JSONSuccess(c, http.StatusOK, nil, "")
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
