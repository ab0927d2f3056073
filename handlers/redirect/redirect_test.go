package redirect

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkbio/cache"
	"linkbio/handlers/links"
	"linkbio/store"
	"linkbio/workers"
)

const testSalt = "test-salt"

type env struct {
	e   *echo.Echo
	db  *sql.DB
	q   *store.Queries
	lc  *cache.LinkCache
	rec *workers.Recorder
}

func newTestEnv(t *testing.T) *env {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	q := store.New(db)
	require.NoError(t, q.Init(context.Background()))

	lc, err := cache.New(64, time.Hour, time.Minute)
	require.NoError(t, err)

	log := zap.NewNop()
	rec := workers.NewRecorder(q, lc, log, 256)
	rec.Start()

	e := echo.New()
	rd := New(q, log, lc, rec, testSalt, 255)
	e.GET("/go/:id", rd.Redirect)
	e.GET("/go/:id/", rd.Redirect)
	e.HEAD("/go/:id/", rd.Redirect)

	lh := links.New(q, log, lc)
	e.PUT("/api/v1/links/:id", lh.Update)
	e.DELETE("/api/v1/links/:id", lh.Delete)

	return &env{e: e, db: db, q: q, lc: lc, rec: rec}
}

func (te *env) get(path string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:4711"
	for _, fn := range mutate {
		fn(req)
	}
	rr := httptest.NewRecorder()
	te.e.ServeHTTP(rr, req)
	return rr
}

func goPath(id int64) string {
	return "/go/" + strconv.FormatInt(id, 10) + "/"
}

func TestRedirectRecordsClick(t *testing.T) {
	te := newTestEnv(t)
	link, err := te.q.CreateLink(context.Background(), "", "https://example.com", 0)
	require.NoError(t, err)

	rr := te.get(goPath(link.ID), func(r *http.Request) {
		r.Header.Set("User-Agent", strings.Repeat("u", 300))
		r.Header.Set("Referer", "https://ref.example")
	})
	require.Equal(t, http.StatusMovedPermanently, rr.Code)
	require.Equal(t, "https://example.com", rr.Header().Get("Location"))

	te.rec.Stop()

	got, err := te.q.GetLink(context.Background(), link.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Clicks)
	require.True(t, got.LastClicked.Valid)

	n, err := te.q.CountClicks(context.Background(), link.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	var originHash, userAgent, referrer string
	require.NoError(t, te.db.QueryRow(
		`SELECT origin_hash, user_agent, referrer FROM clicks WHERE link_id = ?`, link.ID,
	).Scan(&originHash, &userAgent, &referrer))
	require.NotEqual(t, "192.0.2.1", originHash)
	require.NotContains(t, originHash, "192.0.2.1")
	require.Len(t, userAgent, 255)
	require.Equal(t, "https://ref.example", referrer)
}

func TestUnknownLinkIs404(t *testing.T) {
	te := newTestEnv(t)

	rr := te.get("/go/999/")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "Link not found", rr.Body.String())

	te.rec.Stop()

	n, err := te.q.CountClicks(context.Background(), 999)
	require.NoError(t, err)
	require.Zero(t, n, "no click may be recorded for an unresolved id")
}

func TestMalformedID(t *testing.T) {
	te := newTestEnv(t)
	defer te.rec.Stop()

	require.Equal(t, http.StatusNotFound, te.get("/go/abc/").Code)
	require.Equal(t, http.StatusNotFound, te.get("/go/-1/").Code)
}

func TestWrongKindOrEmptyURLIs404(t *testing.T) {
	te := newTestEnv(t)
	defer te.rec.Stop()
	ctx := context.Background()

	header, err := te.q.CreateLink(ctx, "header", "https://example.com", 0)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, te.get(goPath(header.ID)).Code)

	empty, err := te.q.CreateLink(ctx, "", "", 0)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, te.get(goPath(empty.ID)).Code)
}

func TestCacheServesRepeatResolves(t *testing.T) {
	te := newTestEnv(t)
	defer te.rec.Stop()
	link, err := te.q.CreateLink(context.Background(), "", "https://example.com", 0)
	require.NoError(t, err)

	require.Equal(t, http.StatusMovedPermanently, te.get(goPath(link.ID)).Code)

	url, hit, missing := te.lc.GetURL(link.ID)
	require.True(t, hit)
	require.False(t, missing)
	require.Equal(t, "https://example.com", url)

	// identical answer from the warmed cache
	rr := te.get(goPath(link.ID))
	require.Equal(t, http.StatusMovedPermanently, rr.Code)
	require.Equal(t, "https://example.com", rr.Header().Get("Location"))
}

func TestNegativeLookupIsCached(t *testing.T) {
	te := newTestEnv(t)
	defer te.rec.Stop()

	require.Equal(t, http.StatusNotFound, te.get("/go/999/").Code)

	_, hit, missing := te.lc.GetURL(999)
	require.True(t, hit)
	require.True(t, missing)
}

func TestEditInvalidatesCache(t *testing.T) {
	te := newTestEnv(t)
	defer te.rec.Stop()
	link, err := te.q.CreateLink(context.Background(), "", "https://example.com", 0)
	require.NoError(t, err)

	// warm the cache
	require.Equal(t, http.StatusMovedPermanently, te.get(goPath(link.ID)).Code)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/links/"+strconv.FormatInt(link.ID, 10),
		strings.NewReader(`{"url":"https://example.org"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	te.e.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// the very next resolve must see the new URL, not the cached one
	rr2 := te.get(goPath(link.ID))
	require.Equal(t, http.StatusMovedPermanently, rr2.Code)
	require.Equal(t, "https://example.org", rr2.Header().Get("Location"))
}

func TestDeleteInvalidatesCache(t *testing.T) {
	te := newTestEnv(t)
	defer te.rec.Stop()
	link, err := te.q.CreateLink(context.Background(), "", "https://example.com", 0)
	require.NoError(t, err)

	require.Equal(t, http.StatusMovedPermanently, te.get(goPath(link.ID)).Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/links/"+strconv.FormatInt(link.ID, 10), nil)
	rr := httptest.NewRecorder()
	te.e.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	require.Equal(t, http.StatusNotFound, te.get(goPath(link.ID)).Code)
}

func TestClientDisconnectSkipsRecording(t *testing.T) {
	te := newTestEnv(t)
	link, err := te.q.CreateLink(context.Background(), "", "https://example.com", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	te.get(goPath(link.ID), func(r *http.Request) {
		*r = *r.WithContext(ctx)
	})

	te.rec.Stop()

	n, err := te.q.CountClicks(context.Background(), link.ID)
	require.NoError(t, err)
	require.Zero(t, n, "an undelivered redirect must not record a click")
}

func TestConcurrentClicks(t *testing.T) {
	te := newTestEnv(t)
	link, err := te.q.CreateLink(context.Background(), "", "https://example.com", 0)
	require.NoError(t, err)

	const clients = 100
	var wg sync.WaitGroup
	wg.Add(clients)
	for i := 0; i < clients; i++ {
		go func() {
			defer wg.Done()
			rr := te.get(goPath(link.ID))
			require.Equal(t, http.StatusMovedPermanently, rr.Code)
		}()
	}
	wg.Wait()
	te.rec.Stop()

	got, err := te.q.GetLink(context.Background(), link.ID)
	require.NoError(t, err)
	require.Equal(t, int64(clients), got.Clicks, "no increment may be lost")

	n, err := te.q.CountClicks(context.Background(), link.ID)
	require.NoError(t, err)
	require.Equal(t, int64(clients), n, "exactly one event per redirect")
}
