package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestClientOrigin(t *testing.T) {
	tests := []struct {
		name       string
		clientIP   string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{
			name:       "client ip header wins",
			clientIP:   "203.0.113.7",
			forwarded:  "198.51.100.1, 10.0.0.1",
			remoteAddr: "192.0.2.1:4711",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded-for first hop",
			forwarded:  "198.51.100.1, 10.0.0.1",
			remoteAddr: "192.0.2.1:4711",
			want:       "198.51.100.1",
		},
		{
			name:       "single forwarded-for entry",
			forwarded:  "198.51.100.1",
			remoteAddr: "192.0.2.1:4711",
			want:       "198.51.100.1",
		},
		{
			name:       "peer address fallback",
			remoteAddr: "192.0.2.1:4711",
			want:       "192.0.2.1",
		},
		{
			name:       "port stripped from header value",
			clientIP:   "203.0.113.7:9000",
			remoteAddr: "192.0.2.1:4711",
			want:       "203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/go/1/", nil)
			if tt.clientIP != "" {
				req.Header.Set("X-Client-IP", tt.clientIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			req.RemoteAddr = tt.remoteAddr

			c := echo.New().NewContext(req, httptest.NewRecorder())
			require.Equal(t, tt.want, ClientOrigin(c))
		})
	}
}

func TestHashOrigin(t *testing.T) {
	h1 := HashOrigin("203.0.113.7", "salt")
	h2 := HashOrigin("203.0.113.7", "salt")
	require.Equal(t, h1, h2, "same address must hash identically")
	require.NotEqual(t, "203.0.113.7", h1)
	require.NotContains(t, h1, "203.0.113.7")
	require.Len(t, h1, 64)

	require.NotEqual(t, h1, HashOrigin("203.0.113.8", "salt"))
	require.NotEqual(t, h1, HashOrigin("203.0.113.7", "other-salt"))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 300)
	require.Len(t, Truncate(long, 255), 255)
	require.Equal(t, "short", Truncate("short", 255))
	require.Equal(t, "", Truncate("", 255))
	require.Equal(t, "ab", Truncate("abc", 2))
}
