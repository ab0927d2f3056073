package helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientOrigin returns the caller's best-effort network address, checking
// the client-supplied X-Client-IP header first, then the first hop of
// X-Forwarded-For, then the transport peer address.
//
// Both headers are client-controlled, so this value is trivially spoofable.
// That is acceptable: it only feeds the anonymized analytics hash and is
// never used for access control.
func ClientOrigin(c echo.Context) string {
	req := c.Request()

	if ip := strings.TrimSpace(req.Header.Get("X-Client-IP")); ip != "" {
		return stripPort(ip)
	}
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return stripPort(ip)
		}
	}
	return stripPort(req.RemoteAddr)
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// HashOrigin produces the salted one-way digest stored in place of the raw
// address. Deterministic for a fixed input, so the sink can count distinct
// origins without ever holding the address itself.
func HashOrigin(addr, salt string) string {
	sum := sha256.Sum256([]byte(salt + "|" + addr))
	return hex.EncodeToString(sum[:])
}

// Truncate bounds s to at most n bytes.
func Truncate(s string, n int) string {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
