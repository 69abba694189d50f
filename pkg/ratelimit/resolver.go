package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// Identifier prefixes. "user:" keys are stable across network changes;
// "ip:" keys are the fallback when no authenticated principal is available.
const (
	userPrefix = "user:"
	ipPrefix   = "ip:"
)

// ResolveIdentifier derives a stable per-client key. An authenticated
// principal wins; otherwise the first comma-separated token of the
// X-Forwarded-For value, then the X-Real-IP value, then the literal
// "unknown". No address validation is performed: spoofed or malformed
// headers simply collapse into whatever segment is extracted.
func ResolveIdentifier(principalID, forwardedFor, realIP string) string {
	if principalID != "" {
		return userPrefix + principalID
	}

	addr := "unknown"
	if forwardedFor != "" {
		addr = forwardedFor
		if i := strings.Index(addr, ","); i >= 0 {
			addr = addr[:i]
		}
		addr = strings.TrimSpace(addr)
	} else if realIP != "" {
		addr = realIP
	}
	return ipPrefix + addr
}

// IdentifierFunc extracts the admission identifier from an HTTP request.
type IdentifierFunc func(r *http.Request) string

// DefaultIdentifierFunc resolves the identifier from request headers alone.
// The X-User-ID header is expected to be set by the auth middleware; when it
// is absent the proxy headers are consulted, and as a last resort the host
// part of RemoteAddr stands in for a missing X-Real-IP.
func DefaultIdentifierFunc(r *http.Request) string {
	realIP := r.Header.Get("X-Real-IP")
	if realIP == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			realIP = host
		} else {
			realIP = r.RemoteAddr
		}
	}
	return ResolveIdentifier(
		r.Header.Get("X-User-ID"),
		r.Header.Get("X-Forwarded-For"),
		realIP,
	)
}
