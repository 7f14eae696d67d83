package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address used as the per-client key for rate limits
// and stream caps.
//
// With trustProxy set, the leftmost X-Forwarded-For entry and then
// X-Real-IP are used when they parse as IP addresses. Otherwise, and as a
// fallback, the host part of RemoteAddr is returned. Enable trustProxy only
// behind a reverse proxy that overwrites these headers.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := parseIP(firstForwarded(r.Header.Get("X-Forwarded-For"))); ip != "" {
			return ip
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// firstForwarded returns the leftmost (original client) entry of an
// X-Forwarded-For list.
func firstForwarded(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return first
}

// parseIP returns s in canonical form, or "" when s is not an IP address.
func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
