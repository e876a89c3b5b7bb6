// Package httputil holds request helpers shared by the HTTP surfaces.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// IPResolver picks the address used to key per-client limits and logs.
type IPResolver struct {
	// TrustProxy enables X-Forwarded-For and X-Real-IP. Only set it when
	// the server sits behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

// Resolve returns the client address for r. Header values that are not
// valid IP addresses are ignored so a client cannot pick an arbitrary key.
func (res IPResolver) Resolve(r *http.Request) string {
	if res.TrustProxy {
		if ip := firstForwarded(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if ip := validIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	return remoteHost(r.RemoteAddr)
}

// firstForwarded returns the leftmost valid entry of an X-Forwarded-For list.
func firstForwarded(xff string) string {
	if xff == "" {
		return ""
	}
	for _, part := range strings.Split(xff, ",") {
		if ip := validIP(part); ip != "" {
			return ip
		}
	}
	return ""
}

func validIP(s string) string {
	s = strings.TrimSpace(s)
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
