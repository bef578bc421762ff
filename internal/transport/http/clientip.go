package httptransport

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller address when hops reverse proxies sit in front
// of the server. Each trusted hop appends one X-Forwarded-For entry, so the
// client is the entry hops positions from the end. With hops == 0 the header
// is ignored.
func ClientIP(r *http.Request, hops int) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if hops <= 0 {
		return remote
	}

	header := r.Header.Get("X-Forwarded-For")
	if header == "" {
		return remote
	}
	parts := strings.Split(header, ",")
	forwarded := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			forwarded = append(forwarded, p)
		}
	}
	if len(forwarded) == 0 {
		return remote
	}

	idx := len(forwarded) - hops
	if idx < 0 {
		idx = 0
	}
	return forwarded[idx]
}
