package api

import (
	"net"
	"net/http"
	"strings"
)

const apiKeyHeader = "X-API-Key"

// clientKey identifies the caller for rate limiting: a truncated API key when
// one is sent, otherwise the first X-Forwarded-For hop, otherwise the peer address.
func clientKey(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		if len(key) > 8 {
			key = key[:8]
		}
		return "key:" + key + "..."
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return "ip:" + ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}
