package util

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the direct peer IP of the request. Forwarded headers
// are not trusted; rate limiting keys on the socket peer.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
