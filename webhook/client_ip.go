package webhook

import (
	"net"
	"net/http"
	"strings"
)

// Proxy headers checked for the reporting server's address, in order.
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"X-Forwarded",
	"Forwarded-For",
	"Forwarded",
}

// ClientIP resolves the address of the server that posted req. Proxy headers
// win over the socket address.
func ClientIP(req *http.Request) string {
	if ip := strings.TrimSpace(req.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	for _, header := range forwardedHeaders {
		if ip := firstHop(req.Header.Get(header)); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(req.Header.Get("Client-IP")); ip != "" {
		return ip
	}

	if req.RemoteAddr == "" {
		return "unknown"
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}

	return host
}

func firstHop(value string) string {
	if value == "" {
		return ""
	}

	return strings.TrimSpace(strings.Split(value, ",")[0])
}
