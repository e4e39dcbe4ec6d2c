package audit

import (
	"net"
	"net/http"
	"strings"
)

// Origin identifies where an audited request came from.
type Origin struct {
	IP        string
	UserAgent string
}

// OriginFromRequest reads the client address and user agent of a request.
func OriginFromRequest(r *http.Request) Origin {
	if r == nil {
		return Origin{}
	}
	return Origin{IP: ClientIP(r), UserAgent: r.UserAgent()}
}

// ClientIP returns the first parseable hop of X-Forwarded-For, then
// X-Real-IP, then the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := hostOnly(hop); ip != "" {
			return ip
		}
	}
	if ip := hostOnly(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := hostOnly(r.RemoteAddr); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func hostOnly(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	value = strings.Trim(value, "[]")
	if net.ParseIP(value) == nil {
		return ""
	}
	return value
}
