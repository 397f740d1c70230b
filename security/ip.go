package security

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP returns the caller's IP address.
//
// X-Forwarded-For and X-Real-IP are only consulted when trustProxy is set.
// trustedProxyCount is the number of proxies we operate, counted from the
// right of X-Forwarded-For; 0 means one.
func GetClientIP(r *http.Request, trustProxy bool, trustedProxyCount int) string {
	if trustProxy {
		if ip := clientFromForwardedFor(r.Header.Get("X-Forwarded-For"), trustedProxyCount); ip != "" {
			return ip
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIPFunc binds the proxy settings for use as a rate limit key.
func ClientIPFunc(trustProxy bool, trustedProxyCount int) func(*http.Request) string {
	return func(r *http.Request) string {
		return GetClientIP(r, trustProxy, trustedProxyCount)
	}
}

func clientFromForwardedFor(xff string, trustedProxyCount int) string {
	if xff == "" {
		return ""
	}
	hops := strings.Split(xff, ",")
	if trustedProxyCount <= 0 {
		trustedProxyCount = 1
	}
	idx := len(hops) - trustedProxyCount - 1
	if idx < 0 {
		idx = 0
	}
	ip := strings.TrimSpace(hops[idx])
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}
