package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		trustProxy bool
		proxyCount int
		want       string
	}{
		{name: "direct connection", remoteAddr: "192.168.1.100:12345", want: "192.168.1.100"},
		{name: "forwarded for, trusted", remoteAddr: "10.0.0.1:12345", forwarded: "203.0.113.1, 10.0.0.2", trustProxy: true, want: "203.0.113.1"},
		{name: "forwarded for, untrusted", remoteAddr: "10.0.0.1:12345", forwarded: "203.0.113.1", want: "10.0.0.1"},
		{name: "real ip, trusted", remoteAddr: "10.0.0.1:12345", realIP: "203.0.113.1", trustProxy: true, want: "203.0.113.1"},
		{name: "real ip, untrusted", remoteAddr: "10.0.0.1:12345", realIP: "203.0.113.1", want: "10.0.0.1"},
		{name: "two trusted proxies", remoteAddr: "10.0.0.1:12345", forwarded: "203.0.113.1, 10.0.0.2, 10.0.0.3", trustProxy: true, proxyCount: 2, want: "203.0.113.1"},
		{name: "more proxies than hops", remoteAddr: "10.0.0.1:12345", forwarded: "203.0.113.1", trustProxy: true, proxyCount: 5, want: "203.0.113.1"},
		{name: "whitespace", remoteAddr: "10.0.0.1:12345", forwarded: " 203.0.113.1 , 10.0.0.2 ", trustProxy: true, want: "203.0.113.1"},
		{name: "garbage forwarded for", remoteAddr: "10.0.0.1:12345", forwarded: "not-an-ip", trustProxy: true, want: "10.0.0.1"},
		{name: "forwarded for preferred over real ip", remoteAddr: "10.0.0.1:12345", forwarded: "203.0.113.1", realIP: "203.0.113.2", trustProxy: true, want: "203.0.113.1"},
		{name: "ipv6", remoteAddr: "[::1]:12345", want: "::1"},
		{name: "malformed remote addr", remoteAddr: "malformed", want: "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			if got := GetClientIP(req, tt.trustProxy, tt.proxyCount); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
			if got := ClientIPFunc(tt.trustProxy, tt.proxyCount)(req); got != tt.want {
				t.Errorf("ClientIPFunc() = %q, want %q", got, tt.want)
			}
		})
	}
}
