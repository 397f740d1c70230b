package security

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newTestAuditor(enabled bool) (*Auditor, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return NewAuditor(logger, enabled), &buf
}

func TestNewAuditor(t *testing.T) {
	a := NewAuditor(nil, true)
	if a.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
	if !a.enabled {
		t.Error("enabled = false, want true")
	}
}

func TestAuditor_LogEvent(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		wantLog bool
	}{
		{name: "enabled", enabled: true, wantLog: true},
		{name: "disabled", enabled: false, wantLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, buf := newTestAuditor(tt.enabled)
			a.LogEvent(Event{Type: EventSessionCreated, SessionID: "2bX9kq", IPAddress: "203.0.113.7"})

			logged := buf.Len() > 0
			if logged != tt.wantLog {
				t.Fatalf("logged = %v, want %v", logged, tt.wantLog)
			}
			if !tt.wantLog {
				return
			}
			out := buf.String()
			if !strings.Contains(out, "event_type="+EventSessionCreated) {
				t.Errorf("log missing event type: %s", out)
			}
			if strings.Contains(out, "2bX9kq") {
				t.Errorf("log contains raw session id: %s", out)
			}
			if !strings.Contains(out, "session_hash="+hashForLogging("2bX9kq")) {
				t.Errorf("log missing session hash: %s", out)
			}
		})
	}
}

func TestAuditor_NilSafe(t *testing.T) {
	var a *Auditor
	a.LogEvent(Event{Type: EventAuthFailure})
	a.LogQuotaExceeded(1, 2, 3)
}

func TestAuditor_Helpers(t *testing.T) {
	tests := []struct {
		name      string
		log       func(a *Auditor)
		eventType string
		contains  string
	}{
		{"authorization started", func(a *Auditor) { a.LogAuthorizationStarted("203.0.113.1") }, EventAuthorizationStarted, "ip_address=203.0.113.1"},
		{"session created", func(a *Auditor) { a.LogSessionCreated("s", "203.0.113.1") }, EventSessionCreated, "ip_address=203.0.113.1"},
		{"session ended", func(a *Auditor) { a.LogSessionEnded("s", "") }, EventSessionEnded, "session_hash="},
		{"token refreshed", func(a *Auditor) { a.LogTokenRefreshed("s", true) }, EventTokenRefreshed, "rotated"},
		{"auth failure", func(a *Auditor) { a.LogAuthFailure("s", "", "expired") }, EventAuthFailure, "expired"},
		{"quota exceeded", func(a *Auditor) { a.LogQuotaExceeded(9950, 10000, 100) }, EventQuotaExceeded, "9950"},
		{"rate limited", func(a *Auditor) { a.LogRateLimitExceeded("203.0.113.9") }, EventRateLimitExceeded, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, buf := newTestAuditor(true)
			tt.log(a)
			out := buf.String()
			if !strings.Contains(out, "event_type="+tt.eventType) {
				t.Errorf("log missing event type %q: %s", tt.eventType, out)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("log missing %q: %s", tt.contains, out)
			}
		})
	}
}

func Test_hashForLogging(t *testing.T) {
	if got := hashForLogging(""); got != "<empty>" {
		t.Errorf("hashForLogging(\"\") = %q, want <empty>", got)
	}
	a := hashForLogging("session-1")
	if len(a) != 16 {
		t.Errorf("len(hash) = %d, want 16", len(a))
	}
	if a != hashForLogging("session-1") {
		t.Error("hash is not deterministic")
	}
	if a == hashForLogging("session-2") {
		t.Error("different inputs hash equal")
	}
}
