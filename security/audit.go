// Package security provides the PKCE generator, token encryption at rest,
// audit logging, and the HTTP hardening middleware.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Auditor writes security events to a structured logger. Session
// identifiers are hashed before they are logged.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
	now     func() time.Time
}

// NewAuditor creates an auditor. A nil logger falls back to slog.Default().
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
		now:     time.Now,
	}
}

// Event is a single audit record.
type Event struct {
	Type      string
	SessionID string
	IPAddress string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs event. Nil auditors and disabled auditors drop it.
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = a.now()
	}

	attrs := []any{
		"event_type", event.Type,
		"session_hash", hashForLogging(event.SessionID),
		"timestamp", event.Timestamp,
	}
	if event.IPAddress != "" {
		attrs = append(attrs, "ip_address", event.IPAddress)
	}
	if len(event.Details) > 0 {
		attrs = append(attrs, "details", event.Details)
	}
	a.logger.Info("security_audit", attrs...)
}

// LogAuthorizationStarted logs a new PKCE flow.
func (a *Auditor) LogAuthorizationStarted(ipAddress string) {
	a.LogEvent(Event{Type: EventAuthorizationStarted, IPAddress: ipAddress})
}

// LogSessionCreated logs a session bound to a freshly exchanged token.
func (a *Auditor) LogSessionCreated(sessionID, ipAddress string) {
	a.LogEvent(Event{Type: EventSessionCreated, SessionID: sessionID, IPAddress: ipAddress})
}

// LogSessionEnded logs a logout.
func (a *Auditor) LogSessionEnded(sessionID, ipAddress string) {
	a.LogEvent(Event{Type: EventSessionEnded, SessionID: sessionID, IPAddress: ipAddress})
}

// LogTokenRefreshed logs a refresh grant. rotated is true when the provider
// returned a new refresh token.
func (a *Auditor) LogTokenRefreshed(sessionID string, rotated bool) {
	a.LogEvent(Event{
		Type:      EventTokenRefreshed,
		SessionID: sessionID,
		Details:   map[string]any{"rotated": rotated},
	})
}

// LogAuthFailure logs a rejected credential.
func (a *Auditor) LogAuthFailure(sessionID, ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      EventAuthFailure,
		SessionID: sessionID,
		IPAddress: ipAddress,
		Details:   map[string]any{"reason": reason},
	})
}

// LogQuotaExceeded logs a rejected quota charge.
func (a *Auditor) LogQuotaExceeded(usage, limit, units int64) {
	a.LogEvent(Event{
		Type: EventQuotaExceeded,
		Details: map[string]any{
			"usage": usage,
			"limit": limit,
			"units": units,
		},
	})
}

// LogRateLimitExceeded logs a throttled client.
func (a *Auditor) LogRateLimitExceeded(ipAddress string) {
	a.LogEvent(Event{Type: EventRateLimitExceeded, IPAddress: ipAddress})
}

// hashForLogging returns a short SHA-256 prefix of sensitive.
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
