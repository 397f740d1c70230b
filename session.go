package oauth

import (
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/giantswarm/youtube-oauth/domain"
)

// SessionManager mints session identifiers and maps them to and from the
// session cookie.
type SessionManager struct {
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewSessionManager creates a SessionManager. The cookie lives as long as
// the token bound to it.
func NewSessionManager(cookieName string, ttl time.Duration, secure bool) *SessionManager {
	if cookieName == "" {
		cookieName = DefaultSessionCookieName
	}
	return &SessionManager{cookieName: cookieName, ttl: ttl, secure: secure}
}

// NewSessionID returns a fresh, time-sortable session identifier.
func (m *SessionManager) NewSessionID() string {
	return ksuid.New().String()
}

// Session reads the caller's session from r: the cookie provides the ID,
// an Authorization bearer header provides the override credential.
func (m *SessionManager) Session(r *http.Request) domain.Session {
	var session domain.Session
	if c, err := r.Cookie(m.cookieName); err == nil && isSessionID(c.Value) {
		session.ID = c.Value
	}
	session.BearerOverride = bearerToken(r.Header.Get("Authorization"))
	return session
}

// SetCookie binds sessionID to the browser.
func (m *SessionManager) SetCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// isSessionID rejects cookie values that could not have been minted here.
func isSessionID(value string) bool {
	_, err := ksuid.Parse(value)
	return err == nil
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], domain.TokenTypeBearer) {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
