package testutil

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
)

// MockTime provides a controllable time source for deterministic testing.
// It is safe for concurrent use.
type MockTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockTime creates a new mock time provider
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time
func (m *MockTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock time forward by the given duration
func (m *MockTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value
func (m *MockTime) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// GenerateTestToken creates a valid token expiring in one hour
func GenerateTestToken() *domain.Token {
	return GenerateTestTokenWithExpiry(time.Now().Add(time.Hour))
}

// GenerateTestTokenWithExpiry creates a test token with a specific expiry
func GenerateTestTokenWithExpiry(expiry time.Time) *domain.Token {
	return &domain.Token{
		AccessToken:  "ya29." + GenerateRandomString(32),
		RefreshToken: "1//" + GenerateRandomString(32),
		ExpiresAt:    expiry,
		TokenType:    domain.TokenTypeBearer,
	}
}

// GenerateTestAuthorizationState creates a pending authorization state with a valid PKCE pair
func GenerateTestAuthorizationState() *domain.AuthorizationState {
	pkce := GeneratePKCEPair()
	return &domain.AuthorizationState{
		StateValue:    GenerateRandomString(43),
		CodeVerifier:  pkce.Verifier,
		CodeChallenge: pkce.Challenge,
	}
}

// GenerateRandomString generates a random base64url string of the given length
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// GeneratePKCEPair generates a valid S256 verifier and challenge pair
func GeneratePKCEPair() domain.PKCEChallenge {
	verifier := GenerateRandomString(43)
	hash := sha256.Sum256([]byte(verifier))
	return domain.PKCEChallenge{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(hash[:]),
	}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertErrorKind fails the test unless err is a domain error of kind
func AssertErrorKind(t *testing.T, err error, kind domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error but got nil", kind)
	}
	got, ok := domain.KindOf(err)
	if !ok {
		t.Fatalf("expected %s error but got non-domain error: %v", kind, err)
	}
	if got != kind {
		t.Fatalf("error kind = %s, want %s (%v)", got, kind, err)
	}
}

// AssertEqual fails the test if got != want
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertTimeEqual asserts two times are equal within a tolerance
func AssertTimeEqual(t *testing.T, got, want time.Time, tolerance time.Duration) {
	t.Helper()
	diff := got.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		t.Errorf("time mismatch: got %v, want %v (tolerance: %v, diff: %v)", got, want, tolerance, diff)
	}
}

// FailingReader is an io.Reader whose reads always fail
type FailingReader struct{}

// ErrRandomUnavailable is returned by FailingReader.
var ErrRandomUnavailable = errors.New("entropy source unavailable")

func (FailingReader) Read([]byte) (int, error) { return 0, ErrRandomUnavailable }

var _ io.Reader = FailingReader{}

// HTTPRequest is a helper for making test HTTP requests
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Cookies []*http.Cookie
	Body    string
}

// NewHTTPRequest creates a new HTTP request helper
func NewHTTPRequest(method, url string) *HTTPRequest {
	return &HTTPRequest{
		Method:  method,
		URL:     url,
		Headers: make(map[string]string),
	}
}

// WithHeader adds a header to the request
func (r *HTTPRequest) WithHeader(key, value string) *HTTPRequest {
	r.Headers[key] = value
	return r
}

// WithCookie adds a cookie to the request
func (r *HTTPRequest) WithCookie(c *http.Cookie) *HTTPRequest {
	r.Cookies = append(r.Cookies, c)
	return r
}

// WithBody sets the request body
func (r *HTTPRequest) WithBody(body string) *HTTPRequest {
	r.Body = body
	return r
}

// Do executes the HTTP request against handler
func (r *HTTPRequest) Do(handler http.Handler) *httptest.ResponseRecorder {
	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.URL, body)
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range r.Cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
