package oauth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/youtube-oauth/internal/util"
	"github.com/giantswarm/youtube-oauth/providers/google"
	"github.com/giantswarm/youtube-oauth/quota"
	"github.com/giantswarm/youtube-oauth/security"
	"github.com/giantswarm/youtube-oauth/server"
)

// Storage backends
const (
	StorageBackendMemory = "memory"
	StorageBackendValkey = "valkey"
)

// Defaults applied by LoadConfigFromEnv
const (
	DefaultHTTPAddr          = ":8080"
	DefaultBaseURL           = "http://localhost:8080"
	DefaultFrontendURL       = "http://localhost:3000"
	DefaultSessionCookieName = "YOUTUBE_SESSION"
	DefaultValkeyAddr        = "localhost:6379"
	DefaultRateLimitRPS      = 10
	DefaultRateLimitBurst    = 20
	DefaultMetricsAddr       = ":9090"
)

// Config holds the service configuration
// Structured using composition to keep each concern separate
type Config struct {
	// HTTPAddr is the listen address of the API server
	HTTPAddr string

	// BaseURL is the public URL of this service
	BaseURL string

	// FrontendURL receives the browser after the OAuth callback
	FrontendURL string

	// Google OAuth credentials and settings
	Google GoogleConfig

	// Storage backend settings
	Storage StorageConfig

	// Session cookie settings
	Session SessionConfig

	// Daily YouTube quota settings
	Quota QuotaConfig

	// Per-IP rate limiting
	RateLimit RateLimitConfig

	// Security settings (secure by default)
	Security SecurityConfig

	// Logging settings
	Logging LoggingConfig

	// Metrics settings
	Metrics MetricsConfig
}

// GoogleConfig holds the Google OAuth client registration
type GoogleConfig struct {
	// ClientID is the Google OAuth Client ID (required)
	ClientID string

	// ClientSecret is the Google OAuth Client Secret (required)
	ClientSecret string

	// RedirectURL is where Google redirects after authentication
	// Default: BaseURL + "/v1/auth/google/callback"
	RedirectURL string

	// Scopes requested from Google
	// Default: https://www.googleapis.com/auth/youtube
	Scopes []string
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	// Backend is "memory" (default) or "valkey"
	Backend string

	ValkeyAddr      string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
	ValkeyTLS       bool
}

// SessionConfig holds the browser session settings
type SessionConfig struct {
	// TTL is both the cookie Max-Age and the TTL of the stored token
	// Default: 30 minutes
	TTL time.Duration

	// CookieName is the name of the session cookie
	// Default: YOUTUBE_SESSION
	CookieName string

	// CookieSecure sets the Secure attribute on the session cookie
	// Default: true when BaseURL is https
	CookieSecure bool
}

// QuotaConfig holds the daily quota budget
type QuotaConfig struct {
	// DailyLimit in quota units. Default: 10000
	DailyLimit int64

	// Timezone whose midnight resets the budget
	// Default: America/Los_Angeles
	Timezone string
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerSecond allowed per IP. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the maximum burst size allowed per IP
	Burst int

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool

	// TrustedProxyCount is the number of proxies appending to X-Forwarded-For
	TrustedProxyCount int
}

// SecurityConfig holds token protection and auditing settings
type SecurityConfig struct {
	// EncryptionKey is the AES-256 key (32 bytes) for token encryption at rest.
	// Nil disables encryption.
	EncryptionKey []byte

	// EnableAuditLogging enables security audit logging (sensitive data hashed)
	// Default: true
	EnableAuditLogging bool
}

// LoggingConfig selects the log handler
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string

	// Format is json or text. Default: json
	Format string
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	// Enabled turns on OpenTelemetry metrics and tracing
	Enabled bool

	// Addr serves /metrics. Default: :9090
	Addr string
}

// LoadConfigFromEnv reads the configuration from environment variables,
// applies defaults and validates the result.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    getEnvOrDefault("HTTP_ADDR", DefaultHTTPAddr),
		BaseURL:     getEnvOrDefault("BASE_URL", DefaultBaseURL),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", DefaultFrontendURL),
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URI"),
			Scopes:       util.SplitList(os.Getenv("GOOGLE_SCOPES")),
		},
		Storage: StorageConfig{
			Backend:         getEnvOrDefault("STORAGE_BACKEND", StorageBackendMemory),
			ValkeyAddr:      getEnvOrDefault("VALKEY_ADDR", DefaultValkeyAddr),
			ValkeyPassword:  os.Getenv("VALKEY_PASSWORD"),
			ValkeyDB:        getEnvIntOrDefault("VALKEY_DB", 0),
			ValkeyKeyPrefix: os.Getenv("VALKEY_KEY_PREFIX"),
			ValkeyTLS:       getEnvBoolOrDefault("VALKEY_TLS", false),
		},
		Session: SessionConfig{
			TTL:          getEnvDurationOrDefault("SESSION_TTL", server.DefaultSessionTTL),
			CookieName:   getEnvOrDefault("SESSION_COOKIE_NAME", DefaultSessionCookieName),
			CookieSecure: getEnvBoolOrDefault("SESSION_COOKIE_SECURE", strings.HasPrefix(os.Getenv("BASE_URL"), "https://")),
		},
		Quota: QuotaConfig{
			DailyLimit: int64(getEnvIntOrDefault("QUOTA_DAILY_LIMIT", int(quota.DailyLimit))),
			Timezone:   getEnvOrDefault("QUOTA_TIMEZONE", quota.DefaultTimezone),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloatOrDefault("RATE_LIMIT_RPS", DefaultRateLimitRPS),
			Burst:             getEnvIntOrDefault("RATE_LIMIT_BURST", DefaultRateLimitBurst),
			TrustProxy:        getEnvBoolOrDefault("TRUST_PROXY", false),
			TrustedProxyCount: getEnvIntOrDefault("TRUSTED_PROXY_COUNT", 1),
		},
		Security: SecurityConfig{
			EnableAuditLogging: getEnvBoolOrDefault("AUDIT_LOGGING", true),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBoolOrDefault("METRICS_ENABLED", false),
			Addr:    getEnvOrDefault("METRICS_ADDR", DefaultMetricsAddr),
		},
	}

	key, err := encryptionKeyFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Security.EncryptionKey = key

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// encryptionKeyFromEnv reads TOKEN_ENCRYPTION_KEY (base64, 32 bytes) or
// derives a key from TOKEN_ENCRYPTION_SECRET. Neither set means no
// encryption.
func encryptionKeyFromEnv() ([]byte, error) {
	if encoded := os.Getenv("TOKEN_ENCRYPTION_KEY"); encoded != "" {
		key, err := security.KeyFromBase64(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_ENCRYPTION_KEY: %w", err)
		}
		return key, nil
	}
	if secret := os.Getenv("TOKEN_ENCRYPTION_SECRET"); secret != "" {
		key, err := security.DeriveKey(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		return key, nil
	}
	return nil, nil
}

// applyDefaults fills in zero values that cannot come from the environment
// helpers (for configs built in code).
func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	cfg.BaseURL = util.NormalizeURL(cfg.BaseURL)
	if cfg.Google.RedirectURL == "" && cfg.BaseURL != "" {
		cfg.Google.RedirectURL = cfg.BaseURL + "/v1/auth/google/callback"
	}
	if len(cfg.Google.Scopes) == 0 {
		cfg.Google.Scopes = google.DefaultScopes
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageBackendMemory
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = server.DefaultSessionTTL
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = DefaultSessionCookieName
	}
	if cfg.Quota.DailyLimit == 0 {
		cfg.Quota.DailyLimit = quota.DailyLimit
	}
	if cfg.Quota.Timezone == "" {
		cfg.Quota.Timezone = quota.DefaultTimezone
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Google.ClientID == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID is required"))
	}
	if c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_SECRET is required"))
	}
	for name, raw := range map[string]string{
		"BASE_URL":            c.BaseURL,
		"FRONTEND_URL":        c.FrontendURL,
		"GOOGLE_REDIRECT_URI": c.Google.RedirectURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	switch c.Storage.Backend {
	case StorageBackendMemory:
	case StorageBackendValkey:
		if c.Storage.ValkeyAddr == "" {
			errs = append(errs, errors.New("VALKEY_ADDR is required for the valkey backend"))
		}
		if c.Storage.ValkeyDB < 0 {
			errs = append(errs, fmt.Errorf("VALKEY_DB must not be negative, got %d", c.Storage.ValkeyDB))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q",
			StorageBackendMemory, StorageBackendValkey, c.Storage.Backend))
	}

	if c.Session.TTL < time.Second {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be at least 1s, got %s", c.Session.TTL))
	}
	if c.Quota.DailyLimit < 0 {
		errs = append(errs, fmt.Errorf("QUOTA_DAILY_LIMIT must not be negative, got %d", c.Quota.DailyLimit))
	}
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("QUOTA_TIMEZONE: %w", err))
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative"))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must be positive when rate limiting is enabled"))
	}
	if len(c.Security.EncryptionKey) != 0 && len(c.Security.EncryptionKey) != 32 {
		errs = append(errs, fmt.Errorf("encryption key must be 32 bytes, got %d", len(c.Security.EncryptionKey)))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value == "yes"
}
