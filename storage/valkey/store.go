package valkey

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	valkeygo "github.com/valkey-io/valkey-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/instrumentation"
	"github.com/giantswarm/youtube-oauth/security"
	"github.com/giantswarm/youtube-oauth/storage"
)

const (
	// DefaultKeyPrefix is the default prefix for all Valkey keys
	DefaultKeyPrefix = "ytoauth:"

	backendName = "valkey"

	// serviceName is reported in ExternalServiceError when Valkey fails
	serviceName = "Valkey"

	// stateLogLength is the number of characters of a state value included in logs
	stateLogLength = 8

	// connectionVerifyTimeout is the timeout for initial connection verification
	connectionVerifyTimeout = 5 * time.Second

	// MaxRecordSize is the maximum size of a serialized record (64KB)
	MaxRecordSize = 64 * 1024
)

// Config holds configuration for the Valkey storage backend.
type Config struct {
	// Address is the Valkey server address (required), e.g., "localhost:6379"
	Address string

	// Password is the optional password for Valkey authentication
	Password string

	// DB is the optional database number (default 0)
	DB int

	// KeyPrefix is the prefix for all keys (default "ytoauth:")
	KeyPrefix string

	// TLS is the optional TLS configuration for encrypted connections
	TLS *tls.Config

	// Logger is the optional structured logger (default: slog.Default())
	Logger *slog.Logger
}

// Store is a Valkey-backed implementation of AuthStateStore, TokenStore and QuotaStore.
type Store struct {
	client valkeygo.Client
	prefix string
	logger *slog.Logger

	// encryptor provides optional encryption at rest
	// Access must be synchronized via encryptorMu
	encryptor   *security.Encryptor
	encryptorMu sync.RWMutex

	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer
}

// Compile-time interface checks
var (
	_ storage.AuthStateStore = (*Store)(nil)
	_ storage.TokenStore     = (*Store)(nil)
	_ storage.QuotaStore     = (*Store)(nil)
)

// New creates a new Valkey-backed storage instance.
// Returns an error if the connection cannot be established.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	opts := valkeygo.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.TLS != nil {
		opts.TLSConfig = cfg.TLS
	}

	client, err := valkeygo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client. The caller keeps ownership of
// connection setup; Close still closes the client.
func NewWithClient(client valkeygo.Client, cfg Config) *Store {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Connected to Valkey storage",
		"address", cfg.Address,
		"db", cfg.DB,
		"prefix", prefix)

	return &Store{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Close closes the Valkey client connection.
func (s *Store) Close() {
	s.client.Close()
	s.logger.Info("Valkey storage connection closed")
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return storage.Unavailable(serviceName, "ping", err)
	}
	return nil
}

// SetLogger sets a custom logger for the store.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetEncryptor sets the encryptor for tokens and code verifiers at rest.
func (s *Store) SetEncryptor(enc *security.Encryptor) {
	s.encryptorMu.Lock()
	defer s.encryptorMu.Unlock()
	s.encryptor = enc
	if enc.IsEnabled() {
		s.logger.Info("Token encryption at rest enabled for Valkey storage")
	}
}

// SetInstrumentation sets OpenTelemetry instrumentation for the store
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.instrumentation = inst
	if inst != nil {
		s.tracer = inst.Tracer("storage")
	}
}

// getEncryptor returns the current encryptor (thread-safe)
func (s *Store) getEncryptor() *security.Encryptor {
	s.encryptorMu.RLock()
	defer s.encryptorMu.RUnlock()
	return s.encryptor
}

// ============================================================
// Key helpers
// ============================================================

func (s *Store) stateKey(stateValue string) string {
	return s.prefix + storage.StateKeyPrefix + stateValue
}

func (s *Store) tokenKey(sessionID string) string {
	return s.prefix + storage.TokenKeyPrefix + sessionID
}

// quotaKey prefixes a counter key that already carries storage.QuotaKeyPrefix.
func (s *Store) quotaKey(key string) string {
	return s.prefix + key
}

// ============================================================
// Lua scripts
// ============================================================

// luaMarkStateProcessed atomically marks a state record as processed and
// attaches the (already encrypted) token fields, keeping the key's TTL.
//
// KEYS[1] = state key
// ARGV[1] = access token ("" for none)
// ARGV[2] = refresh token ("" for none)
// ARGV[3] = expires_at (RFC 3339)
// ARGV[4] = token type
//
// Returns "OK" or "NOT_FOUND" (missing key or no TTL left).
const luaMarkStateProcessed = `
local data = redis.call('GET', KEYS[1])
if not data then
    return 'NOT_FOUND'
end
if redis.call('PTTL', KEYS[1]) < 0 then
    return 'NOT_FOUND'
end

local state = cjson.decode(data)
state.processed = true
if ARGV[1] ~= '' then
    state.access_token = ARGV[1]
    if ARGV[2] ~= '' then
        state.refresh_token = ARGV[2]
    else
        state.refresh_token = nil
    end
    state.expires_at = ARGV[3]
    state.token_type = ARGV[4]
end

redis.call('SET', KEYS[1], cjson.encode(state), 'KEEPTTL')
return 'OK'
`

// luaIncrementWithinLimit atomically increments a counter unless the limit
// would be exceeded.
//
// KEYS[1] = counter key
// ARGV[1] = units
// ARGV[2] = limit
// ARGV[3] = TTL in milliseconds, applied on the first increment
//
// Returns {allowed (0|1), usage}. A rejected charge writes nothing and
// reports the current value, so an over-limit first charge never leaves a
// counter without a TTL.
const luaIncrementWithinLimit = `
local units = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local current = tonumber(redis.call('GET', KEYS[1]) or '0')

if units > limit - current then
    return {0, current}
end

local next = redis.call('INCRBY', KEYS[1], units)

if next == units or redis.call('PTTL', KEYS[1]) == -1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return {1, next}
`

// ============================================================
// Instrumentation Helpers
// ============================================================

// startStorageSpan starts a new span for a storage operation
func (s *Store) startStorageSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return s.tracer.Start(ctx, fmt.Sprintf("storage.%s", operation),
		trace.WithAttributes(
			attribute.String(instrumentation.AttrStorageOperation, operation),
			attribute.String(instrumentation.AttrStorageType, backendName),
		))
}

// recordStorageOperation records metrics for a storage operation and ends the span
func (s *Store) recordStorageOperation(ctx context.Context, span trace.Span, operation string, err error, startTime time.Time) {
	if s.instrumentation == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "error"
		if domain.IsKind(err, domain.KindResourceNotFound) {
			result = "not_found"
		}
	}
	s.instrumentation.Metrics().RecordStorageOperation(ctx, operation, result, float64(time.Since(startTime).Milliseconds()))
	instrumentation.EndSpan(span, err)
}

// isNilError checks if the error indicates a nil/not-found result from Valkey.
func isNilError(err error) bool {
	return valkeygo.IsValkeyNil(err)
}

// validateTTL rejects TTLs that SET EX cannot express.
func validateTTL(ttl time.Duration) error {
	if ttl < time.Second {
		return domain.NewInvalidInputError("ttl", "ttl must be at least one second")
	}
	return nil
}
