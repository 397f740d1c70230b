package security

// Audit event types.
const (
	// Authorization flow

	EventAuthorizationStarted = "authorization_started"
	// EventAuthorizationSucceeded is logged when a code is exchanged for a token.
	EventAuthorizationSucceeded = "authorization_succeeded"
	// EventAuthorizationReplayed is logged when a callback hits an already processed state.
	EventAuthorizationReplayed = "authorization_replayed"
	EventAuthorizationDenied   = "authorization_denied"
	EventStateMismatch         = "state_mismatch"
	EventCodeExchangeFailed    = "code_exchange_failed"
	// EventStatePersistFailed marks the window where a token was minted upstream
	// but the state could not be marked processed.
	EventStatePersistFailed = "state_persist_failed"

	// Session token lifecycle

	EventTokenRefreshed     = "token_refreshed"
	EventTokenRefreshFailed = "token_refresh_failed"
	EventSessionCreated     = "session_created"
	EventSessionEnded       = "session_ended"
	EventAuthFailure        = "auth_failure"

	// Limits

	EventQuotaExceeded     = "quota_exceeded"
	EventRateLimitExceeded = "rate_limit_exceeded"
)
