// Package domain holds the data model shared by every layer: the session
// token, the authorization state of a PKCE flow, the caller session, and the
// closed set of error kinds.
//
// # Errors
//
// Every failure crossing a package boundary is one of seven kinds:
//
//	AuthenticationError     no usable credential
//	InvalidStateError       CSRF state mismatch
//	TokenExchangeError      provider rejected a code or refresh token
//	ExternalServiceError    backing store or remote service failure
//	InvalidInputError       rejected input field
//	ResourceNotFoundError   missing or expired record
//	QuotaExceededError      daily budget would be overrun
//
// Callers discriminate with errors.As or KindOf. The Error interface is
// sealed, so no other package can add a kind.
package domain
