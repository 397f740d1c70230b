package domain

import (
	"errors"
	"fmt"
)

// Kind identifies one of the fixed error variants returned by the core.
type Kind int

// Error kinds. The set is closed; every error produced by the core is one of these.
const (
	KindAuthentication Kind = iota + 1
	KindInvalidState
	KindTokenExchange
	KindExternalService
	KindInvalidInput
	KindResourceNotFound
	KindQuotaExceeded
)

// Kinds lists every error kind, in declaration order.
var Kinds = []Kind{
	KindAuthentication,
	KindInvalidState,
	KindTokenExchange,
	KindExternalService,
	KindInvalidInput,
	KindResourceNotFound,
	KindQuotaExceeded,
}

// String returns the wire code for the kind.
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication_error"
	case KindInvalidState:
		return "invalid_state"
	case KindTokenExchange:
		return "token_exchange_error"
	case KindExternalService:
		return "external_service_error"
	case KindInvalidInput:
		return "invalid_input"
	case KindResourceNotFound:
		return "resource_not_found"
	case KindQuotaExceeded:
		return "quota_exceeded"
	default:
		return "unknown"
	}
}

// Error is implemented only by the error types in this package.
type Error interface {
	error
	Kind() Kind
	sealed()
}

// AuthenticationError means the caller has no usable credential.
type AuthenticationError struct {
	Message string
	Details string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(message, details string) *AuthenticationError {
	return &AuthenticationError{Message: message, Details: details}
}

func (e *AuthenticationError) Error() string {
	if e.Details == "" {
		return "authentication failed: " + e.Message
	}
	return fmt.Sprintf("authentication failed: %s (%s)", e.Message, e.Details)
}

// Kind implements Error.
func (e *AuthenticationError) Kind() Kind { return KindAuthentication }
func (e *AuthenticationError) sealed()    {}

// InvalidStateError means the CSRF state echoed by the provider did not match.
type InvalidStateError struct {
	Message string
}

// NewInvalidStateError creates an InvalidStateError.
func NewInvalidStateError(message string) *InvalidStateError {
	return &InvalidStateError{Message: message}
}

func (e *InvalidStateError) Error() string {
	return "invalid state: " + e.Message
}

// Kind implements Error.
func (e *InvalidStateError) Kind() Kind { return KindInvalidState }
func (e *InvalidStateError) sealed()    {}

// TokenExchangeError means the identity provider rejected a code or refresh token.
type TokenExchangeError struct {
	Message string
	Cause   error
}

// NewTokenExchangeError creates a TokenExchangeError.
func NewTokenExchangeError(message string, cause error) *TokenExchangeError {
	return &TokenExchangeError{Message: message, Cause: cause}
}

func (e *TokenExchangeError) Error() string {
	if e.Cause == nil {
		return "token exchange failed: " + e.Message
	}
	return fmt.Sprintf("token exchange failed: %s: %v", e.Message, e.Cause)
}

func (e *TokenExchangeError) Unwrap() error { return e.Cause }

// Kind implements Error.
func (e *TokenExchangeError) Kind() Kind { return KindTokenExchange }
func (e *TokenExchangeError) sealed()    {}

// ExternalServiceError wraps a failure of a backing store or remote service.
type ExternalServiceError struct {
	Service string
	Message string
	Cause   error
}

// NewExternalServiceError creates an ExternalServiceError.
func NewExternalServiceError(service, message string, cause error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Message: message, Cause: cause}
}

func (e *ExternalServiceError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Message, e.Cause)
}

func (e *ExternalServiceError) Unwrap() error { return e.Cause }

// Kind implements Error.
func (e *ExternalServiceError) Kind() Kind { return KindExternalService }
func (e *ExternalServiceError) sealed()    {}

// InvalidInputError reports a rejected input field.
type InvalidInputError struct {
	Field   string
	Message string
}

// NewInvalidInputError creates an InvalidInputError.
func NewInvalidInputError(field, message string) *InvalidInputError {
	return &InvalidInputError{Field: field, Message: message}
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Kind implements Error.
func (e *InvalidInputError) Kind() Kind { return KindInvalidInput }
func (e *InvalidInputError) sealed()    {}

// ResourceNotFoundError reports a missing or expired record.
type ResourceNotFoundError struct {
	Resource string
	ID       string
}

// NewResourceNotFoundError creates a ResourceNotFoundError.
func NewResourceNotFoundError(resource, id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{Resource: resource, ID: id}
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Kind implements Error.
func (e *ResourceNotFoundError) Kind() Kind { return KindResourceNotFound }
func (e *ResourceNotFoundError) sealed()    {}

// QuotaExceededError reports that a charge would overrun the daily budget.
// Usage is the usage before the rejected charge.
type QuotaExceededError struct {
	Usage int64
	Limit int64
}

// NewQuotaExceededError creates a QuotaExceededError.
func NewQuotaExceededError(usage, limit int64) *QuotaExceededError {
	return &QuotaExceededError{Usage: usage, Limit: limit}
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota exceeded: %d/%d units used", e.Usage, e.Limit)
}

// Kind implements Error.
func (e *QuotaExceededError) Kind() Kind { return KindQuotaExceeded }
func (e *QuotaExceededError) sealed()    {}

// KindOf returns the kind of the first domain error in err's chain.
// ok is false when err carries no domain error.
func KindOf(err error) (kind Kind, ok bool) {
	var de Error
	if err == nil || !errors.As(err, &de) {
		return 0, false
	}
	return de.Kind(), true
}

// IsKind reports whether err carries a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
