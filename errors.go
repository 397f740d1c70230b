package oauth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/security"
)

// ErrorCodeInternal is the wire code for errors outside the domain taxonomy
const ErrorCodeInternal = "internal_error"

// ErrorResponse is the JSON body of every error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	kind, ok := domain.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case domain.KindAuthentication, domain.KindInvalidState, domain.KindTokenExchange:
		return http.StatusUnauthorized
	case domain.KindResourceNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindExternalService:
		return http.StatusServiceUnavailable
	case domain.KindQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the response body for err. Errors outside the
// domain taxonomy are reported without their message.
func NewErrorResponse(err error) ErrorResponse {
	var de domain.Error
	if err == nil || !errors.As(err, &de) {
		return ErrorResponse{Error: ErrorCodeInternal, Message: "Internal server error"}
	}

	resp := ErrorResponse{Error: de.Kind().String(), Message: de.Error()}
	switch e := de.(type) {
	case *domain.AuthenticationError:
		resp.Message = e.Message
		resp.Details = e.Details
	case *domain.InvalidStateError:
		resp.Message = e.Message
	case *domain.TokenExchangeError:
		resp.Message = e.Message
	case *domain.ExternalServiceError:
		// Upstream causes may carry URLs or payloads
		resp.Message = e.Service + ": " + e.Message
	case *domain.InvalidInputError:
		resp.Message = e.Message
		resp.Details = e.Field
	}
	return resp
}

// writeError renders err as JSON with the status from StatusFor.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	security.SetSecurityHeaders(w, h.config.BaseURL)

	status := StatusFor(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", domain.TokenTypeBearer)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "status", status, "error", err)
	}

	h.writeJSON(w, status, NewErrorResponse(err))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("Failed to encode response", "error", err)
	}
}
