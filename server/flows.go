package server

import (
	"context"
	"crypto/subtle"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/instrumentation"
	"github.com/giantswarm/youtube-oauth/internal/util"
	"github.com/giantswarm/youtube-oauth/security"
)

// stateLogLength is the number of characters of a state value included in logs
const stateLogLength = 8

// Callback results reported to metrics and traces.
const (
	resultSuccess       = "success"
	resultReplayed      = "replayed"
	resultNotFound      = "not_found"
	resultInvalidState  = "invalid_state"
	resultExchangeFail  = "exchange_failed"
	resultPersistFailed = "persist_failed"
	resultStoreError    = "store_error"
)

// Initiate starts an authorization: it creates a PKCE pair and a state
// value, persists the pending state and returns the provider URL the user
// must visit.
func (s *Server) Initiate(ctx context.Context) (authURL string, err error) {
	ctx, span := s.instrumentation.Tracer("server").Start(ctx, "oauth.initiate")
	defer func() { instrumentation.EndSpan(span, err) }()

	pkce, err := s.pkce.Generate()
	if err != nil {
		s.Logger.Error("Failed to generate PKCE challenge", "error", err)
		return "", err
	}

	stateValue, err := security.GenerateState()
	if err != nil {
		s.Logger.Error("Failed to generate state", "error", err)
		return "", err
	}

	state, err := domain.NewAuthorizationState(stateValue, pkce)
	if err != nil {
		return "", err
	}

	if err := s.stateStore.SaveState(ctx, state, s.Config.StateTTL); err != nil {
		s.Logger.Error("Failed to save authorization state", "error", err)
		return "", err
	}

	span.SetAttributes(attribute.String(instrumentation.AttrPKCEMethod, domain.PKCEMethodS256))
	s.instrumentation.Metrics().RecordAuthorizationStarted(ctx)
	s.Logger.Info("Started authorization",
		"provider", s.gateway.Name(),
		"state", util.SafeTruncate(stateValue, stateLogLength))

	return s.gateway.AuthorizationURL(stateValue, pkce.Challenge), nil
}

// ExchangeCodeForToken completes an authorization for the given callback.
//
// A state is exchanged upstream at most once. If the state was already
// processed the cached token is returned and the provider is not called.
// Concurrent callbacks for one state value share a single execution.
func (s *Server) ExchangeCodeForToken(ctx context.Context, code, stateValue string) (*domain.Token, error) {
	v, err, _ := s.exchanges.Do(stateValue, func() (any, error) {
		return s.exchangeCodeForToken(ctx, code, stateValue)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Token), nil
}

func (s *Server) exchangeCodeForToken(ctx context.Context, code, stateValue string) (token *domain.Token, err error) {
	ctx, span := s.instrumentation.Tracer("server").Start(ctx, "oauth.exchange_code",
		trace.WithAttributes(attribute.Bool(instrumentation.AttrStatePresent, stateValue != "")))
	result := resultSuccess
	defer func() {
		span.SetAttributes(attribute.String(instrumentation.AttrCallbackResult, result))
		s.instrumentation.Metrics().RecordCallbackProcessed(ctx, result)
		instrumentation.EndSpan(span, err)
	}()

	logState := util.SafeTruncate(stateValue, stateLogLength)

	state, err := s.stateStore.FindByState(ctx, stateValue)
	if err != nil {
		result = resultNotFound
		if !domain.IsKind(err, domain.KindResourceNotFound) {
			result = resultStoreError
		}
		s.Logger.Warn("Authorization state lookup failed", "state", logState, "error", err)
		return nil, err
	}

	if state.Processed {
		if state.ProcessedToken == nil {
			result = resultInvalidState
			return nil, domain.NewInvalidStateError("state has already been used")
		}
		result = resultReplayed
		span.SetAttributes(attribute.Bool(instrumentation.AttrStateProcessed, true))
		s.Auditor.LogEvent(security.Event{
			Type:    security.EventAuthorizationReplayed,
			Details: map[string]any{"state": logState},
		})
		s.Logger.Info("Returning cached token for processed state", "state", logState)
		return state.ProcessedToken, nil
	}

	if err := validateState(stateValue, state.StateValue); err != nil {
		result = resultInvalidState
		s.Auditor.LogEvent(security.Event{
			Type:    security.EventStateMismatch,
			Details: map[string]any{"state": logState},
		})
		return nil, err
	}

	token, err = s.gateway.ExchangeCode(ctx, code, state.CodeVerifier)
	if err != nil {
		result = resultExchangeFail
		s.Auditor.LogEvent(security.Event{
			Type: security.EventCodeExchangeFailed,
			Details: map[string]any{
				"state":    logState,
				"provider": s.gateway.Name(),
			},
		})
		s.Logger.Warn("Code exchange failed", "state", logState, "error", err)
		return nil, domain.NewTokenExchangeError("failed to exchange code for token", err)
	}

	if err := s.stateStore.MarkProcessed(ctx, stateValue, token); err != nil {
		// The code is spent upstream but the state still reads as pending.
		result = resultPersistFailed
		s.Auditor.LogEvent(security.Event{
			Type:    security.EventStatePersistFailed,
			Details: map[string]any{"state": logState},
		})
		s.Logger.Error("Token issued but state could not be marked processed",
			"state", logState,
			"error", err)
		return nil, asExternalServiceError("AuthStateStore", "failed to mark state processed", err)
	}

	instrumentation.AddTokenAttributes(span, token.TokenType, token.ExpiresIn())
	s.Auditor.LogEvent(security.Event{
		Type: security.EventAuthorizationSucceeded,
		Details: map[string]any{
			"provider":          s.gateway.Name(),
			"has_refresh_token": token.HasRefreshToken(),
		},
	})
	s.Logger.Info("Authorization completed", "state", logState)
	return token, nil
}

// validateState compares the callback state with the stored one in
// constant time. Blank values never match.
func validateState(provided, stored string) error {
	if strings.TrimSpace(provided) == "" || strings.TrimSpace(stored) == "" {
		return domain.NewInvalidStateError("state parameter is missing")
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) != 1 {
		return domain.NewInvalidStateError("state parameter does not match")
	}
	return nil
}

// Refresh runs a refresh grant for the token bound to sessionID and stores
// the result. The previous refresh token is kept when the provider does not
// return a new one.
func (s *Server) Refresh(ctx context.Context, sessionID string) (token *domain.Token, err error) {
	ctx, span := s.instrumentation.Tracer("server").Start(ctx, "oauth.refresh")
	defer func() { instrumentation.EndSpan(span, err) }()

	current, err := s.tokenStore.FindToken(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !current.HasRefreshToken() {
		s.Auditor.LogEvent(security.Event{
			Type:      security.EventTokenRefreshFailed,
			SessionID: sessionID,
			Details:   map[string]any{"reason": "no_refresh_token"},
		})
		return nil, domain.NewAuthenticationError("no refresh token available", "token does not have a refresh token")
	}

	refreshed, err := s.gateway.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		s.instrumentation.Metrics().RecordTokenRefresh(ctx, false, false)
		s.Auditor.LogEvent(security.Event{
			Type:      security.EventTokenRefreshFailed,
			SessionID: sessionID,
			Details:   map[string]any{"reason": "provider_error"},
		})
		s.Logger.Warn("Token refresh failed", "provider", s.gateway.Name(), "error", err)
		return nil, domain.NewTokenExchangeError("failed to refresh token", err)
	}

	rotated := refreshed.HasRefreshToken() && refreshed.RefreshToken != current.RefreshToken
	token = refreshed.WithRefreshTokenFallback(current.RefreshToken)

	if err := s.tokenStore.SaveToken(ctx, sessionID, token, s.Config.SessionTTL); err != nil {
		s.Logger.Error("Failed to store refreshed token", "error", err)
		return nil, asExternalServiceError("TokenStore", "failed to store refreshed token", err)
	}

	span.SetAttributes(attribute.Bool(instrumentation.AttrTokenRotated, rotated))
	s.instrumentation.Metrics().RecordTokenRefresh(ctx, true, rotated)
	s.Auditor.LogTokenRefreshed(sessionID, rotated)
	return token, nil
}

// asExternalServiceError keeps an ExternalServiceError as is and wraps
// anything else.
func asExternalServiceError(service, message string, err error) error {
	if domain.IsKind(err, domain.KindExternalService) {
		return err
	}
	return domain.NewExternalServiceError(service, message, err)
}
