package domain

import (
	"strings"
)

// PKCEMethodS256 is the only code challenge method issued.
const PKCEMethodS256 = "S256"

// PKCEChallenge is a verifier and its derived S256 challenge.
type PKCEChallenge struct {
	Verifier  string
	Challenge string
}

// AuthorizationState is a pending or processed authorization attempt,
// keyed by its state value.
type AuthorizationState struct {
	StateValue     string
	CodeVerifier   string
	CodeChallenge  string
	Processed      bool
	ProcessedToken *Token
}

// NewAuthorizationState builds a pending state for the given PKCE pair.
func NewAuthorizationState(stateValue string, pkce PKCEChallenge) (*AuthorizationState, error) {
	if strings.TrimSpace(stateValue) == "" {
		return nil, NewInvalidInputError("state", "state value cannot be blank")
	}
	return &AuthorizationState{
		StateValue:    stateValue,
		CodeVerifier:  pkce.Verifier,
		CodeChallenge: pkce.Challenge,
	}, nil
}

// MarkProcessed returns a copy of s in the processed state caching token.
func (s *AuthorizationState) MarkProcessed(token *Token) *AuthorizationState {
	cp := *s
	cp.Processed = true
	cp.ProcessedToken = token
	return &cp
}
