package storage

import (
	"fmt"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/security"
)

// StateRecord is the serialized form of an AuthorizationState.
// The code verifier and any cached tokens are encrypted when an encryptor is enabled.
type StateRecord struct {
	StateValue    string     `json:"state_value"`
	CodeVerifier  string     `json:"code_verifier"`
	CodeChallenge string     `json:"code_challenge"`
	Processed     bool       `json:"processed"`
	AccessToken   string     `json:"access_token,omitempty"`
	RefreshToken  string     `json:"refresh_token,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	TokenType     string     `json:"token_type,omitempty"`
}

// TokenRecord is the serialized form of a session Token.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// NewStateRecord encodes state, encrypting secrets with enc.
func NewStateRecord(state *domain.AuthorizationState, enc *security.Encryptor) (*StateRecord, error) {
	verifier, err := encryptField(enc, "code verifier", state.CodeVerifier)
	if err != nil {
		return nil, err
	}
	rec := &StateRecord{
		StateValue:    state.StateValue,
		CodeVerifier:  verifier,
		CodeChallenge: state.CodeChallenge,
		Processed:     state.Processed,
	}
	if state.ProcessedToken != nil {
		if err := rec.attachToken(state.ProcessedToken, enc); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// MarkProcessed sets the processed flag and caches token on the record.
func (r *StateRecord) MarkProcessed(token *domain.Token, enc *security.Encryptor) error {
	r.Processed = true
	if token == nil {
		return nil
	}
	return r.attachToken(token, enc)
}

func (r *StateRecord) attachToken(token *domain.Token, enc *security.Encryptor) error {
	tr, err := NewTokenRecord(token, enc)
	if err != nil {
		return err
	}
	expiresAt := tr.ExpiresAt
	r.AccessToken = tr.AccessToken
	r.RefreshToken = tr.RefreshToken
	r.ExpiresAt = &expiresAt
	r.TokenType = tr.TokenType
	return nil
}

// AuthorizationState decodes the record, decrypting secrets with enc.
func (r *StateRecord) AuthorizationState(enc *security.Encryptor) (*domain.AuthorizationState, error) {
	verifier, err := decryptField(enc, "code verifier", r.CodeVerifier)
	if err != nil {
		return nil, err
	}
	state := &domain.AuthorizationState{
		StateValue:    r.StateValue,
		CodeVerifier:  verifier,
		CodeChallenge: r.CodeChallenge,
		Processed:     r.Processed,
	}
	if r.AccessToken != "" && r.ExpiresAt != nil {
		tr := TokenRecord{
			AccessToken:  r.AccessToken,
			RefreshToken: r.RefreshToken,
			ExpiresAt:    *r.ExpiresAt,
			TokenType:    r.TokenType,
		}
		token, err := tr.Token(enc)
		if err != nil {
			return nil, err
		}
		state.ProcessedToken = token
	}
	return state, nil
}

// NewTokenRecord encodes token, encrypting the access and refresh tokens with enc.
func NewTokenRecord(token *domain.Token, enc *security.Encryptor) (*TokenRecord, error) {
	access, err := encryptField(enc, "access token", token.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := encryptField(enc, "refresh token", token.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &TokenRecord{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    token.ExpiresAt,
		TokenType:    token.TokenType,
	}, nil
}

// Token decodes the record, decrypting with enc.
func (r *TokenRecord) Token(enc *security.Encryptor) (*domain.Token, error) {
	access, err := decryptField(enc, "access token", r.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := decryptField(enc, "refresh token", r.RefreshToken)
	if err != nil {
		return nil, err
	}
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = domain.TokenTypeBearer
	}
	return &domain.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    r.ExpiresAt,
		TokenType:    tokenType,
	}, nil
}

func encryptField(enc *security.Encryptor, name, value string) (string, error) {
	if value == "" || !enc.IsEnabled() {
		return value, nil
	}
	out, err := enc.Encrypt(value)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt %s: %w", name, err)
	}
	return out, nil
}

func decryptField(enc *security.Encryptor, name, value string) (string, error) {
	if value == "" || !enc.IsEnabled() {
		return value, nil
	}
	out, err := enc.Decrypt(value)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt %s: %w", name, err)
	}
	return out, nil
}
