package storage

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/security"
)

func testEncryptor(t *testing.T) *security.Encryptor {
	t.Helper()
	key, err := security.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	enc, err := security.NewEncryptor(key)
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	return enc
}

func testToken() *domain.Token {
	return &domain.Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		ExpiresAt:    time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		TokenType:    domain.TokenTypeBearer,
	}
}

func TestTokenRecord_Encryption(t *testing.T) {
	tests := []struct {
		name      string
		enc       *security.Encryptor
		encrypted bool
	}{
		{name: "no encryptor", enc: nil, encrypted: false},
		{name: "encryptor", enc: testEncryptor(t), encrypted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := testToken()
			rec, err := NewTokenRecord(token, tt.enc)
			if err != nil {
				t.Fatalf("NewTokenRecord() error = %v", err)
			}

			raw, err := json.Marshal(rec)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			leaked := strings.Contains(string(raw), token.AccessToken) || strings.Contains(string(raw), token.RefreshToken)
			if leaked == tt.encrypted {
				t.Errorf("plaintext in record = %v, encrypted = %v: %s", leaked, tt.encrypted, raw)
			}

			got, err := rec.Token(tt.enc)
			if err != nil {
				t.Fatalf("Token() error = %v", err)
			}
			if *got != *token {
				t.Errorf("Token() = %+v, want %+v", got, token)
			}
		})
	}
}

func TestTokenRecord_WrongKey(t *testing.T) {
	rec, err := NewTokenRecord(testToken(), testEncryptor(t))
	if err != nil {
		t.Fatalf("NewTokenRecord() error = %v", err)
	}
	if _, err := rec.Token(testEncryptor(t)); err == nil {
		t.Error("Token() with a different key should fail")
	}
}

func TestTokenRecord_DefaultTokenType(t *testing.T) {
	rec := &TokenRecord{AccessToken: "a", ExpiresAt: time.Now()}
	got, err := rec.Token(nil)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got.TokenType != domain.TokenTypeBearer {
		t.Errorf("TokenType = %q, want Bearer", got.TokenType)
	}
}

func TestStateRecord_RoundTrip(t *testing.T) {
	enc := testEncryptor(t)
	state := &domain.AuthorizationState{
		StateValue:    "state-1",
		CodeVerifier:  "verifier-1",
		CodeChallenge: "challenge-1",
	}

	rec, err := NewStateRecord(state, enc)
	if err != nil {
		t.Fatalf("NewStateRecord() error = %v", err)
	}
	if rec.CodeVerifier == state.CodeVerifier {
		t.Error("code verifier stored in plaintext")
	}
	if rec.ExpiresAt != nil || rec.AccessToken != "" {
		t.Error("pending record should carry no token")
	}

	got, err := rec.AuthorizationState(enc)
	if err != nil {
		t.Fatalf("AuthorizationState() error = %v", err)
	}
	if got.Processed || got.ProcessedToken != nil {
		t.Errorf("pending state decoded as processed: %+v", got)
	}
	if got.CodeVerifier != "verifier-1" || got.CodeChallenge != "challenge-1" {
		t.Errorf("AuthorizationState() = %+v", got)
	}

	if err := rec.MarkProcessed(testToken(), enc); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}
	got, err = rec.AuthorizationState(enc)
	if err != nil {
		t.Fatalf("AuthorizationState() error = %v", err)
	}
	if !got.Processed || got.ProcessedToken == nil {
		t.Fatalf("processed state decoded without token: %+v", got)
	}
	if *got.ProcessedToken != *testToken() {
		t.Errorf("ProcessedToken = %+v, want %+v", got.ProcessedToken, testToken())
	}
}

func TestStateRecord_JSONKeys(t *testing.T) {
	rec, err := NewStateRecord(&domain.AuthorizationState{StateValue: "s", CodeVerifier: "v", CodeChallenge: "c"}, nil)
	if err != nil {
		t.Fatalf("NewStateRecord() error = %v", err)
	}
	raw, _ := json.Marshal(rec)
	want := `{"state_value":"s","code_verifier":"v","code_challenge":"c","processed":false}`
	if string(raw) != want {
		t.Errorf("json = %s, want %s", raw, want)
	}
}

func TestValidateState(t *testing.T) {
	tests := []struct {
		name    string
		state   *domain.AuthorizationState
		wantErr bool
	}{
		{name: "nil", state: nil, wantErr: true},
		{name: "blank value", state: &domain.AuthorizationState{}, wantErr: true},
		{name: "valid", state: &domain.AuthorizationState{StateValue: "x"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateState(tt.state)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateState() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !domain.IsKind(err, domain.KindInvalidInput) {
				t.Errorf("error kind = %v, want InvalidInput", err)
			}
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	var nf *domain.ResourceNotFoundError
	if !errors.As(StateNotFound("abc"), &nf) || nf.Resource != ResourceAuthState || nf.ID != "abc" {
		t.Errorf("StateNotFound() = %v", StateNotFound("abc"))
	}
	if !errors.As(TokenNotFound("sid"), &nf) || nf.Resource != ResourceToken {
		t.Errorf("TokenNotFound() = %v", TokenNotFound("sid"))
	}

	cause := errors.New("connection refused")
	err := Unavailable("valkey", "save state", cause)
	if !domain.IsKind(err, domain.KindExternalService) {
		t.Errorf("Unavailable() kind = %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("Unavailable() does not wrap cause")
	}
}
