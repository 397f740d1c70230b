package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/internal/testutil"
	"github.com/giantswarm/youtube-oauth/storage"
	"github.com/giantswarm/youtube-oauth/storage/memory"
	storagemock "github.com/giantswarm/youtube-oauth/storage/mock"
)

func setupTokenService(t *testing.T) (*TokenService, *memory.Store) {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Stop() })

	ts, err := NewTokenService(store, 0, nil)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return ts, store
}

func TestNewTokenService(t *testing.T) {
	if _, err := NewTokenService(nil, 0, nil); err == nil {
		t.Error("expected error for nil store")
	}

	ts, err := NewTokenService(storagemock.NewMockTokenStore(), 0, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ts.SessionTTL(), 30*time.Minute)
}

func TestTokenService_CurrentToken(t *testing.T) {
	ctx := context.Background()
	ts, store := setupTokenService(t)

	valid := testutil.GenerateTestToken()
	expired := testutil.GenerateTestTokenWithExpiry(time.Now().Add(-time.Minute))
	blank := testutil.GenerateTestToken()
	blank.AccessToken = "   "

	testutil.AssertNoError(t, store.SaveToken(ctx, "valid", valid, time.Hour))
	testutil.AssertNoError(t, store.SaveToken(ctx, "expired", expired, time.Hour))
	testutil.AssertNoError(t, store.SaveToken(ctx, "blank", blank, time.Hour))

	tests := []struct {
		name       string
		session    domain.Session
		wantAccess string
		wantErr    bool
	}{
		{
			name:       "session token",
			session:    domain.Session{ID: "valid"},
			wantAccess: valid.AccessToken,
		},
		{
			name:       "bearer override wins over session",
			session:    domain.Session{ID: "valid", BearerOverride: "header-token"},
			wantAccess: "header-token",
		},
		{
			name:       "bearer override without session",
			session:    domain.Session{BearerOverride: "header-token"},
			wantAccess: "header-token",
		},
		{
			name:       "blank override falls back to session",
			session:    domain.Session{ID: "valid", BearerOverride: "  "},
			wantAccess: valid.AccessToken,
		},
		{name: "no session", session: domain.Session{}, wantErr: true},
		{name: "unknown session", session: domain.Session{ID: "missing"}, wantErr: true},
		{name: "expired token", session: domain.Session{ID: "expired"}, wantErr: true},
		{name: "blank access token", session: domain.Session{ID: "blank"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ts.CurrentToken(ctx, tt.session)
			if tt.wantErr {
				var authErr *domain.AuthenticationError
				if !errors.As(err, &authErr) {
					t.Fatalf("error = %v, want AuthenticationError", err)
				}
				testutil.AssertEqual(t, authErr.Message, "Token is invalid or expired")
				if ts.IsAuthenticated(ctx, tt.session) {
					t.Error("IsAuthenticated() = true, want false")
				}
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, token.AccessToken, tt.wantAccess)
			if !ts.IsAuthenticated(ctx, tt.session) {
				t.Error("IsAuthenticated() = false, want true")
			}
		})
	}
}

func TestTokenService_BearerOverrideLifetime(t *testing.T) {
	ts, _ := setupTokenService(t)

	token, err := ts.CurrentToken(context.Background(), domain.Session{BearerOverride: "header-token"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, token.TokenType, domain.TokenTypeBearer)
	testutil.AssertEqual(t, token.RefreshToken, "")
	testutil.AssertTimeEqual(t, token.ExpiresAt, time.Now().Add(time.Hour), time.Second)
}

func TestTokenService_StoreFailurePropagates(t *testing.T) {
	tokenStore := storagemock.NewMockTokenStore()
	tokenStore.FindTokenFunc = func(context.Context, string) (*domain.Token, error) {
		return nil, storage.Unavailable("Valkey", "get token", errors.New("connection refused"))
	}
	ts, err := NewTokenService(tokenStore, 0, nil)
	testutil.AssertNoError(t, err)

	_, err = ts.CurrentToken(context.Background(), domain.Session{ID: "sid"})
	testutil.AssertErrorKind(t, err, domain.KindExternalService)
}

func TestTokenService_StoreAndRemove(t *testing.T) {
	ctx := context.Background()
	tokenStore := storagemock.NewMockTokenStore()
	ts, err := NewTokenService(tokenStore, 20*time.Minute, nil)
	testutil.AssertNoError(t, err)

	token := testutil.GenerateTestToken()
	testutil.AssertNoError(t, ts.StoreToken(ctx, "sid", token))
	testutil.AssertEqual(t, tokenStore.TTL("sid"), 20*time.Minute)

	got, err := ts.CurrentToken(ctx, domain.Session{ID: "sid"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.AccessToken, token.AccessToken)

	testutil.AssertNoError(t, ts.RemoveToken(ctx, "sid"))
	testutil.AssertNoError(t, ts.RemoveToken(ctx, "sid"))

	_, err = ts.CurrentToken(ctx, domain.Session{ID: "sid"})
	testutil.AssertErrorKind(t, err, domain.KindAuthentication)
}

func TestTokenService_StoreTokenValidation(t *testing.T) {
	ts, _ := setupTokenService(t)

	err := ts.StoreToken(context.Background(), "", testutil.GenerateTestToken())
	testutil.AssertErrorKind(t, err, domain.KindInvalidInput)
}
