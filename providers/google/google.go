package google

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/instrumentation"
	"github.com/giantswarm/youtube-oauth/providers"
)

const (
	providerName = "google"

	// DefaultHTTPTimeout bounds every request to Google's token endpoint.
	DefaultHTTPTimeout = 30 * time.Second
)

// ScopeYouTube grants full access to the user's YouTube account.
const ScopeYouTube = "https://www.googleapis.com/auth/youtube"

// DefaultScopes are requested when Config.Scopes is empty.
var DefaultScopes = []string{ScopeYouTube}

// Gateway implements providers.Gateway for Google OAuth 2.0.
type Gateway struct {
	*oauth2.Config
	httpClient      *http.Client
	instrumentation *instrumentation.Instrumentation
}

var _ providers.Gateway = (*Gateway)(nil)

// Config holds Google OAuth configuration
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	HTTPClient   *http.Client // Optional custom HTTP client

	// Instrumentation records provider spans and metrics (optional)
	Instrumentation *instrumentation.Instrumentation
}

// NewGateway creates a new Google gateway
func NewGateway(cfg *Config) (*Gateway, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("redirect URL is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultHTTPTimeout,
		}
	}

	return &Gateway{
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient:      httpClient,
		instrumentation: cfg.Instrumentation,
	}, nil
}

// Name returns the provider name
func (g *Gateway) Name() string {
	return providerName
}

// AuthorizationURL builds Google's consent URL with the S256 challenge and
// offline access.
func (g *Gateway) AuthorizationURL(state, codeChallenge string) string {
	return g.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", domain.PKCEMethodS256),
	)
}

// ExchangeCode exchanges an authorization code for tokens
func (g *Gateway) ExchangeCode(ctx context.Context, code, codeVerifier string) (token *domain.Token, err error) {
	ctx, finish := g.instrumentation.StartProviderCall(ctx, providerName, "exchange_code")
	defer func() { finish(providers.StatusCode(err), err) }()

	return providers.ExchangeCodeWithPKCE(ctx, g.Config, g.httpClient, code, codeVerifier)
}

// RefreshToken runs a refresh grant. golang.org/x/oauth2 keeps the old
// refresh token when Google does not send a new one.
func (g *Gateway) RefreshToken(ctx context.Context, refreshToken string) (token *domain.Token, err error) {
	ctx, finish := g.instrumentation.StartProviderCall(ctx, providerName, "refresh_token")
	defer func() { finish(providers.StatusCode(err), err) }()

	ctx = providers.WithHTTPClient(ctx, g.httpClient)

	newToken, err := g.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	token, err = domain.TokenFromOAuth2(newToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}
	return token, nil
}
