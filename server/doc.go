// Package server implements the authorization code flow with PKCE and the
// session token lifecycle.
//
// Server drives the flow against a providers.Gateway:
//   - Initiate creates a PKCE pair and a CSRF state, persists the pending
//     state for StateTTL and returns the provider's authorization URL.
//   - ExchangeCodeForToken consumes a callback. A state is exchanged
//     upstream at most once; a repeated callback for a processed state
//     returns the cached token without calling the provider.
//   - Refresh runs a refresh grant for the token bound to a session and
//     keeps the previous refresh token when the provider omits a new one.
//
// TokenService resolves the credential for a domain.Session. A bearer
// override supplied by the caller takes precedence over the token bound to
// the session.
//
// Every failure is returned as one of the domain error kinds; the HTTP
// status mapping lives in the root package.
//
// Example usage:
//
//	store := memory.New()
//	gateway, _ := google.NewGateway(&google.Config{...})
//
//	srv, err := server.New(gateway, store, store, &server.Config{}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	authURL, err := srv.Initiate(ctx)
package server
