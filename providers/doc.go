// Package providers defines the Gateway interface used to talk to an OAuth
// identity provider during the authorization code flow.
//
// Implementations are provided in subpackages:
//   - providers/google: Google OAuth 2.0 with PKCE and offline access
//   - providers/mock: Mock gateway for testing
//
// A gateway only converts between the provider's wire format and
// domain.Token. Which state is pending, which code was already exchanged
// and where tokens are kept is decided by the server package.
//
// Example usage:
//
//	gateway, err := google.NewGateway(&google.Config{
//	    ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
//	    ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
//	    RedirectURL:  "http://localhost:8080/v1/auth/google/callback",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv, err := server.New(gateway, stateStore, tokenStore, &server.Config{}, logger)
package providers
