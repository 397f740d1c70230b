// Package google provides the Google OAuth 2.0 gateway.
//
// The gateway runs the authorization code flow with PKCE (S256) against
// Google's endpoints and always requests offline access so that a refresh
// token is issued. The default scope is full YouTube access.
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
package google
