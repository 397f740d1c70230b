// Package youtube provides the YouTube Data API v3 operations used by the
// service: listing and creating playlists, adding videos and searching for
// music videos.
//
// Client is the raw API surface; HTTPClient implements it over net/http with
// an oauth2 bearer transport. Service layers the session credential, input
// validation and the daily quota on top:
//
//	svc, err := youtube.NewService(tokens, limiter, youtube.NewHTTPClient(nil), logger)
//	playlists, err := svc.ListPlaylists(ctx, session)
//
// Every Service call resolves the session token first, then validates its
// inputs, then charges the quota and only then calls the API. A rejected
// call at any step leaves the later steps untouched.
package youtube
