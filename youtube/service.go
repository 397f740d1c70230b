package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/quota"
)

// musicSearchResults is the number of candidates fetched by SearchMusicVideo
const musicSearchResults = 5

// TokenResolver resolves the credential of a session.
// server.TokenService implements it.
type TokenResolver interface {
	CurrentToken(ctx context.Context, session domain.Session) (*domain.Token, error)
}

// QuotaConsumer charges API units against the daily budget.
// quota.Limiter implements it.
type QuotaConsumer interface {
	Consume(ctx context.Context, units int64) error
}

// Service runs YouTube operations for a session.
type Service struct {
	tokens TokenResolver
	quota  QuotaConsumer
	client Client
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(tokens TokenResolver, limiter QuotaConsumer, client Client, logger *slog.Logger) (*Service, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token resolver is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("quota limiter is required")
	}
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tokens: tokens, quota: limiter, client: client, logger: logger}, nil
}

// ListPlaylists returns the playlists of the session's user.
func (s *Service) ListPlaylists(ctx context.Context, session domain.Session) ([]Playlist, error) {
	token, err := s.tokens.CurrentToken(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := s.quota.Consume(ctx, quota.CostPlaylistsList); err != nil {
		return nil, err
	}

	s.logger.Info("Fetching user playlists")
	return s.client.ListPlaylists(ctx, token)
}

// ListPlaylistVideos returns one page of the videos in playlistID.
func (s *Service) ListPlaylistVideos(ctx context.Context, session domain.Session, playlistID string, maxResults int, pageToken string) (*Page[Video], error) {
	token, err := s.tokens.CurrentToken(ctx, session)
	if err != nil {
		return nil, err
	}
	if isBlank(playlistID) {
		return nil, domain.NewInvalidInputError("playlistId", "Playlist ID is required")
	}
	if maxResults < 1 {
		return nil, domain.NewInvalidInputError("maxResults", "maxResults must be positive")
	}
	if err := s.quota.Consume(ctx, quota.CostPlaylistItemsList); err != nil {
		return nil, err
	}

	s.logger.Info("Fetching playlist videos", "playlist_id", playlistID)
	return s.client.ListPlaylistVideos(ctx, token, playlistID, maxResults, pageToken)
}

// CreatePlaylist creates a private playlist for the session's user.
func (s *Service) CreatePlaylist(ctx context.Context, session domain.Session, title, description string) (*Playlist, error) {
	token, err := s.tokens.CurrentToken(ctx, session)
	if err != nil {
		return nil, err
	}
	if isBlank(title) {
		return nil, domain.NewInvalidInputError("title", "Playlist title is required")
	}
	if err := s.quota.Consume(ctx, quota.CostPlaylistsInsert); err != nil {
		return nil, err
	}

	s.logger.Info("Creating playlist", "title", title)
	return s.client.CreatePlaylist(ctx, token, title, description)
}

// AddVideosToPlaylist appends videoIDs to playlistID. Each video is charged
// separately, so the whole call costs len(videoIDs) inserts.
func (s *Service) AddVideosToPlaylist(ctx context.Context, session domain.Session, playlistID string, videoIDs []string) error {
	token, err := s.tokens.CurrentToken(ctx, session)
	if err != nil {
		return err
	}
	if isBlank(playlistID) {
		return domain.NewInvalidInputError("playlistId", "Playlist ID is required")
	}
	if len(videoIDs) == 0 {
		return domain.NewInvalidInputError("videoIds", "At least one video ID is required")
	}
	for _, id := range videoIDs {
		if isBlank(id) {
			return domain.NewInvalidInputError("videoIds", "Video IDs cannot be blank")
		}
	}

	cost := int64(len(videoIDs)) * quota.CostPlaylistItemsInsert
	if err := s.quota.Consume(ctx, cost); err != nil {
		return err
	}

	s.logger.Info("Adding videos to playlist", "playlist_id", playlistID, "count", len(videoIDs))
	return s.client.AddVideosToPlaylist(ctx, token, playlistID, videoIDs)
}

// SearchVideos searches for query and keeps only likely music videos.
func (s *Service) SearchVideos(ctx context.Context, session domain.Session, query string, maxResults int) ([]SearchResult, error) {
	token, err := s.tokens.CurrentToken(ctx, session)
	if err != nil {
		return nil, err
	}
	if isBlank(query) {
		return nil, domain.NewInvalidInputError("query", "Search query is required")
	}
	if maxResults < 1 {
		return nil, domain.NewInvalidInputError("maxResults", "maxResults must be positive")
	}
	if err := s.quota.Consume(ctx, quota.CostSearchList); err != nil {
		return nil, err
	}

	s.logger.Info("Searching videos", "query", query)
	results, err := s.client.SearchVideos(ctx, token, query, maxResults)
	if err != nil {
		return nil, err
	}

	filtered := make([]SearchResult, 0, len(results))
	for i := range results {
		if results[i].IsLikelyMusicVideo() {
			filtered = append(filtered, results[i])
		}
	}
	return filtered, nil
}

// SearchMusicVideo finds the official video of a track. It prefers the
// first likely music video among the top results and falls back to the
// first result.
func (s *Service) SearchMusicVideo(ctx context.Context, session domain.Session, trackName, artistName string) (*SearchResult, error) {
	token, err := s.tokens.CurrentToken(ctx, session)
	if err != nil {
		return nil, err
	}
	if isBlank(trackName) {
		return nil, domain.NewInvalidInputError("trackName", "Track name is required")
	}
	if isBlank(artistName) {
		return nil, domain.NewInvalidInputError("artistName", "Artist name is required")
	}
	if err := s.quota.Consume(ctx, quota.CostSearchList); err != nil {
		return nil, err
	}

	s.logger.Info("Searching music video", "track", trackName, "artist", artistName)
	query := fmt.Sprintf("%s %s official", trackName, artistName)
	results, err := s.client.SearchVideos(ctx, token, query, musicSearchResults)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, domain.NewResourceNotFoundError("Music video", trackName+" by "+artistName)
	}

	for i := range results {
		if results[i].IsLikelyMusicVideo() {
			return &results[i], nil
		}
	}
	return &results[0], nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
