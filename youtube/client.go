package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/instrumentation"
	"github.com/giantswarm/youtube-oauth/providers"
)

const (
	// DefaultBaseURL is the YouTube Data API v3 endpoint.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// DefaultHTTPTimeout bounds every API request.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxPageSize is the largest maxResults the API accepts.
	MaxPageSize = 50

	// MusicCategoryID is the YouTube video category for music.
	MusicCategoryID = "10"

	serviceName  = "YouTube"
	providerName = "youtube"

	// maxErrorBodySize caps how much of an error response is read
	maxErrorBodySize = 64 << 10
)

// Client is the subset of the YouTube Data API used by Service.
// Every call is made on behalf of the user owning token.
type Client interface {
	ListPlaylists(ctx context.Context, token *domain.Token) ([]Playlist, error)
	ListPlaylistVideos(ctx context.Context, token *domain.Token, playlistID string, maxResults int, pageToken string) (*Page[Video], error)
	CreatePlaylist(ctx context.Context, token *domain.Token, title, description string) (*Playlist, error)
	AddVideosToPlaylist(ctx context.Context, token *domain.Token, playlistID string, videoIDs []string) error
	SearchVideos(ctx context.Context, token *domain.Token, query string, maxResults int) ([]SearchResult, error)
}

// ClientConfig configures an HTTPClient. All fields are optional.
type ClientConfig struct {
	// BaseURL overrides DefaultBaseURL
	BaseURL string

	// HTTPClient supplies the base transport. Its Timeout is used when set,
	// otherwise DefaultHTTPTimeout applies.
	HTTPClient *http.Client

	Logger          *slog.Logger
	Instrumentation *instrumentation.Instrumentation
}

// HTTPClient implements Client against the YouTube Data API over HTTP.
type HTTPClient struct {
	baseURL         string
	httpClient      *http.Client
	logger          *slog.Logger
	instrumentation *instrumentation.Instrumentation
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an API client. A nil config uses the defaults.
func NewHTTPClient(cfg *ClientConfig) *HTTPClient {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		baseURL:         baseURL,
		httpClient:      httpClient,
		logger:          logger,
		instrumentation: cfg.Instrumentation,
	}
}

// API wire types. Only the fields in use are declared.
type (
	apiThumbnail struct {
		URL string `json:"url"`
	}

	apiThumbnails struct {
		Default *apiThumbnail `json:"default,omitempty"`
		Medium  *apiThumbnail `json:"medium,omitempty"`
	}

	apiResourceID struct {
		Kind    string `json:"kind,omitempty"`
		VideoID string `json:"videoId,omitempty"`
	}

	apiSnippet struct {
		PlaylistID   string         `json:"playlistId,omitempty"`
		Title        string         `json:"title,omitempty"`
		Description  string         `json:"description,omitempty"`
		ChannelID    string         `json:"channelId,omitempty"`
		ChannelTitle string         `json:"channelTitle,omitempty"`
		PublishedAt  *time.Time     `json:"publishedAt,omitempty"`
		Thumbnails   *apiThumbnails `json:"thumbnails,omitempty"`
		ResourceID   *apiResourceID `json:"resourceId,omitempty"`
	}

	apiContentDetails struct {
		ItemCount int64 `json:"itemCount"`
	}

	apiStatus struct {
		PrivacyStatus string `json:"privacyStatus"`
	}

	apiPlaylist struct {
		ID             string             `json:"id,omitempty"`
		Snippet        apiSnippet         `json:"snippet"`
		ContentDetails *apiContentDetails `json:"contentDetails,omitempty"`
		Status         *apiStatus         `json:"status,omitempty"`
	}

	apiPlaylistItem struct {
		Snippet apiSnippet `json:"snippet"`
	}

	apiSearchItem struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet apiSnippet `json:"snippet"`
	}

	apiList[T any] struct {
		Items         []T    `json:"items"`
		NextPageToken string `json:"nextPageToken"`
		PageInfo      *struct {
			TotalResults int `json:"totalResults"`
		} `json:"pageInfo"`
	}

	apiErrorResponse struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

func (t *apiThumbnails) url() string {
	if t == nil {
		return ""
	}
	if t.Medium != nil {
		return t.Medium.URL
	}
	if t.Default != nil {
		return t.Default.URL
	}
	return ""
}

func (p *apiPlaylist) toPlaylist() (*Playlist, error) {
	var itemCount int64
	if p.ContentDetails != nil {
		itemCount = p.ContentDetails.ItemCount
	}
	return NewPlaylist(Playlist{
		ID:           p.ID,
		Title:        p.Snippet.Title,
		Description:  p.Snippet.Description,
		ChannelID:    p.Snippet.ChannelID,
		ChannelTitle: p.Snippet.ChannelTitle,
		ItemCount:    itemCount,
		ThumbnailURL: p.Snippet.Thumbnails.url(),
		PublishedAt:  p.Snippet.PublishedAt,
	})
}

// ListPlaylists returns up to MaxPageSize playlists of the user.
// Playlists the API returns without an ID or title are skipped.
func (c *HTTPClient) ListPlaylists(ctx context.Context, token *domain.Token) ([]Playlist, error) {
	query := url.Values{
		"part":       {"snippet,contentDetails"},
		"mine":       {"true"},
		"maxResults": {strconv.Itoa(MaxPageSize)},
	}

	var resp apiList[apiPlaylist]
	if err := c.do(ctx, token, "list_playlists", http.MethodGet, "/playlists", query, nil, &resp); err != nil {
		return nil, err
	}

	playlists := make([]Playlist, 0, len(resp.Items))
	for i := range resp.Items {
		playlist, err := resp.Items[i].toPlaylist()
		if err != nil {
			c.logger.Warn("Skipping invalid playlist", "error", err)
			continue
		}
		playlists = append(playlists, *playlist)
	}
	return playlists, nil
}

// ListPlaylistVideos returns one page of the videos in a playlist.
func (c *HTTPClient) ListPlaylistVideos(ctx context.Context, token *domain.Token, playlistID string, maxResults int, pageToken string) (*Page[Video], error) {
	query := url.Values{
		"part":       {"snippet,contentDetails"},
		"playlistId": {playlistID},
		"maxResults": {strconv.Itoa(min(maxResults, MaxPageSize))},
	}
	if strings.TrimSpace(pageToken) != "" {
		query.Set("pageToken", pageToken)
	}

	var resp apiList[apiPlaylistItem]
	if err := c.do(ctx, token, "list_playlist_items", http.MethodGet, "/playlistItems", query, nil, &resp); err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		var videoID string
		if item.Snippet.ResourceID != nil {
			videoID = item.Snippet.ResourceID.VideoID
		}
		video, err := NewVideo(Video{
			ID:           videoID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			Description:  item.Snippet.Description,
			ThumbnailURL: item.Snippet.Thumbnails.url(),
			PublishedAt:  item.Snippet.PublishedAt,
		})
		if err != nil {
			c.logger.Warn("Skipping invalid video", "playlist_id", playlistID, "error", err)
			continue
		}
		videos = append(videos, *video)
	}

	total := len(videos)
	if resp.PageInfo != nil {
		total = resp.PageInfo.TotalResults
	}
	return &Page[Video]{Items: videos, NextPageToken: resp.NextPageToken, TotalResults: total}, nil
}

// CreatePlaylist creates a private playlist.
func (c *HTTPClient) CreatePlaylist(ctx context.Context, token *domain.Token, title, description string) (*Playlist, error) {
	query := url.Values{"part": {"snippet,status,contentDetails"}}

	body := apiPlaylist{
		Snippet: apiSnippet{Title: title, Description: description},
		Status:  &apiStatus{PrivacyStatus: "private"},
	}

	var resp apiPlaylist
	if err := c.do(ctx, token, "insert_playlist", http.MethodPost, "/playlists", query, body, &resp); err != nil {
		return nil, err
	}

	playlist, err := resp.toPlaylist()
	if err != nil {
		return nil, domain.NewExternalServiceError(serviceName, "invalid playlist in response", err)
	}
	return playlist, nil
}

// AddVideosToPlaylist inserts the videos in order, one request per video.
// It stops at the first failure; videos inserted before it stay in the
// playlist.
func (c *HTTPClient) AddVideosToPlaylist(ctx context.Context, token *domain.Token, playlistID string, videoIDs []string) error {
	query := url.Values{"part": {"snippet"}}

	for _, videoID := range videoIDs {
		body := apiPlaylistItem{Snippet: apiSnippet{
			PlaylistID: playlistID,
			ResourceID: &apiResourceID{Kind: "youtube#video", VideoID: videoID},
		}}
		if err := c.do(ctx, token, "insert_playlist_item", http.MethodPost, "/playlistItems", query, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// SearchVideos searches the music category ordered by relevance. The
// relevance score of a result is 1 - position/total.
func (c *HTTPClient) SearchVideos(ctx context.Context, token *domain.Token, query string, maxResults int) ([]SearchResult, error) {
	params := url.Values{
		"part":            {"snippet"},
		"q":               {query},
		"type":            {"video"},
		"videoCategoryId": {MusicCategoryID},
		"maxResults":      {strconv.Itoa(min(maxResults, MaxPageSize))},
		"order":           {"relevance"},
	}

	var resp apiList[apiSearchItem]
	if err := c.do(ctx, token, "search", http.MethodGet, "/search", params, nil, &resp); err != nil {
		return nil, err
	}

	total := len(resp.Items)
	results := make([]SearchResult, 0, total)
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		result, err := NewSearchResult(SearchResult{
			VideoID:        item.ID.VideoID,
			Title:          item.Snippet.Title,
			ChannelTitle:   item.Snippet.ChannelTitle,
			Description:    item.Snippet.Description,
			ThumbnailURL:   item.Snippet.Thumbnails.url(),
			RelevanceScore: relevanceScore(len(results), total),
		})
		if err != nil {
			c.logger.Warn("Skipping invalid search result", "error", err)
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}

func relevanceScore(position, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(position)/float64(total)
}

// do sends one authorized API request and decodes the JSON response into
// out (if non-nil).
func (c *HTTPClient) do(ctx context.Context, token *domain.Token, operation, method, path string, query url.Values, body, out any) (err error) {
	if token == nil || strings.TrimSpace(token.AccessToken) == "" {
		return domain.NewAuthenticationError("YouTube authentication failed", "no access token")
	}

	ctx, finish := c.instrumentation.StartProviderCall(ctx, providerName, operation)
	var statusCode int
	defer func() { finish(statusCode, err) }()

	trace.SpanFromContext(ctx).SetAttributes(attribute.String(instrumentation.AttrYouTubeOperation, operation))

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.authorizedClient(ctx, token).Do(req)
	if err != nil {
		c.logger.Error("YouTube API request failed", "operation", operation, "error", err)
		return domain.NewExternalServiceError(serviceName, "failed to "+strings.ReplaceAll(operation, "_", " "), err)
	}
	defer func() { _ = resp.Body.Close() }()
	statusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(operation, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewExternalServiceError(serviceName, "invalid response", err)
	}
	return nil
}

// authorizedClient returns an HTTP client presenting token as a bearer
// credential on top of the configured transport.
func (c *HTTPClient) authorizedClient(ctx context.Context, token *domain.Token) *http.Client {
	client := oauth2.NewClient(providers.WithHTTPClient(ctx, c.httpClient), oauth2.StaticTokenSource(token.OAuth2()))
	client.Timeout = c.httpClient.Timeout
	if client.Timeout == 0 {
		client.Timeout = DefaultHTTPTimeout
	}
	return client
}

// statusError maps a non-2xx API response to a domain error:
// 401 and 403 are authentication failures, 404 a missing resource and
// anything else an external service failure.
func (c *HTTPClient) statusError(operation string, resp *http.Response) error {
	message := http.StatusText(resp.StatusCode)

	var apiErr apiErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	c.logger.Error("YouTube API error",
		"operation", operation,
		"status", resp.StatusCode,
		"message", message)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewAuthenticationError("YouTube authentication failed", message)
	case http.StatusNotFound:
		return domain.NewResourceNotFoundError("YouTube resource", operation)
	default:
		return domain.NewExternalServiceError(serviceName, message, fmt.Errorf("status %d", resp.StatusCode))
	}
}
