package youtube

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/youtube-oauth/domain"
)

// Internal IDs are derived from the YouTube ID so the same resource always
// maps to the same UUID.
var internalIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://www.youtube.com/"))

func internalID(kind, youtubeID string) uuid.UUID {
	return uuid.NewSHA1(internalIDNamespace, []byte("youtube:"+kind+":"+youtubeID))
}

// Playlist is a playlist owned by the authenticated user.
type Playlist struct {
	ID           string     `json:"id"`
	InternalID   uuid.UUID  `json:"-"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ChannelID    string     `json:"channelId,omitempty"`
	ChannelTitle string     `json:"channelTitle,omitempty"`
	ItemCount    int64      `json:"itemCount"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
}

// NewPlaylist validates p and returns a copy with its internal ID set.
func NewPlaylist(p Playlist) (*Playlist, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, domain.NewInvalidInputError("id", "Playlist ID cannot be null or empty")
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, domain.NewInvalidInputError("title", "Playlist title cannot be null or empty")
	}
	if p.ItemCount < 0 {
		return nil, domain.NewInvalidInputError("itemCount", "Item count cannot be negative")
	}
	p.InternalID = internalID("playlist", p.ID)
	return &p, nil
}

// Video is a video inside a playlist.
type Video struct {
	ID              string     `json:"id"`
	InternalID      uuid.UUID  `json:"-"`
	Title           string     `json:"title"`
	ChannelTitle    string     `json:"channelTitle,omitempty"`
	Description     string     `json:"description"`
	DurationSeconds int        `json:"durationSeconds"`
	ThumbnailURL    string     `json:"thumbnailUrl,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
}

// NewVideo validates v and returns a copy with its internal ID set.
func NewVideo(v Video) (*Video, error) {
	if strings.TrimSpace(v.ID) == "" {
		return nil, domain.NewInvalidInputError("id", "Video ID cannot be null or empty")
	}
	if strings.TrimSpace(v.Title) == "" {
		return nil, domain.NewInvalidInputError("title", "Video title cannot be null or empty")
	}
	if v.DurationSeconds < 0 {
		return nil, domain.NewInvalidInputError("durationSeconds", "Duration cannot be negative")
	}
	v.InternalID = internalID("video", v.ID)
	return &v, nil
}

// IsMusicVideo reports whether the video looks like an original recording
// rather than a cover, live or karaoke version.
func (v *Video) IsMusicVideo() bool {
	return !containsAny(v.Title, "cover", "live", "karaoke", "instrumental") &&
		!containsAny(v.Description, "cover version")
}

// SearchResult is a single video returned by a search.
type SearchResult struct {
	VideoID        string    `json:"videoId"`
	InternalID     uuid.UUID `json:"-"`
	Title          string    `json:"title"`
	ChannelTitle   string    `json:"channelTitle"`
	Description    string    `json:"description"`
	ThumbnailURL   string    `json:"thumbnailUrl,omitempty"`
	RelevanceScore float64   `json:"relevanceScore"`
}

// NewSearchResult validates r and returns a copy with its internal ID set.
// The relevance score must lie in [0, 1].
func NewSearchResult(r SearchResult) (*SearchResult, error) {
	if strings.TrimSpace(r.VideoID) == "" {
		return nil, domain.NewInvalidInputError("videoId", "Video ID cannot be null or empty")
	}
	if r.RelevanceScore < 0 || r.RelevanceScore > 1 {
		return nil, domain.NewInvalidInputError("relevanceScore", "Relevance score must be between 0 and 1")
	}
	r.InternalID = internalID("video", r.VideoID)
	return &r, nil
}

// IsLikelyMusicVideo is IsMusicVideo with tutorials and reactions excluded
// as well.
func (r *SearchResult) IsLikelyMusicVideo() bool {
	return !containsAny(r.Title, "cover", "live", "karaoke", "instrumental", "tutorial", "reaction") &&
		!containsAny(r.Description, "cover version")
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
	TotalResults  int    `json:"totalResults"`
}

// HasNextPage reports whether another page can be requested.
func (p *Page[T]) HasNextPage() bool {
	return strings.TrimSpace(p.NextPageToken) != ""
}

func containsAny(s string, needles ...string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
