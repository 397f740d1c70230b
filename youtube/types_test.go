package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/youtube-oauth/domain"
)

func TestNewPlaylist(t *testing.T) {
	tests := []struct {
		name      string
		playlist  Playlist
		wantField string
	}{
		{name: "valid", playlist: Playlist{ID: "PL1", Title: "Road trip", ItemCount: 3}},
		{name: "missing id", playlist: Playlist{Title: "Road trip"}, wantField: "id"},
		{name: "blank title", playlist: Playlist{ID: "PL1", Title: "  "}, wantField: "title"},
		{name: "negative item count", playlist: Playlist{ID: "PL1", Title: "Road trip", ItemCount: -1}, wantField: "itemCount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			playlist, err := NewPlaylist(tt.playlist)
			if tt.wantField != "" {
				var invalid *domain.InvalidInputError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.wantField, invalid.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.playlist.ID, playlist.ID)
			assert.NotEqual(t, [16]byte{}, [16]byte(playlist.InternalID))
		})
	}
}

func TestInternalIDIsStable(t *testing.T) {
	a, err := NewVideo(Video{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up"})
	require.NoError(t, err)
	b, err := NewVideo(Video{ID: "dQw4w9WgXcQ", Title: "another title"})
	require.NoError(t, err)
	c, err := NewPlaylist(Playlist{ID: "dQw4w9WgXcQ", Title: "same id, different kind"})
	require.NoError(t, err)

	assert.Equal(t, a.InternalID, b.InternalID)
	assert.NotEqual(t, a.InternalID, c.InternalID)
}

func TestNewVideo_Validation(t *testing.T) {
	_, err := NewVideo(Video{ID: "v1", Title: "Song", DurationSeconds: -5})
	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "durationSeconds", invalid.Field)

	_, err = NewVideo(Video{ID: "", Title: "Song"})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestVideo_IsMusicVideo(t *testing.T) {
	tests := []struct {
		title       string
		description string
		want        bool
	}{
		{title: "Artist - Song (Official Video)", want: true},
		{title: "Song (Acoustic COVER)", want: false},
		{title: "Song - Live at Wembley", want: false},
		{title: "Song Karaoke Version", want: false},
		{title: "Song (Instrumental)", want: false},
		{title: "Song", description: "A Cover Version of the classic", want: false},
		{title: "Song Tutorial", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			v := &Video{Title: tt.title, Description: tt.description}
			assert.Equal(t, tt.want, v.IsMusicVideo())
		})
	}
}

func TestSearchResult_IsLikelyMusicVideo(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{title: "Artist - Song (Official Video)", want: true},
		{title: "Song guitar TUTORIAL", want: false},
		{title: "First reaction to Song", want: false},
		{title: "Song (live)", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			r := &SearchResult{Title: tt.title}
			assert.Equal(t, tt.want, r.IsLikelyMusicVideo())
		})
	}
}

func TestNewSearchResult_RelevanceBounds(t *testing.T) {
	for _, score := range []float64{0, 0.5, 1} {
		_, err := NewSearchResult(SearchResult{VideoID: "v1", Title: "Song", RelevanceScore: score})
		assert.NoError(t, err, "score %v", score)
	}
	for _, score := range []float64{-0.1, 1.01} {
		_, err := NewSearchResult(SearchResult{VideoID: "v1", Title: "Song", RelevanceScore: score})
		assert.True(t, domain.IsKind(err, domain.KindInvalidInput), "score %v", score)
	}
}

func TestPage_HasNextPage(t *testing.T) {
	assert.True(t, (&Page[Video]{NextPageToken: "CAUQAA"}).HasNextPage())
	assert.False(t, (&Page[Video]{}).HasNextPage())
	assert.False(t, (&Page[Video]{NextPageToken: " "}).HasNextPage())
}
