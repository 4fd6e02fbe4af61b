package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommendationTrack(t *testing.T) {
	rec := Recommendation{ID: "r1", Name: "Digital Love", Artist: "Daft Punk"}

	track := rec.Track("thumb-of-current")
	assert.Equal(t, "r1", track.ID)
	assert.Equal(t, "Digital Love", track.Title)
	assert.Equal(t, "thumb-of-current", track.Thumbnail)

	rec.AlbumImage = "album.jpg"
	assert.Equal(t, "album.jpg", rec.Track("thumb-of-current").Thumbnail)
}

func TestIndexOf(t *testing.T) {
	tracks := []Track{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, 1, IndexOf(tracks, "b"))
	assert.Equal(t, -1, IndexOf(tracks, "z"))
	assert.Equal(t, -1, IndexOf(nil, "a"))
}

func TestLikedSetToggle(t *testing.T) {
	s := NewLikedSet()

	assert.True(t, s.Toggle("t1"))
	assert.True(t, s.Has("t1"))
	assert.True(t, s.Toggle("t0"))
	assert.Equal(t, []string{"t0", "t1"}, s.IDs())

	assert.False(t, s.Toggle("t1"))
	assert.False(t, s.Has("t1"))
	assert.Equal(t, []string{"t0"}, s.IDs())
}

func TestPlaybackStatusString(t *testing.T) {
	assert.Equal(t, "pausing", StatusPausing.String())
	assert.Equal(t, "unknown", PlaybackStatus(42).String())
	assert.True(t, StatusStarting.Active())
	assert.False(t, StatusPaused.Active())
}
