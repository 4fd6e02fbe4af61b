package domain

import (
	"sort"
	"sync"
	"time"
)

// Track represents a playable song returned by the backend
type Track struct {
	ID        string
	Title     string
	Artist    string
	Thumbnail string
	Duration  int // in seconds
}

// Recommendation is an entry of the recommendation list for the current track
type Recommendation struct {
	ID         string
	Name       string
	Artist     string
	AlbumImage string
}

// Track converts the recommendation into a playable track. fallbackThumbnail is used
// when the recommendation carries no album image.
func (r Recommendation) Track(fallbackThumbnail string) Track {
	thumbnail := r.AlbumImage
	if thumbnail == "" {
		thumbnail = fallbackThumbnail
	}
	return Track{
		ID:        r.ID,
		Title:     r.Name,
		Artist:    r.Artist,
		Thumbnail: thumbnail,
	}
}

// Collection is a named user collection shown in the sidebar
type Collection struct {
	ID         string
	Name       string
	TrackCount int
}

// HistoryEntry is a single play-history event
type HistoryEntry struct {
	SongID    string
	Title     string
	Timestamp time.Time
}

// IndexOf returns the position of the track with the given id, or -1
func IndexOf(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// LikedSet holds the ids of tracks liked during this session (thread-safe)
type LikedSet struct {
	ids map[string]struct{}
	mux sync.RWMutex
}

// NewLikedSet creates an empty LikedSet
func NewLikedSet() *LikedSet {
	return &LikedSet{ids: make(map[string]struct{})}
}

// Toggle flips the liked state of id and returns the new state
func (s *LikedSet) Toggle(id string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is liked
func (s *LikedSet) Has(id string) bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the liked ids in sorted order
func (s *LikedSet) IDs() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SearchResult is the answer to one search query. Streams holds any stream
// locations the backend resolved ahead of time, keyed by track id.
type SearchResult struct {
	Tracks  []Track
	Streams map[string]string
}
