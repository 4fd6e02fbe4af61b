package backend

import (
	"encoding/json"
	"strings"
)

// Track is a song as returned by /search, /suggestions and the real-time channel
type Track struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Thumbnail string  `json:"thumbnail"`
	Duration  float64 `json:"duration"` // in seconds, may be fractional or null
	StreamURL string  `json:"stream_url,omitempty"`
}

// Recommendation is an entry of /recommend/song/<id>. Depending on the recommender
// the backend fills either the search-style fields or the catalogue-style ones.
type Recommendation struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Artists    NameList `json:"artists"`
	AlbumImage string   `json:"album_image"`
	Thumbnail  string   `json:"thumbnail"`
	Duration   float64  `json:"duration"`
}

type RecommendationResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// Collection is a named user collection
type Collection struct {
	Name  string         `json:"name"`
	Songs map[string]any `json:"songs,omitempty"`
}

type CollectionsResponse struct {
	Collections map[string]Collection `json:"collections"`
}

// NameList accepts either a JSON string or an array of strings
type NameList []string

func (n *NameList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*n = nil
		} else {
			*n = NameList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*n = many
	return nil
}

// String joins the names with ", "
func (n NameList) String() string {
	return strings.Join(n, ", ")
}
