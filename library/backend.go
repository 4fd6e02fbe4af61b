package library

import (
	"context"
	"math"
	"sort"

	"github.com/yhkl-dev/SonicCLI/backend"
	"github.com/yhkl-dev/SonicCLI/domain"
)

type BackendLibrary struct {
	client *backend.Client
}

func NewBackendLibrary(client *backend.Client) *BackendLibrary {
	return &BackendLibrary{
		client: client,
	}
}

func (b *BackendLibrary) Search(ctx context.Context, query string) (domain.SearchResult, error) {
	tracks, err := b.client.Search(ctx, query)
	if err != nil {
		return domain.SearchResult{}, err
	}
	return ConvertSearchResult(tracks), nil
}

func (b *BackendLibrary) Suggest(ctx context.Context, query string) ([]domain.Track, error) {
	tracks, err := b.client.Suggestions(ctx, query)
	if err != nil {
		return nil, err
	}
	return ConvertToDomainTracks(tracks), nil
}

func (b *BackendLibrary) GetStreamURL(trackID string) string {
	return b.client.StreamURL(trackID)
}

func (b *BackendLibrary) Warmup(ctx context.Context, trackID string) error {
	return b.client.Warmup(ctx, trackID)
}

func (b *BackendLibrary) GetRecommendations(ctx context.Context, trackID string) ([]domain.Recommendation, error) {
	recs, err := b.client.Recommendations(ctx, trackID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.ID == "" {
			continue
		}
		out = append(out, convertToDomainRecommendation(rec))
	}
	return out, nil
}

func (b *BackendLibrary) GetCollections(ctx context.Context) ([]domain.Collection, error) {
	cols, err := b.client.Collections(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Collection, 0, len(cols))
	for id, col := range cols {
		name := col.Name
		if name == "" {
			name = id
		}
		out = append(out, domain.Collection{ID: id, Name: name, TrackCount: len(col.Songs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ConvertToDomainTracks converts wire tracks, dropping entries without an id
func ConvertToDomainTracks(tracks []backend.Track) []domain.Track {
	domainTracks := make([]domain.Track, 0, len(tracks))
	for _, track := range tracks {
		if track.ID == "" {
			continue
		}
		domainTracks = append(domainTracks, convertToDomainTrack(track))
	}
	return domainTracks
}

// ConvertSearchResult converts a wire result list, keeping attached stream locations
func ConvertSearchResult(tracks []backend.Track) domain.SearchResult {
	return domain.SearchResult{
		Tracks:  ConvertToDomainTracks(tracks),
		Streams: StreamLocations(tracks),
	}
}

// StreamLocations returns the stream addresses the backend attached to tracks, by id
func StreamLocations(tracks []backend.Track) map[string]string {
	streams := make(map[string]string)
	for _, track := range tracks {
		if track.ID != "" && track.StreamURL != "" {
			streams[track.ID] = track.StreamURL
		}
	}
	return streams
}

func convertToDomainTrack(track backend.Track) domain.Track {
	return domain.Track{
		ID:        track.ID,
		Title:     track.Title,
		Artist:    track.Artist,
		Thumbnail: track.Thumbnail,
		Duration:  seconds(track.Duration),
	}
}

func convertToDomainRecommendation(rec backend.Recommendation) domain.Recommendation {
	name := rec.Name
	if name == "" {
		name = rec.Title
	}
	artist := rec.Artist
	if artist == "" {
		artist = rec.Artists.String()
	}
	image := rec.AlbumImage
	if image == "" {
		image = rec.Thumbnail
	}
	return domain.Recommendation{
		ID:         rec.ID,
		Name:       name,
		Artist:     artist,
		AlbumImage: image,
	}
}

// seconds rounds a wire duration to whole non-negative seconds
func seconds(d float64) int {
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return int(math.Round(d))
}
