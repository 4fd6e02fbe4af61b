package library

import (
	"context"

	"github.com/yhkl-dev/SonicCLI/domain"
)

// Library is the remote music catalogue the client browses and plays from
type Library interface {
	Search(ctx context.Context, query string) (domain.SearchResult, error)
	Suggest(ctx context.Context, query string) ([]domain.Track, error)
	GetStreamURL(trackID string) string
	Warmup(ctx context.Context, trackID string) error
	GetRecommendations(ctx context.Context, trackID string) ([]domain.Recommendation, error)
	GetCollections(ctx context.Context) ([]domain.Collection, error)
}
