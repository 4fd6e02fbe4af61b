package library

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yhkl-dev/SonicCLI/backend"
	"github.com/yhkl-dev/SonicCLI/domain"
)

func TestConvertToDomainTracks(t *testing.T) {
	tracks := ConvertToDomainTracks([]backend.Track{
		{ID: "t1", Title: "One More Time", Duration: 320.4, Thumbnail: "img"},
		{ID: "", Title: "no id"},
		{ID: "t2", Duration: -5},
		{ID: "t3", Duration: math.NaN()},
	})

	require.Len(t, tracks, 3)
	assert.Equal(t, domain.Track{ID: "t1", Title: "One More Time", Thumbnail: "img", Duration: 320}, tracks[0])
	assert.Zero(t, tracks[1].Duration)
	assert.Zero(t, tracks[2].Duration)
}

func TestStreamLocations(t *testing.T) {
	streams := StreamLocations([]backend.Track{
		{ID: "t1", StreamURL: "https://cdn/t1"},
		{ID: "t2"},
		{StreamURL: "https://cdn/orphan"},
	})

	assert.Equal(t, map[string]string{"t1": "https://cdn/t1"}, streams)
}

func TestConvertRecommendation(t *testing.T) {
	rec := convertToDomainRecommendation(backend.Recommendation{
		ID:        "r1",
		Title:     "Around the World",
		Artists:   backend.NameList{"Daft Punk", "Romanthony"},
		Thumbnail: "thumb",
	})

	assert.Equal(t, domain.Recommendation{
		ID:         "r1",
		Name:       "Around the World",
		Artist:     "Daft Punk, Romanthony",
		AlbumImage: "thumb",
	}, rec)
}

func TestBackendLibraryCollections(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/collections/{user}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"collections":{
			"b":{"name":"Workout","songs":{"t1":{},"t2":{}}},
			"a":{"name":"Chill"},
			"c":{}
		}}`))
	})
	r.Get("/recommend/song/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recommendations":[{"id":""},{"id":"r1","name":"Digital Love"}]}`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	lib := NewBackendLibrary(backend.Init(srv.URL, "guest", time.Second))

	cols, err := lib.GetCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "Chill", cols[0].Name)
	assert.Equal(t, "Workout", cols[1].Name)
	assert.Equal(t, 2, cols[1].TrackCount)
	assert.Equal(t, "c", cols[2].Name)

	recs, err := lib.GetRecommendations(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Digital Love", recs[0].Name)
}
