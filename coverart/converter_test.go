package coverart

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thumbnailServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/thumb.png", func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for x := 0; x < 16; x++ {
			for y := 0; y < 16; y++ {
				img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
			}
		}
		w.Header().Set("Content-Type", "image/png")
		assert.NoError(t, png.Encode(w, img))
	})
	r.Get("/broken.png", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("not an image"))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestConvertMemoizes(t *testing.T) {
	srv, hits := thumbnailServer(t)
	c := NewConverter(time.Second)

	first, err := c.Convert(context.Background(), srv.URL+"/thumb.png", 8, 4)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := c.Convert(context.Background(), srv.URL+"/thumb.png", 8, 4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	_, err = c.Convert(context.Background(), srv.URL+"/thumb.png", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "a different size renders again")
}

func TestConvertFailuresYieldPlaceholder(t *testing.T) {
	srv, _ := thumbnailServer(t)
	c := NewConverter(time.Second)

	out, err := c.Convert(context.Background(), "", 12, 5)
	require.NoError(t, err)
	assert.Equal(t, Placeholder(12, 5), out)

	out, err = c.Convert(context.Background(), srv.URL+"/broken.png", 12, 5)
	assert.Error(t, err)
	assert.Equal(t, Placeholder(12, 5), out)

	out, err = c.Convert(context.Background(), srv.URL+"/missing.png", 12, 5)
	assert.ErrorContains(t, err, "404")
	assert.Equal(t, Placeholder(12, 5), out)
}

func TestPlaceholder(t *testing.T) {
	lines := strings.Split(Placeholder(12, 5), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[2], "♫ ♪ ♫")
	for _, line := range lines {
		assert.Equal(t, 12, len([]rune(strings.TrimPrefix(line, "[darkgray]"))))
	}

	assert.Equal(t, "♫", Placeholder(2, 2))
}
