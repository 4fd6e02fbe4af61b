package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodecFor(t *testing.T) {
	tests := []struct {
		contentType string
		url         string
		want        string
	}{
		{"audio/mpeg", "http://backend/stream/t1", "mp3"},
		{"audio/ogg", "http://backend/stream/t1", "vorbis"},
		{"application/ogg; charset=binary", "http://backend/stream/t1", "vorbis"},
		{"audio/mpeg", "https://cdn/t1.ogg", "mp3"},
		{"application/octet-stream", "https://cdn/t1.OGG?sig=abc", "vorbis"},
		{"", "https://cdn/t1.oga", "vorbis"},
		{"", "https://cdn/t1.mp3", "mp3"},
		{"", "http://backend/stream/t1", "mp3"},
	}

	for _, tt := range tests {
		codec, decode := codecFor(tt.contentType, tt.url)
		assert.Equal(t, tt.want, codec, "%q %q", tt.contentType, tt.url)
		assert.NotNil(t, decode)
	}
}
