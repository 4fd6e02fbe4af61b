package player

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/rs/zerolog/log"
)

type decodeFunc func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// codecFor picks the decoder for a stream from its content type, falling back to
// the url extension when the server sends a generic type. mp3 is the default.
func codecFor(contentType, streamURL string) (string, decodeFunc) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "audio/ogg", "application/ogg", "audio/vorbis":
		return "vorbis", vorbis.Decode
	case "audio/mpeg", "audio/mp3":
		return "mp3", mp3.Decode
	}

	if u, err := url.Parse(streamURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".ogg", ".oga":
			return "vorbis", vorbis.Decode
		}
	}
	return "mp3", mp3.Decode
}

// BeepPlayer decodes mp3 and ogg vorbis streams in-process and plays them through the system
// speaker. It needs no external media player.
type BeepPlayer struct {
	httpClient *http.Client
	sampleRate beep.SampleRate
	ended      chan struct{}

	url    string
	gen    uint64
	stream beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	mux    sync.Mutex
}

// NewBeepPlayer initializes the speaker at sampleRate Hz
func NewBeepPlayer(sampleRate int, timeout time.Duration) (*BeepPlayer, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("failed to init speaker: %w", err)
	}
	return &BeepPlayer{
		httpClient: &http.Client{Timeout: timeout},
		sampleRate: sr,
		ended:      make(chan struct{}, 1),
	}, nil
}

// Load selects new media. The stream is opened by the next Play.
func (p *BeepPlayer) Load(url string) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.closeLocked()
	p.url = url
	return nil
}

// Play resumes the open stream, or opens the loaded url in the background
func (p *BeepPlayer) Play() <-chan error {
	p.mux.Lock()
	defer p.mux.Unlock()

	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = false
		speaker.Unlock()
		return settled(nil)
	}
	if p.url == "" {
		return settled(fmt.Errorf("no media loaded"))
	}

	ch := make(chan error, 1)
	go p.open(p.gen, p.url, ch)
	return ch
}

func (p *BeepPlayer) open(gen uint64, streamURL string, result chan<- error) {
	resp, err := p.httpClient.Get(streamURL)
	if err != nil {
		result <- fmt.Errorf("fetch stream: %w", err)
		return
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		result <- fmt.Errorf("fetch stream: status %d", resp.StatusCode)
		return
	}

	codec, decode := codecFor(resp.Header.Get("Content-Type"), streamURL)
	stream, format, err := decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		result <- fmt.Errorf("decode %s stream: %w", codec, err)
		return
	}
	log.Debug().Str("codec", codec).Str("url", streamURL).Msg("stream opened")

	p.mux.Lock()
	defer p.mux.Unlock()
	if gen != p.gen {
		stream.Close()
		result <- ErrInterrupted
		return
	}

	p.stream = stream
	p.format = format
	p.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, p.sampleRate, stream)}
	// the callback runs under the speaker lock
	speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
		go p.finished(gen)
	})))
	result <- nil
}

func (p *BeepPlayer) finished(gen uint64) {
	p.mux.Lock()
	current := gen == p.gen
	p.mux.Unlock()
	if current {
		signalEnded(p.ended)
	}
}

// Pause pauses playback
func (p *BeepPlayer) Pause() error {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.ctrl == nil {
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Stop stops playback and forgets the loaded url
func (p *BeepPlayer) Stop() error {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.closeLocked()
	p.url = ""
	return nil
}

// GetProgress returns the position and length of the open stream
func (p *BeepPlayer) GetProgress() (currentPos, totalDuration float64, err error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.stream == nil {
		return 0, 0, nil
	}
	speaker.Lock()
	pos := p.format.SampleRate.D(p.stream.Position())
	total := p.format.SampleRate.D(p.stream.Len())
	speaker.Unlock()
	return pos.Seconds(), total.Seconds(), nil
}

// Ended returns the end-of-media signal
func (p *BeepPlayer) Ended() <-chan struct{} {
	return p.ended
}

// Cleanup releases the speaker
func (p *BeepPlayer) Cleanup() {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.closeLocked()
	speaker.Close()
}

// closeLocked drops the open stream. Any stream still opening is discarded when
// it completes.
func (p *BeepPlayer) closeLocked() {
	p.gen++
	speaker.Clear()
	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			log.Debug().Err(err).Msg("closing stream")
		}
	}
	p.stream = nil
	p.ctrl = nil
}
