package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wildeyedskies/go-mpv/mpv"

	"github.com/yhkl-dev/SonicCLI/mpvplayer"
)

// MPVPlayer implements the Player interface using MPV media player
type MPVPlayer struct {
	instance *mpvplayer.Mpvplayer
	ended    chan struct{}

	// pending is the start waiting for the loaded media to open
	pending chan error
	loaded  bool
	mux     sync.Mutex
}

// NewMPVPlayer creates a new MPVPlayer instance
func NewMPVPlayer(ctx context.Context) (*MPVPlayer, error) {
	mpvInstance, err := mpvplayer.CreateMPVInstance()
	if err != nil {
		return nil, fmt.Errorf("failed to create MPV instance: %w", err)
	}

	player := &MPVPlayer{
		instance: &mpvplayer.Mpvplayer{
			Mpv:               mpvInstance,
			EventChannel:      createEventListener(ctx, mpvInstance),
			ReplaceInProgress: false,
		},
		ended: make(chan struct{}, 1),
	}
	go player.handleEvents()

	return player, nil
}

// Load replaces the current media. A start still waiting on the previous media
// fails with ErrInterrupted.
func (p *MPVPlayer) Load(url string) error {
	if p.instance == nil || p.instance.Mpv == nil {
		return ErrNotInitialized
	}

	p.mux.Lock()
	p.interruptLocked()
	p.loaded = false
	p.instance.ReplaceInProgress = true
	p.mux.Unlock()

	if err := p.instance.Load(url); err != nil {
		p.mux.Lock()
		p.instance.ReplaceInProgress = false
		p.mux.Unlock()
		return fmt.Errorf("loadfile: %w", err)
	}
	return nil
}

// Play unpauses the loaded media. The start settles once mpv reports the file
// as loaded.
func (p *MPVPlayer) Play() <-chan error {
	if p.instance == nil || p.instance.Mpv == nil {
		return settled(ErrNotInitialized)
	}
	if err := p.instance.SetPaused(false); err != nil {
		return settled(fmt.Errorf("unpause: %w", err))
	}

	p.mux.Lock()
	defer p.mux.Unlock()
	if p.loaded {
		return settled(nil)
	}
	p.interruptLocked()
	ch := make(chan error, 1)
	p.pending = ch
	return ch
}

// Pause pauses playback
func (p *MPVPlayer) Pause() error {
	if p.instance == nil || p.instance.Mpv == nil {
		return ErrNotInitialized
	}
	return p.instance.SetPaused(true)
}

// Stop stops playback
func (p *MPVPlayer) Stop() error {
	if p.instance == nil || p.instance.Mpv == nil {
		return ErrNotInitialized
	}
	p.mux.Lock()
	p.interruptLocked()
	p.loaded = false
	p.instance.ReplaceInProgress = true
	p.mux.Unlock()
	return p.instance.Stop()
}

// GetProgress returns the current playback position and total duration
func (p *MPVPlayer) GetProgress() (currentPos, totalDuration float64, err error) {
	if p.instance == nil || p.instance.Mpv == nil {
		return 0, 0, ErrNotInitialized
	}

	pos, err := p.instance.GetProgress()
	if err != nil {
		return 0, 0, err
	}
	duration, err := p.instance.GetDuration()
	if err != nil {
		return 0, 0, err
	}

	return pos, duration, nil
}

// Ended returns the end-of-media signal
func (p *MPVPlayer) Ended() <-chan struct{} {
	return p.ended
}

// Cleanup performs cleanup operations
func (p *MPVPlayer) Cleanup() {
	if p.instance != nil && p.instance.Mpv != nil {
		p.instance.Command([]string{"quit"})
		p.instance.TerminateDestroy()
	}
}

func (p *MPVPlayer) interruptLocked() {
	if p.pending != nil {
		p.pending <- ErrInterrupted
		p.pending = nil
	}
}

// handleEvents turns mpv events into start results and end-of-media signals
func (p *MPVPlayer) handleEvents() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("mpv event handler panic recovered")
		}
	}()

	for event := range p.instance.EventChannel {
		if event == nil {
			continue
		}
		switch event.Event_Id {
		case mpv.EVENT_START_FILE:
			p.mux.Lock()
			p.instance.ReplaceInProgress = false
			p.mux.Unlock()
		case mpv.EVENT_FILE_LOADED:
			p.mux.Lock()
			p.loaded = true
			if p.pending != nil {
				p.pending <- nil
				p.pending = nil
			}
			p.mux.Unlock()
		case mpv.EVENT_END_FILE:
			p.mux.Lock()
			switch {
			case p.instance.ReplaceInProgress:
				// end of the media being replaced
			case p.pending != nil:
				p.pending <- fmt.Errorf("mpv could not open media")
				p.pending = nil
			case p.loaded:
				p.loaded = false
				signalEnded(p.ended)
			}
			p.mux.Unlock()
		}
	}
}

// createEventListener creates an event listener for MPV events
func createEventListener(ctx context.Context, m *mpv.Mpv) chan *mpv.Event {
	c := make(chan *mpv.Event)
	go func() {
		defer close(c)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				e := m.WaitEvent(1)
				if e == nil {
					time.Sleep(10 * time.Millisecond)
					continue
				}
				select {
				case c <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return c
}
