package player

import "errors"

var (
	// ErrInterrupted fails a pending start when new media is loaded over it
	ErrInterrupted = errors.New("start interrupted by new media")

	ErrNotInitialized = errors.New("player not initialized")
)

// Player defines the interface for audio playback operations.
// This abstraction lets SonicCLI drive different outputs (MPV, a pure Go decoder).
type Player interface {
	// Load replaces the current media with url, leaving it paused
	Load(url string) error

	// Play starts or resumes the loaded media. The returned channel yields once,
	// when playback has actually begun or failed to.
	Play() <-chan error

	// Pause pauses the loaded media
	Pause() error

	// Stop unloads the current media
	Stop() error

	// GetProgress returns the current playback position and total duration in seconds
	GetProgress() (currentPos, totalDuration float64, err error)

	// Ended signals when loaded media plays to its end
	Ended() <-chan struct{}

	// Cleanup performs cleanup operations (termination, resource release)
	Cleanup()
}

// settled returns a channel already holding err
func settled(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}

// signalEnded delivers an end-of-media signal without blocking
func signalEnded(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
