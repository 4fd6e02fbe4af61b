package domain

// PlaybackStatus is the transport state of the now-playing slot.
//
// Transitions:
//
//	Idle/Paused --play--> Starting --started--> Playing
//	Starting/Playing --pause--> Pausing --paused--> Paused
//	Starting --failed--> Idle (new track) or Paused (resume)
type PlaybackStatus int

const (
	StatusIdle PlaybackStatus = iota
	StatusStarting
	StatusPlaying
	StatusPausing
	StatusPaused
)

// String returns the string representation of the status
func (s PlaybackStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusPlaying:
		return "playing"
	case StatusPausing:
		return "pausing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Active reports whether the transport is playing or about to play
func (s PlaybackStatus) Active() bool {
	return s == StatusStarting || s == StatusPlaying || s == StatusPausing
}

// PlaybackSnapshot is a point-in-time copy of the controller state for rendering
type PlaybackSnapshot struct {
	Current         *Track
	Status          PlaybackStatus
	Radio           bool
	Recommendations []Recommendation
}
