package mpvplayer

import (
	"fmt"

	"github.com/wildeyedskies/go-mpv/mpv"
)

// Mpvplayer wraps a libmpv handle with the commands SonicCLI issues.
// ReplaceInProgress is set while loaded media is being replaced, so that the
// end-of-file event of the outgoing media can be told apart from a natural end.
type Mpvplayer struct {
	*mpv.Mpv
	EventChannel      chan *mpv.Event
	ReplaceInProgress bool
}

func (m *Mpvplayer) GetProgress() (float64, error) {
	return m.getDouble("time-pos")
}

func (m *Mpvplayer) GetDuration() (float64, error) {
	return m.getDouble("duration")
}

func (m *Mpvplayer) getDouble(name string) (float64, error) {
	value, err := m.GetProperty(name, mpv.FORMAT_DOUBLE)
	if err != nil {
		return 0, err
	}
	f, ok := value.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: unexpected type %T", name, value)
	}
	return f, nil
}

// Load replaces the current media with playURL without starting it
func (m *Mpvplayer) Load(playURL string) error {
	if err := m.SetPaused(true); err != nil {
		return err
	}
	return m.Command([]string{"loadfile", playURL, "replace"})
}

func (m *Mpvplayer) SetPaused(paused bool) error {
	value := "no"
	if paused {
		value = "yes"
	}
	return m.Command([]string{"set", "pause", value})
}

func (m *Mpvplayer) Stop() error {
	return m.Command([]string{"stop"})
}

func (m *Mpvplayer) IsSongLoaded() (bool, error) {
	idle, err := m.GetProperty("idle-active", mpv.FORMAT_FLAG)
	if err != nil {
		return false, err
	}
	return !idle.(bool), nil
}

func (m *Mpvplayer) IsPaused() (bool, error) {
	pause, err := m.GetProperty("pause", mpv.FORMAT_FLAG)
	if err != nil {
		return false, err
	}
	return pause.(bool), nil
}

func CreateMPVInstance() (*mpv.Mpv, error) {
	mpvInstance := mpv.Create()

	mpvInstance.SetOptionString("audio-display", "no")
	mpvInstance.SetOptionString("video", "no")
	mpvInstance.SetOptionString("cache", "yes")
	mpvInstance.ObserveProperty(0, "cache-buffering-state", mpv.FORMAT_INT64)
	mpvInstance.ObserveProperty(0, "demuxer-cache-duration", mpv.FORMAT_INT64)

	err := mpvInstance.Initialize()
	if err != nil {
		mpvInstance.TerminateDestroy()
		return nil, err
	}
	return mpvInstance, nil
}
