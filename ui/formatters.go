package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/yhkl-dev/SonicCLI/domain"
)

// FormatDuration converts seconds to MM:SS format
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// Truncate shortens s to at most width terminal cells, marking the cut with "…"
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// FormatStatus renders the playback status label
func FormatStatus(status domain.PlaybackStatus, radio bool) string {
	label := ""
	switch status {
	case domain.StatusStarting:
		label = "[yellow]LOADING"
	case domain.StatusPlaying:
		label = "[lightgreen]PLAYING"
	case domain.StatusPausing, domain.StatusPaused:
		label = "[yellow]PAUSED"
	default:
		label = "[darkgray]STOPPED"
	}
	if radio {
		label += " [violet]RADIO"
	}
	return label
}

// FormatTrackInfo creates the now playing panel for a track
func FormatTrackInfo(track domain.Track, snap domain.PlaybackSnapshot, liked bool, progressBar, cover string) string {
	heart := "[darkgray]♡"
	if liked {
		heart = "[red]♥"
	}

	var b strings.Builder
	if cover != "" {
		b.WriteString(cover)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, `
%s [white]%s %s
[gray]Artist: [white]%s
[darkgray][duration] %s

%s`,
		FormatStatus(snap.Status, snap.Radio), track.Title, heart,
		orDash(track.Artist), FormatDuration(track.Duration), progressBar)
	return b.String()
}

// CreateProgressBar creates a visual progress bar
func CreateProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	filledWidth := int(progress * float64(width))

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filledWidth {
			b.WriteString("[lightgreen]▓")
		} else {
			b.WriteString("[darkgray]░")
		}
	}
	fmt.Fprintf(&b, "[white] %.1f%%", progress*100)
	return b.String()
}

// CreateProgressText creates the progress time display
func CreateProgressText(currentTime, totalTime string, connected bool) string {
	link := "[red]offline"
	if connected {
		link = "[lightgreen]live"
	}
	return fmt.Sprintf(`
[darkgray]%s/%s [darkgray][channel] %s`, currentTime, totalTime, link)
}

// CreateWelcomeMessage creates the welcome screen message
func CreateWelcomeMessage(server string) string {
	return fmt.Sprintf(`
[lightgreen] Welcome to SonicCLI
[darkgray][source] %s

[gray]  / (search) | ENTER (play)
[gray]  SPACE (play/pause)
[gray]  n/p or →/← (next/prev)
[gray]  l (like) | TAB (panels)
[gray]  gg (top) | G (bottom)
[gray]  ? (help) | ESC to exit`, server)
}

// FormatRecommendation renders one recommendation list entry
func FormatRecommendation(index int, rec domain.Recommendation, width int) string {
	return Truncate(fmt.Sprintf("%d. %s - %s", index+1, rec.Name, orDash(rec.Artist)), width)
}

// FormatCollection renders one collection sidebar entry
func FormatCollection(col domain.Collection) string {
	if col.TrackCount == 1 {
		return fmt.Sprintf("%s (1 track)", col.Name)
	}
	return fmt.Sprintf("%s (%d tracks)", col.Name, col.TrackCount)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
