package ui

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/yhkl-dev/SonicCLI/config"
	"github.com/yhkl-dev/SonicCLI/coverart"
	"github.com/yhkl-dev/SonicCLI/domain"
	"github.com/yhkl-dev/SonicCLI/library"
	"github.com/yhkl-dev/SonicCLI/player"
	"github.com/yhkl-dev/SonicCLI/playback"
	"github.com/yhkl-dev/SonicCLI/query"
)

// App represents the TUI application
type App struct {
	tviewApp *tview.Application
	cfg      *config.Config
	ctx      context.Context
	library  library.Library
	player   player.Player
	coord    *query.Coordinator
	ctrl     *playback.Controller
	channel  query.Channel

	// UI state, only touched on the tview goroutine
	shownResults     []domain.Track
	shownSuggestions []domain.Track
	collections      []domain.Collection
	position         float64
	duration         float64
	currentCover     string
	coverTrackID     string
	message          string

	rootFlex           *tview.Flex
	searchInput        *tview.InputField
	suggestionList     *tview.List
	resultTable        *tview.Table
	statusBar          *tview.TextView
	progressBar        *tview.TextView
	collectionList     *tview.List
	recommendationView *RecommendationView
	helpView           *HelpView
	keys               *KeyBindingManager
	coverConverter     *coverart.Converter

	tasks conc.WaitGroup
}

// NewApp creates a new TUI application with dependency injection. channel may be
// nil when the real-time connection is disabled.
func NewApp(ctx context.Context, cfg *config.Config, lib library.Library, plr player.Player, coord *query.Coordinator, ctrl *playback.Controller, channel query.Channel) *App {
	return &App{
		tviewApp:       tview.NewApplication(),
		cfg:            cfg,
		ctx:            ctx,
		library:        lib,
		player:         plr,
		coord:          coord,
		ctrl:           ctrl,
		channel:        channel,
		coverConverter: coverart.NewConverter(cfg.Player.GetHTTPTimeout()),
	}
}

// Run starts the application and blocks until it is stopped
func (a *App) Run() error {
	a.createHomepage()
	a.coord.SetOnChange(a.requestRender)
	a.ctrl.SetOnChange(a.requestRender)

	a.goSafe("progress", a.updateProgressBar)
	a.goSafe("collections", a.loadCollections)
	a.goSafe("player events", a.handlePlayerEvents)

	log.Info().Str("server", a.cfg.Server.URL).Msg("start soniccli")
	return a.tviewApp.Run()
}

// Stop stops the application and waits for its background tasks
func (a *App) Stop() {
	if a.tviewApp != nil {
		a.tviewApp.Stop()
	}
	a.tasks.Wait()
}

// goSafe runs fn on a tracked goroutine, logging instead of crashing on panic
func (a *App) goSafe(name string, fn func()) {
	a.tasks.Go(func() {
		if r := panics.Try(fn); r != nil {
			log.Error().Str("task", name).Str("panic", r.String()).Msg("recovered panic")
		}
	})
}

// requestRender schedules a redraw from any goroutine, including the UI one
func (a *App) requestRender() {
	go a.tviewApp.QueueUpdateDraw(a.render)
}

// loadCollections fetches the sidebar collections once
func (a *App) loadCollections() {
	cols, err := a.library.GetCollections(a.ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load collections")
		return
	}
	a.tviewApp.QueueUpdateDraw(func() {
		a.collections = cols
		a.renderCollections()
	})
}

// handlePlayerEvents advances playback when the transport reaches end of media
func (a *App) handlePlayerEvents() {
	ended := a.player.Ended()
	for {
		select {
		case <-ended:
			if err := a.ctrl.OnTrackEnded(a.ctx); err != nil && !errors.Is(err, playback.ErrAborted) {
				a.showMessage(fmt.Sprintf("[red]Playback failed: %v", err))
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// updateProgressBar polls the transport position once a second
func (a *App) updateProgressBar() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := a.ctrl.Snapshot()
			if snap.Current == nil || snap.Status == domain.StatusIdle {
				continue
			}
			pos, total, err := a.player.GetProgress()
			if err != nil {
				log.Debug().Err(err).Msg("progress unavailable")
				continue
			}
			a.tviewApp.QueueUpdateDraw(func() {
				a.position, a.duration = pos, total
				a.renderNowPlaying(a.ctrl.Snapshot())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// play starts track in the background
func (a *App) play(track domain.Track) {
	a.goSafe("play", func() {
		if err := a.ctrl.Play(a.ctx, track); err != nil && !errors.Is(err, playback.ErrAborted) {
			a.showMessage(fmt.Sprintf("[red]Cannot play %s: %v", track.Title, err))
		}
	})
}

func (a *App) playNext() {
	a.goSafe("next", func() { a.ctrl.PlayNext(a.ctx) })
}

func (a *App) playPrevious() {
	a.goSafe("previous", func() { a.ctrl.PlayPrevious(a.ctx) })
}

func (a *App) togglePlayback() {
	a.goSafe("toggle", func() { a.ctrl.Toggle(a.ctx) })
}

func (a *App) toggleLike() {
	snap := a.ctrl.Snapshot()
	if snap.Current == nil {
		return
	}
	a.ctrl.ToggleLike(snap.Current.ID)
}

func (a *App) search() {
	a.goSafe("search", func() { a.coord.Search(a.ctx) })
}

// warm prepares the highlighted track on the backend
func (a *App) warm(track domain.Track) {
	a.goSafe("warmup", func() { a.ctrl.SelectForWarmup(a.ctx, track) })
}

// showMessage replaces the welcome text until playback starts
func (a *App) showMessage(msg string) {
	a.tviewApp.QueueUpdateDraw(func() {
		a.message = msg
		a.render()
	})
}

// render redraws every panel from the coordinator and controller state
func (a *App) render() {
	if a.rootFlex == nil {
		return
	}

	results := a.coord.Results()
	if !reflect.DeepEqual(a.shownResults, results) {
		a.shownResults = results
		a.renderResults()
	}
	suggestions := a.coord.Suggestions()
	if !reflect.DeepEqual(a.shownSuggestions, suggestions) {
		a.shownSuggestions = suggestions
		a.renderSuggestions()
	}
	a.renderSearchLabel()

	snap := a.ctrl.Snapshot()
	a.recommendationView.Update(snap)
	a.renderNowPlaying(snap)
}

// renderNowPlaying updates the status and progress panels
func (a *App) renderNowPlaying(snap domain.PlaybackSnapshot) {
	connected := a.channel != nil && a.channel.Connected()
	if snap.Current == nil {
		text := CreateWelcomeMessage(a.cfg.Server.URL)
		if a.message != "" {
			text = a.message + "\n" + text
		}
		a.statusBar.SetText(text)
		a.progressBar.SetText(CreateProgressText(FormatDuration(0), FormatDuration(0), connected))
		return
	}

	track := *snap.Current
	if track.ID != a.coverTrackID {
		a.coverTrackID = track.ID
		a.currentCover = ""
		a.position, a.duration = 0, 0
		a.loadCover(track)
	}

	total := a.duration
	if total <= 0 {
		total = float64(track.Duration)
	}
	progress := 0.0
	if total > 0 {
		progress = a.position / total
	}

	bar := CreateProgressBar(progress, a.cfg.UI.ProgressBarWidth)
	text := FormatTrackInfo(track, snap, a.ctrl.Liked(track.ID), bar, a.currentCover)
	if a.message != "" && snap.Status == domain.StatusIdle {
		text = a.message + "\n" + text
	}
	a.statusBar.SetText(text)
	a.progressBar.SetText(CreateProgressText(FormatDuration(int(a.position)), FormatDuration(int(total)), connected))
}

// loadCover renders the thumbnail of track in the background
func (a *App) loadCover(track domain.Track) {
	if !a.cfg.UI.Thumbnails {
		return
	}
	width, height := a.cfg.UI.ThumbnailWidth, a.cfg.UI.ThumbnailHeight
	a.goSafe("cover", func() {
		ascii, err := a.coverConverter.Convert(a.ctx, track.Thumbnail, width, height)
		if err != nil {
			log.Debug().Err(err).Str("track", track.ID).Msg("failed to load thumbnail")
		}
		a.tviewApp.QueueUpdateDraw(func() {
			if a.coverTrackID != track.ID {
				return
			}
			a.currentCover = ascii
			a.renderNowPlaying(a.ctrl.Snapshot())
		})
	})
}
