// Package playback owns the now-playing slot. It sequences transport commands so
// that at most one start is in flight, advances through search results and
// recommendations, and warms tracks on the backend before they are played.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/yhkl-dev/SonicCLI/cache"
	"github.com/yhkl-dev/SonicCLI/domain"
	"github.com/yhkl-dev/SonicCLI/history"
	"github.com/yhkl-dev/SonicCLI/library"
)

// ErrAborted is returned for a start that was superseded before it settled
var ErrAborted = errors.New("playback start superseded")

// Transport is the audio output driven by the controller
type Transport interface {
	// Load replaces the current media. A start still pending on the previous
	// media fails.
	Load(url string) error

	// Play starts or resumes the loaded media without blocking. The channel
	// yields exactly once, when the transport has started or failed.
	Play() <-chan error

	// Pause pauses the loaded media
	Pause() error
}

// Playlist exposes the active search results
type Playlist interface {
	Results() []domain.Track
}

// Options tunes the controller
type Options struct {
	WarmupRate     rate.Limit
	WarmupBurst    int
	HistoryTimeout time.Duration
}

// DefaultOptions returns the standard settings
func DefaultOptions() Options {
	return Options{
		WarmupRate:     4,
		WarmupBurst:    4,
		HistoryTimeout: 10 * time.Second,
	}
}

// operation is the handle of one start sequence. done is closed once the
// transport start has settled; err and failed are valid after that.
type operation struct {
	seq    uint64
	done   chan struct{}
	err    error
	failed domain.PlaybackStatus
}

// Controller is the playback state machine
type Controller struct {
	lib       library.Library
	cache     *cache.ResultCache
	transport Transport
	history   history.Recorder
	playlist  Playlist
	limiter   *rate.Limiter
	liked     *domain.LikedSet
	opts      Options

	onChange func()

	current         *domain.Track
	status          domain.PlaybackStatus
	radio           bool
	recommendations []domain.Recommendation
	inflight        *operation
	seq             uint64
	mux             sync.Mutex

	// transportMu is taken before mux when both are held
	transportMu sync.Mutex
	tasks       conc.WaitGroup
}

// NewController creates a controller. recorder and playlist may be nil.
func NewController(lib library.Library, resultCache *cache.ResultCache, transport Transport, recorder history.Recorder, playlist Playlist, opts Options) *Controller {
	def := DefaultOptions()
	if opts.WarmupRate == 0 {
		opts.WarmupRate = def.WarmupRate
	}
	if opts.WarmupBurst <= 0 {
		opts.WarmupBurst = def.WarmupBurst
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = def.HistoryTimeout
	}
	return &Controller{
		lib:       lib,
		cache:     resultCache,
		transport: transport,
		history:   recorder,
		playlist:  playlist,
		limiter:   rate.NewLimiter(opts.WarmupRate, opts.WarmupBurst),
		liked:     domain.NewLikedSet(),
		opts:      opts,
	}
}

// SetOnChange registers the callback fired after every state change
func (c *Controller) SetOnChange(fn func()) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.onChange = fn
}

// SetPlaylist attaches the search results PlayNext and PlayPrevious walk through
func (c *Controller) SetPlaylist(playlist Playlist) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.playlist = playlist
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() domain.PlaybackSnapshot {
	c.mux.Lock()
	defer c.mux.Unlock()
	var current *domain.Track
	if c.current != nil {
		t := *c.current
		current = &t
	}
	return domain.PlaybackSnapshot{
		Current:         current,
		Status:          c.status,
		Radio:           c.radio,
		Recommendations: append([]domain.Recommendation(nil), c.recommendations...),
	}
}

// Recommendations returns the list fetched for the most recent successful start
func (c *Controller) Recommendations() []domain.Recommendation {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]domain.Recommendation(nil), c.recommendations...)
}

// Play makes track the active track. Playing the active track again toggles it.
func (c *Controller) Play(ctx context.Context, track domain.Track) error {
	return c.logResult(track, c.play(ctx, track, false))
}

// Toggle pauses or resumes the active track
func (c *Controller) Toggle(ctx context.Context) error {
	c.mux.Lock()
	current := c.current
	c.mux.Unlock()
	if current == nil {
		return nil
	}
	return c.Play(ctx, *current)
}

// Pause pauses the active track if it is playing or starting
func (c *Controller) Pause(ctx context.Context) error {
	return c.pauseActive()
}

// PlayNext advances to the next search result. Past the last result, or while in
// radio mode, it advances through the recommendations instead and stays in radio
// mode. Without recommendations it restarts from the first result.
func (c *Controller) PlayNext(ctx context.Context) error {
	next, radio, ok := c.nextTrack()
	if !ok {
		return nil
	}
	return c.logResult(next, c.play(ctx, next, radio))
}

// PlayPrevious steps back through the search results, wrapping from the first to
// the last. Recommendations are never consulted.
func (c *Controller) PlayPrevious(ctx context.Context) error {
	results := c.results()
	c.mux.Lock()
	current := c.current
	c.mux.Unlock()
	if current == nil || len(results) == 0 {
		return nil
	}

	i := domain.IndexOf(results, current.ID)
	prev := len(results) - 1
	if i > 0 {
		prev = i - 1
	}
	return c.logResult(results[prev], c.play(ctx, results[prev], false))
}

// OnTrackEnded handles the transport's end-of-media signal
func (c *Controller) OnTrackEnded(ctx context.Context) error {
	c.mux.Lock()
	if c.status == domain.StatusPlaying {
		c.status = domain.StatusIdle
	}
	c.mux.Unlock()
	return c.PlayNext(ctx)
}

// ToggleLike flips the liked state of a track and returns the new state
func (c *Controller) ToggleLike(trackID string) bool {
	liked := c.liked.Toggle(trackID)
	c.notify()
	return liked
}

// Liked reports whether a track is liked
func (c *Controller) Liked(trackID string) bool {
	return c.liked.Has(trackID)
}

// SelectForWarmup asks the backend to prepare track. It does nothing for the
// active track, for tracks whose stream location is already known, or when the
// probe budget is spent. Failures are logged.
func (c *Controller) SelectForWarmup(ctx context.Context, track domain.Track) {
	c.mux.Lock()
	active := c.current != nil && c.current.ID == track.ID
	c.mux.Unlock()
	if active {
		return
	}
	if _, ok := c.cache.StreamURL(track.ID); ok {
		return
	}
	if !c.limiter.Allow() {
		log.Debug().Str("track", track.ID).Msg("warmup skipped, rate limited")
		return
	}
	if err := c.lib.Warmup(ctx, track.ID); err != nil {
		log.Warn().Err(err).Str("track", track.ID).Msg("warmup failed")
	}
}

// Wait blocks until background tasks such as history writes have finished
func (c *Controller) Wait() {
	if r := c.tasks.WaitAndRecover(); r != nil {
		log.Error().Str("panic", r.String()).Msg("playback task panicked")
	}
}

// play decides between start, resume and pause and opens the chosen operation in
// the same critical section, so concurrent calls for one track see each other.
func (c *Controller) play(ctx context.Context, track domain.Track, radio bool) error {
	c.mux.Lock()
	same := c.current != nil && c.current.ID == track.ID
	switch {
	case !same || c.status == domain.StatusIdle:
		t := track
		c.current = &t
		c.radio = radio
		op := c.beginLocked(domain.StatusIdle)
		c.mux.Unlock()
		c.notify()
		return c.start(ctx, track, op)
	case c.status == domain.StatusPaused:
		op := c.beginLocked(domain.StatusPaused)
		c.mux.Unlock()
		c.notify()
		return c.resume(ctx, op)
	default:
		pending, seq, ok := c.beginPauseLocked()
		c.mux.Unlock()
		if !ok {
			return nil
		}
		c.notify()
		return c.finishPause(pending, seq)
	}
}

// start loads track and starts it
func (c *Controller) start(ctx context.Context, track domain.Track, op *operation) error {
	url, ok := c.cache.StreamURL(track.ID)
	if !ok {
		url = c.lib.GetStreamURL(track.ID)
		c.cache.StoreStream(track.ID, url)
	}

	c.transportMu.Lock()
	if c.superseded(op.seq) {
		c.transportMu.Unlock()
		return c.settle(op, ErrAborted)
	}
	if err := c.transport.Load(url); err != nil {
		c.transportMu.Unlock()
		return c.settle(op, fmt.Errorf("load %s: %w", track.ID, err))
	}
	c.recordHistory(ctx, track)
	started := c.transport.Play()
	c.transportMu.Unlock()

	if err := c.settle(op, await(ctx, started)); err != nil {
		return err
	}
	c.refreshRecommendations(ctx, track)
	return nil
}

// resume restarts the paused active track
func (c *Controller) resume(ctx context.Context, op *operation) error {
	c.transportMu.Lock()
	if c.superseded(op.seq) {
		c.transportMu.Unlock()
		return c.settle(op, ErrAborted)
	}
	started := c.transport.Play()
	c.transportMu.Unlock()

	return c.settle(op, await(ctx, started))
}

// pauseActive pauses the active track if it is starting or playing
func (c *Controller) pauseActive() error {
	c.mux.Lock()
	pending, seq, ok := c.beginPauseLocked()
	c.mux.Unlock()
	if !ok {
		return nil
	}
	c.notify()
	return c.finishPause(pending, seq)
}

// beginPauseLocked marks the slot Pausing. It returns the start the pause has to
// wait for, if any, and the start sequence the pause applies to. A pause does not
// supersede that start.
func (c *Controller) beginPauseLocked() (*operation, uint64, bool) {
	if c.status != domain.StatusStarting && c.status != domain.StatusPlaying {
		return nil, 0, false
	}
	c.status = domain.StatusPausing
	return c.inflight, c.seq, true
}

// finishPause pauses the transport once the pending start has settled, so the
// transport never receives a pause ahead of the start it would cancel.
func (c *Controller) finishPause(pending *operation, seq uint64) error {
	if pending != nil {
		<-pending.done
		if pending.err != nil {
			// settle already moved the slot back to the failed status
			return nil
		}
	}

	c.transportMu.Lock()
	if c.superseded(seq) {
		c.transportMu.Unlock()
		return ErrAborted
	}
	err := c.transport.Pause()
	c.transportMu.Unlock()

	c.mux.Lock()
	if c.seq == seq && c.status == domain.StatusPausing {
		if err != nil {
			c.status = domain.StatusPlaying
		} else {
			c.status = domain.StatusPaused
		}
	}
	c.mux.Unlock()
	c.notify()

	if err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	return nil
}

// beginLocked opens a new start operation, superseding any earlier one. failed
// is the status the slot falls back to if the start fails.
func (c *Controller) beginLocked(failed domain.PlaybackStatus) *operation {
	c.seq++
	op := &operation{seq: c.seq, done: make(chan struct{}), failed: failed}
	c.inflight = op
	c.status = domain.StatusStarting
	return op
}

func (c *Controller) superseded(seq uint64) bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.seq != seq
}

// settle records the outcome of op. Only a newer start or resume supersedes op;
// a failure of a superseded op is reported as ErrAborted. A successful start
// with a pause queued behind it leaves the slot Pausing.
func (c *Controller) settle(op *operation, err error) error {
	c.mux.Lock()
	latest := c.seq == op.seq
	if c.inflight == op {
		c.inflight = nil
	}
	if latest {
		switch {
		case err != nil:
			c.status = op.failed
		case c.status == domain.StatusStarting:
			c.status = domain.StatusPlaying
		}
	}
	op.err = err
	c.mux.Unlock()
	close(op.done)
	c.notify()

	if err != nil && !latest {
		return ErrAborted
	}
	return err
}

func await(ctx context.Context, started <-chan error) error {
	select {
	case err := <-started:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) recordHistory(ctx context.Context, track domain.Track) {
	if c.history == nil {
		return
	}
	entry := domain.HistoryEntry{SongID: track.ID, Title: track.Title, Timestamp: time.Now()}
	c.tasks.Go(func() {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.HistoryTimeout)
		defer cancel()
		if err := c.history.Record(hctx, entry); err != nil {
			log.Warn().Err(err).Str("track", entry.SongID).Msg("failed to record play history")
		}
	})
}

// refreshRecommendations replaces the recommendation list if track is still the
// active track when the reply arrives
func (c *Controller) refreshRecommendations(ctx context.Context, track domain.Track) {
	recs, err := c.lib.GetRecommendations(ctx, track.ID)
	if err != nil {
		log.Warn().Err(err).Str("track", track.ID).Msg("failed to fetch recommendations")
		return
	}

	c.mux.Lock()
	if c.current == nil || c.current.ID != track.ID {
		c.mux.Unlock()
		return
	}
	c.recommendations = recs
	c.mux.Unlock()
	c.notify()
}

// nextTrack picks the track PlayNext should play and whether it comes from the
// recommendations
func (c *Controller) nextTrack() (domain.Track, bool, bool) {
	results := c.results()

	c.mux.Lock()
	defer c.mux.Unlock()
	if c.current == nil {
		return domain.Track{}, false, false
	}
	current := *c.current

	if !c.radio {
		if i := domain.IndexOf(results, current.ID); i >= 0 && i < len(results)-1 {
			return results[i+1], false, true
		}
	}
	if len(c.recommendations) > 0 {
		i := indexOfRecommendation(c.recommendations, current.ID)
		next := c.recommendations[(i+1)%len(c.recommendations)]
		return next.Track(current.Thumbnail), true, true
	}
	if len(results) > 0 {
		return results[0], false, true
	}
	return domain.Track{}, false, false
}

func (c *Controller) results() []domain.Track {
	c.mux.Lock()
	playlist := c.playlist
	c.mux.Unlock()
	if playlist == nil {
		return nil
	}
	return playlist.Results()
}

func (c *Controller) logResult(track domain.Track, err error) error {
	switch {
	case err == nil:
	case errors.Is(err, ErrAborted):
		log.Debug().Str("track", track.ID).Msg("playback start superseded")
	default:
		log.Error().Err(err).Str("track", track.ID).Msg("playback failed")
	}
	return err
}

func (c *Controller) notify() {
	c.mux.Lock()
	fn := c.onChange
	c.mux.Unlock()
	if fn != nil {
		fn()
	}
}

func indexOfRecommendation(recs []domain.Recommendation, id string) int {
	for i, rec := range recs {
		if rec.ID == id {
			return i
		}
	}
	return -1
}
