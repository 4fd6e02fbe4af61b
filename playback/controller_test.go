package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/yhkl-dev/SonicCLI/cache"
	"github.com/yhkl-dev/SonicCLI/domain"
)

var errInterrupted = errors.New("interrupted by new load")

type fakeTransport struct {
	mu        sync.Mutex
	calls     []string
	pending   chan error
	autoStart bool
	loadErr   error
	pauseErr  error
}

func (f *fakeTransport) Load(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "load "+url)
	if f.loadErr != nil {
		return f.loadErr
	}
	if f.pending != nil {
		f.pending <- errInterrupted
		f.pending = nil
	}
	return nil
}

func (f *fakeTransport) Play() <-chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "play")
	ch := make(chan error, 1)
	if f.autoStart {
		ch <- nil
	} else {
		f.pending = ch
	}
	return ch
}

func (f *fakeTransport) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "pause")
	return f.pauseErr
}

func (f *fakeTransport) hasPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending != nil
}

func (f *fakeTransport) resolve(err error) {
	f.mu.Lock()
	ch := f.pending
	f.pending = nil
	f.mu.Unlock()
	ch <- err
}

func (f *fakeTransport) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeLibrary struct {
	mu        sync.Mutex
	recs      map[string][]domain.Recommendation
	recsHook  func(trackID string)
	warmed    []string
	warmupErr error
}

func (f *fakeLibrary) Search(ctx context.Context, query string) (domain.SearchResult, error) {
	return domain.SearchResult{}, nil
}
func (f *fakeLibrary) Suggest(ctx context.Context, query string) ([]domain.Track, error) {
	return nil, nil
}
func (f *fakeLibrary) GetStreamURL(trackID string) string { return "http://backend/stream/" + trackID }
func (f *fakeLibrary) GetCollections(ctx context.Context) ([]domain.Collection, error) {
	return nil, nil
}

func (f *fakeLibrary) Warmup(ctx context.Context, trackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmed = append(f.warmed, trackID)
	return f.warmupErr
}

func (f *fakeLibrary) GetRecommendations(ctx context.Context, trackID string) ([]domain.Recommendation, error) {
	f.mu.Lock()
	hook := f.recsHook
	recs := f.recs[trackID]
	f.mu.Unlock()
	if hook != nil {
		hook(trackID)
	}
	return recs, nil
}

func (f *fakeLibrary) warmedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.warmed...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (f *fakeRecorder) Record(ctx context.Context, entry domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRecorder) Close() error { return nil }

type staticPlaylist []domain.Track

func (p staticPlaylist) Results() []domain.Track { return p }

var (
	t1 = domain.Track{ID: "t1", Title: "One More Time", Thumbnail: "http://img/t1", Duration: 320}
	t2 = domain.Track{ID: "t2", Title: "Aerodynamic", Duration: 212}
	t3 = domain.Track{ID: "t3", Title: "Digital Love", Thumbnail: "http://img/t3", Duration: 301}

	r1 = domain.Recommendation{ID: "r1", Name: "Around the World", Artist: "Daft Punk", AlbumImage: "http://img/r1"}
	r2 = domain.Recommendation{ID: "r2", Name: "Da Funk", Artist: "Daft Punk"}
)

type fixture struct {
	transport *fakeTransport
	lib       *fakeLibrary
	recorder  *fakeRecorder
	cache     *cache.ResultCache
	ctrl      *Controller
}

func newFixture(t *testing.T, autoStart bool, results ...domain.Track) *fixture {
	t.Helper()
	f := &fixture{
		transport: &fakeTransport{autoStart: autoStart},
		lib:       &fakeLibrary{recs: map[string][]domain.Recommendation{}},
		recorder:  &fakeRecorder{},
		cache:     cache.New(),
	}
	f.ctrl = NewController(f.lib, f.cache, f.transport, f.recorder, staticPlaylist(results), Options{
		WarmupRate:  rate.Inf,
		WarmupBurst: 1,
	})
	t.Cleanup(f.ctrl.Wait)
	return f
}

func (f *fixture) current(t *testing.T) domain.Track {
	t.Helper()
	snap := f.ctrl.Snapshot()
	require.NotNil(t, snap.Current)
	return *snap.Current
}

func (f *fixture) status() domain.PlaybackStatus {
	return f.ctrl.Snapshot().Status
}

func TestPlayNewTrack(t *testing.T) {
	f := newFixture(t, true, t1, t2)
	f.lib.recs["t1"] = []domain.Recommendation{r1, r2}

	_, cached := f.cache.StreamURL("t1")
	require.False(t, cached)

	require.NoError(t, f.ctrl.Play(context.Background(), t1))
	f.ctrl.Wait()

	assert.Equal(t, domain.StatusPlaying, f.status())
	assert.Equal(t, "t1", f.current(t).ID)
	assert.Equal(t, []string{"load http://backend/stream/t1", "play"}, f.transport.history())

	url, ok := f.cache.StreamURL("t1")
	require.True(t, ok)
	assert.Equal(t, "http://backend/stream/t1", url)

	require.Len(t, f.recorder.entries, 1)
	assert.Equal(t, "t1", f.recorder.entries[0].SongID)
	assert.Equal(t, "One More Time", f.recorder.entries[0].Title)

	assert.Equal(t, []domain.Recommendation{r1, r2}, f.ctrl.Recommendations())
}

func TestPlayUsesCachedStreamLocation(t *testing.T) {
	f := newFixture(t, true, t1)
	f.cache.StoreStream("t1", "https://cdn/t1.mp3")

	require.NoError(t, f.ctrl.Play(context.Background(), t1))

	assert.Equal(t, "load https://cdn/t1.mp3", f.transport.history()[0])
}

func TestPlayActiveTrackToggles(t *testing.T) {
	f := newFixture(t, true, t1)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Play(ctx, t1))
	require.NoError(t, f.ctrl.Play(ctx, t1))
	assert.Equal(t, domain.StatusPaused, f.status())

	require.NoError(t, f.ctrl.Play(ctx, t1))
	assert.Equal(t, domain.StatusPlaying, f.status())

	assert.Equal(t, []string{"load http://backend/stream/t1", "play", "pause", "play"}, f.transport.history())
}

func TestPlayTwiceWhileStartingEndsPaused(t *testing.T) {
	f := newFixture(t, false, t1)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- f.ctrl.Play(ctx, t1) }()
	require.Eventually(t, f.transport.hasPending, time.Second, time.Millisecond)
	assert.Equal(t, domain.StatusStarting, f.status())

	second := make(chan error, 1)
	go func() { second <- f.ctrl.Play(ctx, t1) }()
	require.Eventually(t, func() bool { return f.status() == domain.StatusPausing }, time.Second, time.Millisecond)

	// The pause must wait for the pending start.
	assert.Equal(t, []string{"load http://backend/stream/t1", "play"}, f.transport.history())

	f.transport.resolve(nil)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.Equal(t, domain.StatusPaused, f.status())
	assert.Equal(t, []string{"load http://backend/stream/t1", "play", "pause"}, f.transport.history())
}

func TestNewTrackSupersedesPendingStart(t *testing.T) {
	f := newFixture(t, false, t1, t2)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- f.ctrl.Play(ctx, t1) }()
	require.Eventually(t, f.transport.hasPending, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- f.ctrl.Play(ctx, t2) }()

	assert.ErrorIs(t, <-first, ErrAborted)
	require.Eventually(t, f.transport.hasPending, time.Second, time.Millisecond)
	f.transport.resolve(nil)
	require.NoError(t, <-second)

	assert.Equal(t, "t2", f.current(t).ID)
	assert.Equal(t, domain.StatusPlaying, f.status())
}

func TestConcurrentPlaySameTrackEndsPaused(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 200; i++ {
		f := newFixture(t, false, t1)

		release := make(chan struct{})
		errs := make(chan error, 2)
		for j := 0; j < 2; j++ {
			go func() {
				<-release
				errs <- f.ctrl.Play(ctx, t1)
			}()
		}
		close(release)

		require.Eventually(t, func() bool {
			return f.transport.hasPending() && f.status() == domain.StatusPausing
		}, time.Second, time.Millisecond)
		f.transport.resolve(nil)

		require.NoError(t, <-errs)
		require.NoError(t, <-errs)
		require.Equal(t, domain.StatusPaused, f.status())
		require.Equal(t, []string{"load http://backend/stream/t1", "play", "pause"}, f.transport.history())
	}
}

func TestStartFailureBehindQueuedPauseIsReported(t *testing.T) {
	f := newFixture(t, false, t1)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- f.ctrl.Play(ctx, t1) }()
	require.Eventually(t, f.transport.hasPending, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- f.ctrl.Play(ctx, t1) }()
	require.Eventually(t, func() bool { return f.status() == domain.StatusPausing }, time.Second, time.Millisecond)

	f.transport.resolve(errors.New("decoder: unsupported format"))

	err := <-first
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAborted)
	assert.Contains(t, err.Error(), "unsupported format")
	require.NoError(t, <-second)

	assert.Equal(t, domain.StatusIdle, f.status())
	assert.Equal(t, []string{"load http://backend/stream/t1", "play"}, f.transport.history())
}

func TestPlayLoadFailure(t *testing.T) {
	f := newFixture(t, true, t1)
	f.transport.loadErr = errors.New("no audio device")

	err := f.ctrl.Play(context.Background(), t1)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAborted)
	assert.Equal(t, domain.StatusIdle, f.status())
	assert.Empty(t, f.ctrl.Recommendations())

	// An idle active track is started again rather than toggled.
	f.transport.loadErr = nil
	require.NoError(t, f.ctrl.Play(context.Background(), t1))
	assert.Equal(t, domain.StatusPlaying, f.status())
}

func TestPlayNextFollowsResults(t *testing.T) {
	f := newFixture(t, true, t1, t2, t3)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Play(ctx, t1))
	require.NoError(t, f.ctrl.PlayNext(ctx))

	assert.Equal(t, "t2", f.current(t).ID)
	assert.False(t, f.ctrl.Snapshot().Radio)
}

func TestPlayNextEntersRadioMode(t *testing.T) {
	f := newFixture(t, true, t1, t2, t3)
	ctx := context.Background()
	for _, id := range []string{"t3", "r1", "r2"} {
		f.lib.recs[id] = []domain.Recommendation{r1, r2}
	}

	require.NoError(t, f.ctrl.Play(ctx, t3))

	require.NoError(t, f.ctrl.PlayNext(ctx))
	assert.Equal(t, "r1", f.current(t).ID)
	assert.Equal(t, "Around the World", f.current(t).Title)
	assert.True(t, f.ctrl.Snapshot().Radio)

	require.NoError(t, f.ctrl.PlayNext(ctx))
	assert.Equal(t, "r2", f.current(t).ID)
	assert.Equal(t, "http://img/r1", f.current(t).Thumbnail, "falls back to the current thumbnail")

	require.NoError(t, f.ctrl.PlayNext(ctx))
	assert.Equal(t, "r1", f.current(t).ID, "wraps to the first recommendation")
}

func TestRadioModeIgnoresResults(t *testing.T) {
	rec := domain.Recommendation{ID: "t1", Name: "One More Time"}
	f := newFixture(t, true, t1, t2, t3)
	ctx := context.Background()
	f.lib.recs["t3"] = []domain.Recommendation{rec, r1}
	f.lib.recs["t1"] = []domain.Recommendation{rec, r1}

	require.NoError(t, f.ctrl.Play(ctx, t3))
	require.NoError(t, f.ctrl.PlayNext(ctx))
	require.Equal(t, "t1", f.current(t).ID)

	// t1 is also the first search result, but radio mode stays in the recommendations.
	require.NoError(t, f.ctrl.PlayNext(ctx))
	assert.Equal(t, "r1", f.current(t).ID)
}

func TestPlayNextRestartsResultsWithoutRecommendations(t *testing.T) {
	f := newFixture(t, true, t1, t2, t3)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Play(ctx, t3))
	require.NoError(t, f.ctrl.PlayNext(ctx))

	assert.Equal(t, "t1", f.current(t).ID)
}

func TestPlayNextWithoutActiveTrack(t *testing.T) {
	f := newFixture(t, true, t1, t2)

	require.NoError(t, f.ctrl.PlayNext(context.Background()))
	require.NoError(t, f.ctrl.PlayPrevious(context.Background()))

	assert.Nil(t, f.ctrl.Snapshot().Current)
	assert.Empty(t, f.transport.history())
}

func TestPlayPreviousWraps(t *testing.T) {
	f := newFixture(t, true, t1, t2, t3)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Play(ctx, t1))
	require.NoError(t, f.ctrl.PlayPrevious(ctx))
	assert.Equal(t, "t3", f.current(t).ID)

	require.NoError(t, f.ctrl.PlayPrevious(ctx))
	assert.Equal(t, "t2", f.current(t).ID)
}

func TestPlayPreviousLeavesRadioMode(t *testing.T) {
	f := newFixture(t, true, t1, t2, t3)
	ctx := context.Background()
	f.lib.recs["t3"] = []domain.Recommendation{r1}

	require.NoError(t, f.ctrl.Play(ctx, t3))
	require.NoError(t, f.ctrl.PlayNext(ctx))
	require.True(t, f.ctrl.Snapshot().Radio)

	require.NoError(t, f.ctrl.PlayPrevious(ctx))
	assert.Equal(t, "t3", f.current(t).ID, "a track outside the results steps back to the last result")
	assert.False(t, f.ctrl.Snapshot().Radio)
}

func TestOnTrackEndedPlaysNext(t *testing.T) {
	f := newFixture(t, true, t1, t2)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Play(ctx, t1))
	require.NoError(t, f.ctrl.OnTrackEnded(ctx))

	assert.Equal(t, "t2", f.current(t).ID)
	assert.Equal(t, domain.StatusPlaying, f.status())
}

func TestOnTrackEndedRestartsSingleResult(t *testing.T) {
	f := newFixture(t, true, t1)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Play(ctx, t1))
	require.NoError(t, f.ctrl.OnTrackEnded(ctx))

	assert.Equal(t, domain.StatusPlaying, f.status())
	assert.Equal(t, []string{
		"load http://backend/stream/t1", "play",
		"load http://backend/stream/t1", "play",
	}, f.transport.history())
}

func TestPause(t *testing.T) {
	f := newFixture(t, true, t1)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Pause(ctx))
	assert.Empty(t, f.transport.history())

	require.NoError(t, f.ctrl.Play(ctx, t1))
	require.NoError(t, f.ctrl.Pause(ctx))
	require.NoError(t, f.ctrl.Pause(ctx))

	assert.Equal(t, domain.StatusPaused, f.status())
	assert.Equal(t, []string{"load http://backend/stream/t1", "play", "pause"}, f.transport.history())

	require.NoError(t, f.ctrl.Toggle(ctx))
	assert.Equal(t, domain.StatusPlaying, f.status())
}

func TestPauseFailureKeepsPlaying(t *testing.T) {
	f := newFixture(t, true, t1)
	ctx := context.Background()
	f.transport.pauseErr = errors.New("mpv gone")

	require.NoError(t, f.ctrl.Play(ctx, t1))
	assert.Error(t, f.ctrl.Pause(ctx))
	assert.Equal(t, domain.StatusPlaying, f.status())
}

func TestStaleRecommendationsDiscarded(t *testing.T) {
	f := newFixture(t, true, t1, t2)
	ctx := context.Background()
	f.lib.recs["t1"] = []domain.Recommendation{r1}
	f.lib.recs["t2"] = []domain.Recommendation{r2}

	var once sync.Once
	f.lib.recsHook = func(trackID string) {
		if trackID == "t1" {
			once.Do(func() { require.NoError(t, f.ctrl.Play(ctx, t2)) })
		}
	}

	require.NoError(t, f.ctrl.Play(ctx, t1))

	assert.Equal(t, "t2", f.current(t).ID)
	assert.Equal(t, []domain.Recommendation{r2}, f.ctrl.Recommendations())
}

func TestSelectForWarmup(t *testing.T) {
	f := newFixture(t, true, t1, t2, t3)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Play(ctx, t1))
	f.cache.StoreStream("t3", "https://cdn/t3.mp3")

	f.ctrl.SelectForWarmup(ctx, t1)
	f.ctrl.SelectForWarmup(ctx, t2)
	f.ctrl.SelectForWarmup(ctx, t3)

	assert.Equal(t, []string{"t2"}, f.lib.warmedIDs())
	_, ok := f.cache.StreamURL("t2")
	assert.False(t, ok, "warming does not resolve a stream location")
}

func TestSelectForWarmupRateLimited(t *testing.T) {
	f := newFixture(t, true)
	f.ctrl.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	f.lib.warmupErr = errors.New("backend down")

	f.ctrl.SelectForWarmup(context.Background(), t1)
	f.ctrl.SelectForWarmup(context.Background(), t2)

	assert.Equal(t, []string{"t1"}, f.lib.warmedIDs())
}

func TestToggleLike(t *testing.T) {
	f := newFixture(t, true)
	changes := 0
	f.ctrl.SetOnChange(func() { changes++ })

	assert.True(t, f.ctrl.ToggleLike("t1"))
	assert.True(t, f.ctrl.Liked("t1"))
	assert.False(t, f.ctrl.ToggleLike("t1"))
	assert.False(t, f.ctrl.Liked("t1"))
	assert.Equal(t, 2, changes)
}
