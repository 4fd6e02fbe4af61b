// Package query turns search-box input into suggestion and search requests and
// reconciles the replies, which may arrive in any order.
package query

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"go.uber.org/atomic"

	"github.com/yhkl-dev/SonicCLI/cache"
	"github.com/yhkl-dev/SonicCLI/domain"
	"github.com/yhkl-dev/SonicCLI/library"
	"github.com/yhkl-dev/SonicCLI/realtime"
)

// Channel is the real-time connection used when it is open
type Channel interface {
	Connected() bool
	Send(req realtime.Request) error
}

// Warmer prepares a track on the backend before it is played
type Warmer interface {
	SelectForWarmup(ctx context.Context, track domain.Track)
}

// Options tunes the coordinator
type Options struct {
	Debounce       time.Duration
	MinQueryLength int
}

// DefaultOptions returns the standard 300ms debounce and 2 character minimum
func DefaultOptions() Options {
	return Options{
		Debounce:       300 * time.Millisecond,
		MinQueryLength: 2,
	}
}

// suggestionRequest identifies one outbound suggestion request. Only the latest
// one is live; replies for anything else are dropped.
type suggestionRequest struct {
	id         string
	generation uint64
	query      string
}

// Coordinator owns the current query text, the suggestion list and the active
// result set
type Coordinator struct {
	ctx     context.Context
	lib     library.Library
	channel Channel
	cache   *cache.ResultCache
	warmer  Warmer
	opts    Options

	onChange func()

	query       string
	results     []domain.Track
	suggestions []domain.Track
	timer       *time.Timer
	pending     *suggestionRequest
	lastSearch  string
	mux         sync.Mutex

	generation atomic.Uint64
	loading    atomic.Bool
	tasks      conc.WaitGroup
}

// NewCoordinator creates a coordinator. channel and warmer may be nil.
func NewCoordinator(ctx context.Context, lib library.Library, channel Channel, resultCache *cache.ResultCache, warmer Warmer, opts Options) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultOptions().MinQueryLength
	}
	return &Coordinator{
		ctx:     ctx,
		lib:     lib,
		channel: channel,
		cache:   resultCache,
		warmer:  warmer,
		opts:    opts,
	}
}

// SetOnChange registers the callback fired after every state change
func (c *Coordinator) SetOnChange(fn func()) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.onChange = fn
}

// SetChannel attaches the real-time channel once it exists
func (c *Coordinator) SetChannel(channel Channel) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.channel = channel
}

// SetWarmer attaches the warm-up target
func (c *Coordinator) SetWarmer(warmer Warmer) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.warmer = warmer
}

// Query returns the current query text
func (c *Coordinator) Query() string {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.query
}

// Results returns the active result set
func (c *Coordinator) Results() []domain.Track {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]domain.Track(nil), c.results...)
}

// Suggestions returns the live suggestion list
func (c *Coordinator) Suggestions() []domain.Track {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]domain.Track(nil), c.suggestions...)
}

// Loading reports whether an uncached search is in flight
func (c *Coordinator) Loading() bool {
	return c.loading.Load()
}

// SetQuery records new query text. Short text clears suggestions immediately;
// anything else schedules a suggestion request after the debounce interval,
// replacing any request still waiting.
func (c *Coordinator) SetQuery(text string) {
	c.mux.Lock()
	c.query = text
	gen := c.generation.Inc()
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if utf8.RuneCountInString(text) < c.opts.MinQueryLength {
		c.suggestions = nil
		c.mux.Unlock()
		c.notify()
		return
	}

	c.timer = time.AfterFunc(c.opts.Debounce, func() {
		c.requestSuggestions(gen, text)
	})
	c.mux.Unlock()
}

// Close cancels the pending debounce timer and waits for warm-up requests
func (c *Coordinator) Close() {
	c.mux.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = nil
	c.mux.Unlock()

	if r := c.tasks.WaitAndRecover(); r != nil {
		log.Error().Str("panic", r.String()).Msg("warmup task panicked")
	}
}

func (c *Coordinator) requestSuggestions(gen uint64, text string) {
	c.mux.Lock()
	if c.generation.Load() != gen {
		c.mux.Unlock()
		return
	}
	req := &suggestionRequest{id: uuid.NewString(), generation: gen, query: text}
	c.pending = req
	c.timer = nil
	channel := c.channel
	c.mux.Unlock()

	if channel != nil && channel.Connected() {
		err := channel.Send(realtime.Request{Type: realtime.TypeAutocomplete, Query: text, RequestID: req.id})
		if err == nil {
			return
		}
		log.Debug().Err(err).Msg("autocomplete over channel failed, using direct request")
	}

	tracks, err := c.lib.Suggest(c.ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("query", text).Msg("suggestions failed")
		return
	}
	c.applySuggestions(req.id, text, tracks)
}

// applySuggestions installs a suggestion reply if it belongs to the live request.
// Replies carrying a request id are matched on it; otherwise on the query text.
func (c *Coordinator) applySuggestions(requestID, query string, tracks []domain.Track) bool {
	c.mux.Lock()
	live := c.pending
	accept := live != nil
	if accept {
		switch {
		case requestID != "":
			accept = requestID == live.id
		case query != "":
			accept = strings.EqualFold(query, live.query)
		}
	}
	if !accept {
		c.mux.Unlock()
		log.Debug().Str("query", query).Str("request_id", requestID).Msg("dropping stale suggestions")
		return false
	}
	c.suggestions = tracks
	c.pending = nil
	c.mux.Unlock()

	c.notify()
	return true
}

// Search runs an explicit search for the current query, bypassing the debounce.
// Cached results are served without a network call or loading state. With an open
// channel the reply arrives later through HandleMessage; otherwise the backend is
// queried directly and the call returns once results are applied.
func (c *Coordinator) Search(ctx context.Context) {
	c.mux.Lock()
	query := c.query
	channel := c.channel
	c.mux.Unlock()

	if strings.TrimSpace(query) == "" {
		return
	}

	if cached, ok := c.cache.Search(query); ok {
		log.Debug().Str("query", query).Msg("search served from cache")
		c.setResults(cached, false)
		return
	}

	c.loading.Store(true)
	c.notify()

	if channel != nil && channel.Connected() {
		c.mux.Lock()
		c.lastSearch = query
		c.mux.Unlock()
		err := channel.Send(realtime.Request{Type: realtime.TypeSearch, Query: query})
		if err == nil {
			return
		}
		log.Debug().Err(err).Msg("search over channel failed, using direct request")
	}

	defer func() {
		c.loading.Store(false)
		c.notify()
	}()

	result, err := c.lib.Search(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("search failed")
		return
	}
	c.cache.StoreSearch(query, result.Tracks, result.Streams)
	c.setResults(result.Tracks, true)
}

// HandleMessage dispatches an inbound channel message
func (c *Coordinator) HandleMessage(msg realtime.Message) {
	switch msg.Type {
	case realtime.TypeSearchResults:
		c.mux.Lock()
		query := msg.Query
		if query == "" {
			query = c.lastSearch
		}
		c.mux.Unlock()

		result := library.ConvertSearchResult(msg.Results)
		if query != "" {
			c.cache.StoreSearch(query, result.Tracks, result.Streams)
		}
		c.loading.Store(false)
		c.setResults(result.Tracks, true)
	case realtime.TypeSuggestions:
		c.applySuggestions(msg.RequestID, msg.Query, library.ConvertToDomainTracks(msg.Results))
	case realtime.TypePong:
	default:
		log.Debug().Str("type", msg.Type).Msg("ignoring realtime message")
	}
}

// setResults replaces the active result set unconditionally and warms its first
// track. A slower, older search can overwrite a newer one here.
func (c *Coordinator) setResults(tracks []domain.Track, clearSuggestions bool) {
	c.mux.Lock()
	c.results = append([]domain.Track(nil), tracks...)
	if clearSuggestions {
		c.suggestions = nil
	}
	warmer := c.warmer
	c.mux.Unlock()

	c.notify()

	if warmer != nil && len(tracks) > 0 {
		first := tracks[0]
		c.tasks.Go(func() { warmer.SelectForWarmup(c.ctx, first) })
	}
}

func (c *Coordinator) notify() {
	c.mux.Lock()
	fn := c.onChange
	c.mux.Unlock()
	if fn != nil {
		fn()
	}
}
