// Package realtime maintains the bidirectional channel to the backend.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/yhkl-dev/SonicCLI/backend"
)

// ErrNotConnected is returned by Send while no connection is open
var ErrNotConnected = errors.New("realtime: channel not connected")

// Message types exchanged on the channel
const (
	TypeSearch        = "search"
	TypeAutocomplete  = "autocomplete"
	TypeAuth          = "auth"
	TypePing          = "ping"
	TypeSearchResults = "search_results"
	TypeSuggestions   = "suggestions"
	TypePong          = "pong"
)

// Request is an outbound frame
type Request struct {
	Type      string `json:"type"`
	Query     string `json:"query,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
}

// Message is an inbound frame, discriminated by Type
type Message struct {
	Type      string          `json:"type"`
	Query     string          `json:"query,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Results   []backend.Track `json:"results,omitempty"`
}

// Handler receives every decoded inbound message on the reader goroutine
type Handler func(Message)

// Options configures a Manager
type Options struct {
	URL            string
	UserID         string
	DeviceID       string
	ReconnectDelay time.Duration
	Heartbeat      time.Duration // zero disables the ping heartbeat
	Dialer         *websocket.Dialer
}

// Manager owns a single logical connection and reconnects it forever after a fixed
// delay. There is no backoff growth and no retry limit.
type Manager struct {
	opts    Options
	handler Handler

	conn     *websocket.Conn
	mux      sync.RWMutex
	writeMux sync.Mutex
}

// NewManager creates a manager; call Run to start connecting
func NewManager(opts Options, handler Handler) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if handler == nil {
		handler = func(Message) {}
	}
	return &Manager{opts: opts, handler: handler}
}

// Run connects and keeps the channel alive until ctx is cancelled
func (m *Manager) Run(ctx context.Context) {
	for {
		m.session(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.opts.ReconnectDelay):
		}
		log.Debug().Str("url", m.opts.URL).Msg("reconnecting realtime channel")
	}
}

// Connected reports whether a connection is currently open
func (m *Manager) Connected() bool {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return m.conn != nil
}

// Send writes a request to the open connection
func (m *Manager) Send(req Request) error {
	m.mux.RLock()
	conn := m.conn
	m.mux.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return m.write(conn, req)
}

func (m *Manager) write(conn *websocket.Conn, req Request) error {
	m.writeMux.Lock()
	defer m.writeMux.Unlock()
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("realtime: send %s: %w", req.Type, err)
	}
	return nil
}

// session runs one connection from dial to close
func (m *Manager) session(ctx context.Context) {
	conn, _, err := m.opts.Dialer.DialContext(ctx, m.opts.URL, nil)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Str("url", m.opts.URL).Msg("realtime dial failed")
		}
		return
	}

	done := make(chan struct{})
	defer func() {
		m.setConn(nil)
		close(done)
		_ = conn.Close()
	}()

	// Cancellation unblocks the reader below.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := m.write(conn, Request{Type: TypeAuth, UserID: m.opts.UserID, DeviceID: m.opts.DeviceID}); err != nil {
		log.Warn().Err(err).Msg("realtime auth failed")
		return
	}
	m.setConn(conn)
	log.Info().Str("url", m.opts.URL).Msg("realtime channel connected")

	if m.opts.Heartbeat > 0 {
		go m.heartbeat(conn, done)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Info().Err(err).Msg("realtime channel disconnected")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("realtime: malformed message")
			continue
		}
		m.handler(msg)
	}
}

func (m *Manager) heartbeat(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(m.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := m.write(conn, Request{Type: TypePing}); err != nil {
				log.Debug().Err(err).Msg("realtime heartbeat failed")
				return
			}
		}
	}
}

func (m *Manager) setConn(conn *websocket.Conn) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.conn = conn
}
