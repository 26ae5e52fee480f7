package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

const (
	// DefaultReconnectDelay is the flat wait before a retry.
	DefaultReconnectDelay = 2 * time.Second

	eventBufSize = 64
)

// Sink receives recognised chat messages in arrival order.
type Sink interface {
	Deliver(msg types.Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(types.Message)

// Deliver calls f(msg).
func (f SinkFunc) Deliver(msg types.Message) { f(msg) }

// Options configures a Manager.
type Options struct {
	// URL is the stream address, see URL.
	URL string

	// ReconnectDelay defaults to DefaultReconnectDelay when zero.
	ReconnectDelay time.Duration

	// Header, when set, is called on every dial for the handshake headers.
	Header func() http.Header
}

// timer is the part of *time.Timer the manager uses.
type timer interface {
	Stop() bool
}

// handle is the manager's single connection handle.
type handle struct {
	id   string
	conn Conn
}

// Manager owns the client's single stream connection and its reconnect
// policy. Create one with New and run its event loop with Run.
type Manager struct {
	opts   Options
	dialer Dialer
	sink   Sink

	events chan Event
	done   chan struct{}

	mu        sync.Mutex
	status    Status
	reconnect bool
	cur       *handle
	retry     timer
	retrySeq  uint64
	stats     Stats

	// injectable for tests
	newID     func() string
	afterFunc func(time.Duration, func()) timer
}

// New returns an idle Manager. Nothing is dialled until Connect or Start.
func New(opts Options, dialer Dialer, sink Sink) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	return &Manager{
		opts:   opts,
		dialer: dialer,
		sink:   sink,
		events: make(chan Event, eventBufSize),
		done:   make(chan struct{}),
		newID:  func() string { return ulid.Make().String() },
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
}

// Connect ensures a connection exists. It is a no-op while a handle is
// connecting or open.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectLocked()
}

// Start enables automatic reconnection and connects. Options.Header is
// read once per dial, so Start on an active connection keeps the
// credential that connection was opened with; Disconnect first to switch.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnect = true
	m.connectLocked()
}

// Disconnect disables reconnection, cancels any pending retry and asks the
// current handle to close normally with reason. The handle is detached
// immediately; its later events are ignored.
func (m *Manager) Disconnect(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reconnect = false
	m.cancelRetryLocked()

	h := m.cur
	if h == nil {
		return
	}
	m.cur = nil
	m.status = StatusClosed

	slog.Info("stream: disconnecting", "conn_id", h.id, "reason", reason)
	if err := h.conn.Close(CloseNormal, reason); err != nil {
		slog.Debug("stream: close request failed", "conn_id", h.id, "err", err)
	}
}

// Status returns the current lifecycle status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Reconnecting reports whether automatic reconnection is enabled.
func (m *Manager) Reconnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnect
}

// Run consumes transport events until ctx is cancelled, then disconnects
// with ReasonUnload. Run must be called at most once.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.Disconnect(ReasonUnload)
			return
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

// emit is passed to the Dialer. Events sent after Run has returned are
// discarded.
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// handle reacts to one event and delivers its message, if any, outside the
// lock so a Sink may query the manager.
func (m *Manager) handle(ev Event) {
	if msg, ok := m.dispatch(ev); ok {
		m.sink.Deliver(msg)
	}
}

func (m *Manager) dispatch(ev Event) (types.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cur == nil || ev.ConnID != m.cur.id {
		m.stats.Stale++
		slog.Debug("stream: ignoring event from stale connection",
			"conn_id", ev.ConnID, "event", ev.Kind.String())
		return types.Message{}, false
	}

	switch ev.Kind {
	case EventOpen:
		m.status = StatusOpen
		m.stats.Opens++
		slog.Info("stream: connected", "conn_id", ev.ConnID, "url", m.opts.URL)

	case EventFrame:
		m.stats.Frames++
		msg, ok := ParseFrame(ev.Data)
		if !ok {
			m.stats.Dropped++
			slog.Debug("stream: dropping unrecognised frame",
				"conn_id", ev.ConnID, "bytes", len(ev.Data))
			return types.Message{}, false
		}
		m.stats.Delivered++
		return msg, true

	case EventError:
		m.stats.Errors++
		slog.Warn("stream: connection error", "conn_id", ev.ConnID, "err", ev.Err)
		m.closedLocked()

	case EventClose:
		m.stats.Closes++
		slog.Info("stream: connection closed",
			"conn_id", ev.ConnID, "code", ev.Code, "reason", ev.Reason)
		m.closedLocked()
	}
	return types.Message{}, false
}

func (m *Manager) connectLocked() {
	if m.status.active() {
		return
	}
	m.cancelRetryLocked()

	var header http.Header
	if m.opts.Header != nil {
		header = m.opts.Header()
	}

	id := m.newID()
	m.status = StatusConnecting
	m.stats.Dials++
	slog.Debug("stream: dialing", "conn_id", id, "url", m.opts.URL)
	m.cur = &handle{id: id, conn: m.dialer.Dial(id, m.opts.URL, header, m.emit)}
}

// closedLocked detaches the current handle and schedules one retry when
// reconnection is enabled.
func (m *Manager) closedLocked() {
	m.cur = nil
	m.status = StatusClosed
	if !m.reconnect {
		return
	}

	m.cancelRetryLocked()
	seq := m.retrySeq
	m.stats.Retries++
	slog.Warn("stream: connection lost, will reconnect", "retry_in", m.opts.ReconnectDelay)
	m.retry = m.afterFunc(m.opts.ReconnectDelay, func() { m.fire(seq) })
}

// fire runs on the timer goroutine.
func (m *Manager) fire(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.retrySeq {
		return
	}
	m.retry = nil
	if !m.reconnect {
		return
	}
	m.connectLocked()
}

func (m *Manager) cancelRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.retrySeq++
}
