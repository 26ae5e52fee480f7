package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	closeTimeout     = time.Second
	readLimit        = 1 << 20
)

// WebSocketDialer dials the stream with gorilla/websocket.
type WebSocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebSocketDialer returns a dialer using tlsCfg for wss URLs. tlsCfg may
// be nil.
func NewWebSocketDialer(tlsCfg *tls.Config) *WebSocketDialer {
	return &WebSocketDialer{dialer: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		TLSClientConfig:  tlsCfg,
	}}
}

// Dial starts the handshake in the background and returns its handle.
func (d *WebSocketDialer) Dial(id, url string, header http.Header, emit func(Event)) Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &wsConn{id: id, emit: emit, cancel: cancel}
	go c.run(ctx, d.dialer, url, header)
	return c
}

// wsConn is one transport. run owns the read side; Close may be called from
// any goroutine.
type wsConn struct {
	id     string
	emit   func(Event)
	cancel context.CancelFunc

	mu      sync.Mutex
	ws      *websocket.Conn
	closing bool
	code    int
	reason  string
}

func (c *wsConn) run(ctx context.Context, dialer *websocket.Dialer, url string, header http.Header) {
	defer c.cancel()

	ws, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if code, reason, ok := c.closeRequested(); ok {
			c.send(Event{Kind: EventClose, Code: code, Reason: reason})
			return
		}
		c.send(Event{Kind: EventError, Err: fmt.Errorf("stream: dial: %w", err)})
		c.send(Event{Kind: EventClose, Code: websocket.CloseAbnormalClosure})
		return
	}
	defer ws.Close()

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		// Closed while the handshake was completing.
		ws.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(c.code, c.reason), time.Now().Add(closeTimeout))
		c.send(Event{Kind: EventClose, Code: c.code, Reason: c.reason})
		return
	}
	c.ws = ws
	c.mu.Unlock()

	ws.SetReadLimit(readLimit)
	c.send(Event{Kind: EventOpen})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.readFailed(err)
			return
		}
		c.send(Event{Kind: EventFrame, Data: data})
	}
}

// readFailed reports the end of the read loop as a close, preceded by an
// error when the closure was neither requested nor a clean close frame.
func (c *wsConn) readFailed(err error) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.send(Event{Kind: EventClose, Code: ce.Code, Reason: ce.Text})
		return
	}
	if code, reason, ok := c.closeRequested(); ok {
		c.send(Event{Kind: EventClose, Code: code, Reason: reason})
		return
	}
	c.send(Event{Kind: EventError, Err: fmt.Errorf("stream: read: %w", err)})
	c.send(Event{Kind: EventClose, Code: websocket.CloseAbnormalClosure})
}

func (c *wsConn) closeRequested() (int, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.reason, c.closing
}

func (c *wsConn) send(ev Event) {
	ev.ConnID = c.id
	c.emit(ev)
}

// Close sends a close frame, or cancels the handshake if it has not
// completed. The peer's reply ends the read loop; if none arrives within
// closeTimeout the read deadline does.
func (c *wsConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return nil
	}
	c.closing = true
	c.code, c.reason = code, reason

	if c.ws == nil {
		c.cancel()
		return nil
	}

	deadline := time.Now().Add(closeTimeout)
	err := c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.ws.SetReadDeadline(deadline) //nolint:errcheck
	if err != nil {
		return fmt.Errorf("stream: write close: %w", err)
	}
	return nil
}
