package chattest

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 2 * time.Second
	pongWait     = 10 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	sendBufSize  = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// CloseRecord is a close frame received from a client.
type CloseRecord struct {
	Code   int
	Reason string
}

// hub tracks stream clients and fans frames out to them.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closes  []CloseRecord
	dials   int
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	room int64
	send chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

// serveWS upgrades the request and serves the client until it disconnects.
func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	var room int64
	if raw := r.URL.Query().Get("room_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "room_id must be integer")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout)) //nolint:errcheck
			conn.Close()
			return
		}
		room = id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{conn: conn, room: room, send: make(chan []byte, sendBufSize)}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	h.readPump(c)
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.dials++
	h.mu.Unlock()
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// broadcast queues data for every client in room. Room 0 clients receive
// only room 0 frames, matching the backend's per-room grouping.
func (h *hub) broadcast(room int64, data []byte) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.room == room {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			// Outgoing buffer is full, disconnect the client.
			h.unregister(c)
		}
	}
}

// dropAll closes every connection without a close handshake.
func (h *hub) dropAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) recordClose(code int, reason string) {
	h.mu.Lock()
	h.closes = append(h.closes, CloseRecord{Code: code, Reason: reason})
	h.mu.Unlock()
}

// writePump drains the client's send channel and sends periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads until the connection closes, recording client close frames.
func (h *hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				h.recordClose(ce.Code, ce.Text)
			}
			return
		}
	}
}
