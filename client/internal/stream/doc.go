// Package stream owns the client's live WebSocket connection.
//
// Manager keeps at most one connection handle. Connect is idempotent: while
// a handle is connecting or open it does nothing, so overlapping calls from
// the UI and the retry timer never create a second socket. Start sets the
// reconnect flag and connects; Disconnect clears the flag, cancels any
// pending retry and asks the current handle for a normal closure (1000)
// with a reason ("logout", "unload").
//
// Transports report lifecycle as typed Events (open, frame, error, close)
// on a channel. Manager.Run consumes them one at a time; every reaction,
// including public calls and timer fires, runs under the manager's lock, so
// no reaction observes another half-done. Events are tagged with the handle's
// ULID and events from a handle that is no longer current are ignored.
//
// When a handle closes or fails and the reconnect flag is still set, one
// retry is scheduled after a flat delay (2s by default). There is no cap:
// a logged-in client keeps trying until it is connected or logged out.
//
// Frames are JSON {"type": ..., "message": {...}}. Only type "message" is
// delivered to the Sink; anything else is dropped without affecting the
// connection.
//
// WebSocketDialer is the gorilla/websocket transport. WriteMetrics renders
// the manager's counters in Prometheus text format.
package stream
