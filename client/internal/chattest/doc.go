// Package chattest is an in-process stand-in for the GroceryShopperAI backend,
// used by the client's tests.
//
// Server serves the same routes the real backend does:
//
//	POST /api/signup, POST /api/login           -> {"ok": true, "token": "..."}
//	GET/POST /api/messages                      global feed
//	GET/POST /api/rooms, /api/rooms/{id}/...    rooms, members, invite, messages
//	GET /ws[?room_id=N]                         WebSocket stream
//
// Errors use the backend's {"detail": "..."} shape. Every posted message is
// broadcast to connected stream clients as
//
//	{"type": "message", "room_id": N, "message": {...}}
//
// Tests can also push arbitrary frames (Broadcast), drop every connection
// without a close handshake (DropAll) and inspect the close frames clients
// sent (Closes).
package chattest
