package chattest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

// Server is a fake backend. The zero value is not usable; call New.
type Server struct {
	mux *http.ServeMux
	hub *hub

	// IssueToken returns the credential handed out on signup/login.
	// Defaults to "token-" + username.
	IssueToken func(username string) string

	mu       sync.Mutex
	users    map[string]string // username -> password
	tokens   map[string]string // token -> username
	messages map[int64][]types.Message
	rooms    map[int64]*room
	nextID   int64
	nextRoom int64
}

type room struct {
	types.Room
	owner   string
	members []string
}

// New creates a Server with no users, rooms or messages.
func New() *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		hub:      newHub(),
		users:    make(map[string]string),
		tokens:   make(map[string]string),
		messages: make(map[int64][]types.Message),
		rooms:    make(map[int64]*room),
	}
	s.IssueToken = func(username string) string { return "token-" + username }

	s.mux.HandleFunc("POST /api/signup", s.signup)
	s.mux.HandleFunc("POST /api/login", s.login)
	s.mux.HandleFunc("GET /api/messages", s.listMessages)
	s.mux.HandleFunc("POST /api/messages", s.postMessage)
	s.mux.HandleFunc("GET /api/rooms", s.listRooms)
	s.mux.HandleFunc("POST /api/rooms", s.createRoom)
	s.mux.HandleFunc("GET /api/rooms/{id}/members", s.roomMembers)
	s.mux.HandleFunc("POST /api/rooms/{id}/invite", s.invite)
	s.mux.HandleFunc("GET /api/rooms/{id}/messages", s.listMessages)
	s.mux.HandleFunc("POST /api/rooms/{id}/messages", s.postMessage)
	s.mux.HandleFunc("/ws", s.hub.serveWS)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// AddUser registers a user directly.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// Seed appends history to a room (0 is the global feed) without broadcasting.
func (s *Server) Seed(roomID int64, msgs ...types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.nextID++
		if m.ID == 0 {
			m.ID = s.nextID
		}
		s.messages[roomID] = append(s.messages[roomID], m)
	}
}

// Messages returns a copy of a room's history.
func (s *Server) Messages(roomID int64) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.messages[roomID]))
	copy(out, s.messages[roomID])
	return out
}

// Broadcast pushes v, JSON-encoded, to every stream client in roomID.
func (s *Server) Broadcast(roomID int64, v any) {
	data, _ := json.Marshal(v)
	s.hub.broadcast(roomID, data)
}

// BroadcastRaw pushes data as-is to every stream client in roomID.
func (s *Server) BroadcastRaw(roomID int64, data []byte) {
	s.hub.broadcast(roomID, data)
}

// DropAll closes every stream connection abnormally.
func (s *Server) DropAll() { s.hub.dropAll() }

// Clients returns the number of connected stream clients.
func (s *Server) Clients() int { return s.hub.count() }

// Dials returns how many stream connections were ever accepted.
func (s *Server) Dials() int {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.hub.dials
}

// Closes returns the close frames received from clients, oldest first.
func (s *Server) Closes() []CloseRecord {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	out := make([]CloseRecord, len(s.hub.closes))
	copy(out, s.hub.closes)
	return out
}

// --- route handlers ---------------------------------------------------------

type authPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var p authPayload
	if !decode(w, r, &p) {
		return
	}
	s.mu.Lock()
	if _, taken := s.users[p.Username]; taken {
		s.mu.Unlock()
		jsonErr(w, http.StatusBadRequest, "Username already taken")
		return
	}
	s.users[p.Username] = p.Password
	token := s.issue(p.Username)
	s.mu.Unlock()
	jsonResp(w, http.StatusOK, map[string]any{"ok": true, "token": token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var p authPayload
	if !decode(w, r, &p) {
		return
	}
	s.mu.Lock()
	pw, ok := s.users[p.Username]
	if !ok || pw != p.Password {
		s.mu.Unlock()
		jsonErr(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token := s.issue(p.Username)
	s.mu.Unlock()
	jsonResp(w, http.StatusOK, map[string]any{"ok": true, "token": token})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	msgs := s.Messages(roomID)
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	jsonResp(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	roomID, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var p struct {
		Content string `json:"content"`
	}
	if !decode(w, r, &p) {
		return
	}

	s.mu.Lock()
	rm, exists := s.rooms[roomID]
	if roomID != 0 && !exists {
		s.mu.Unlock()
		jsonErr(w, http.StatusNotFound, "Room not found")
		return
	}
	if exists && !contains(rm.members, user) {
		s.mu.Unlock()
		jsonErr(w, http.StatusForbidden, "Not a member of this room")
		return
	}
	s.nextID++
	m := types.Message{
		ID:        s.nextID,
		Username:  user,
		Content:   p.Content,
		CreatedAt: time.Now().UTC().Format("2006-01-02 15:04:05.000000"),
	}
	s.messages[roomID] = append(s.messages[roomID], m)
	s.mu.Unlock()

	s.Broadcast(roomID, map[string]any{"type": "message", "room_id": roomID, "message": m})
	jsonResp(w, http.StatusOK, map[string]any{"ok": true, "id": m.ID})
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	out := []types.Room{}
	for id := int64(1); id <= s.nextRoom; id++ {
		if rm, exists := s.rooms[id]; exists && contains(rm.members, user) {
			out = append(out, rm.Room)
		}
	}
	s.mu.Unlock()
	jsonResp(w, http.StatusOK, map[string]any{"rooms": out})
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var p struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &p) {
		return
	}
	s.mu.Lock()
	for _, rm := range s.rooms {
		if rm.Name == p.Name {
			s.mu.Unlock()
			jsonErr(w, http.StatusBadRequest, "Room name already taken")
			return
		}
	}
	s.nextRoom++
	rm := &room{
		Room:    types.Room{ID: s.nextRoom, Name: p.Name, CreatedAt: time.Now().UTC().Format(time.RFC3339)},
		owner:   user,
		members: []string{user},
	}
	s.rooms[rm.ID] = rm
	s.mu.Unlock()
	jsonResp(w, http.StatusOK, map[string]any{"ok": true, "room": types.Room{ID: rm.ID, Name: rm.Name}})
}

func (s *Server) roomMembers(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, exists := s.rooms[roomID]
	if !exists {
		jsonErr(w, http.StatusNotFound, "Room not found")
		return
	}
	out := make([]types.Member, 0, len(rm.members))
	for i, name := range rm.members {
		out = append(out, types.Member{ID: int64(i + 1), Username: name})
	}
	jsonResp(w, http.StatusOK, map[string]any{"members": out})
}

func (s *Server) invite(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	roomID, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var p struct {
		Username string `json:"username"`
	}
	if !decode(w, r, &p) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, exists := s.rooms[roomID]
	switch {
	case !exists:
		jsonErr(w, http.StatusNotFound, "Room not found")
	case rm.owner != user:
		jsonErr(w, http.StatusForbidden, "Only room owner can invite")
	case !s.known(p.Username):
		jsonErr(w, http.StatusNotFound, "User not found")
	case contains(rm.members, p.Username):
		jsonErr(w, http.StatusBadRequest, "User already in room")
	default:
		rm.members = append(rm.members, p.Username)
		jsonResp(w, http.StatusOK, map[string]any{"ok": true, "message": "User " + p.Username + " added to room"})
	}
}

// --- helpers ----------------------------------------------------------------

// issue records and returns a token for username. Callers hold s.mu.
func (s *Server) issue(username string) string {
	token := s.IssueToken(username)
	s.tokens[token] = username
	return token
}

// known reports whether username is registered. Callers hold s.mu.
func (s *Server) known(username string) bool {
	_, ok := s.users[username]
	return ok
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(authz, "Bearer ")
	if !found || token == "" {
		jsonErr(w, http.StatusUnauthorized, "Not authenticated")
		return "", false
	}
	s.mu.Lock()
	user, ok := s.tokens[token]
	s.mu.Unlock()
	if !ok {
		jsonErr(w, http.StatusUnauthorized, "Invalid token")
		return "", false
	}
	return user, true
}

// roomFromPath returns the {id} path value, or 0 on the global routes.
func (s *Server) roomFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		jsonErr(w, http.StatusUnprocessableEntity, "room_id must be integer")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonErr(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, detail string) {
	jsonResp(w, code, map[string]string{"detail": detail})
}
