package types

import (
	"strings"
	"time"
)

// BotName is the display name the backend uses for assistant replies.
const BotName = "LLM Bot"

// Message is one chat message as returned by history and stream frames.
type Message struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Content  string `json:"content"`
	IsBot    bool   `json:"is_bot"`

	// CreatedAt is kept exactly as the server sent it. The backend emits
	// Python's str(datetime) ("2006-01-02 15:04:05.999999"), not RFC 3339.
	CreatedAt string `json:"created_at"`
}

// createdAtLayouts are tried in order by Time.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// Time parses CreatedAt. The zero time is returned when it is empty or
// in none of the known layouts.
func (m Message) Time() time.Time {
	s := strings.TrimSpace(m.CreatedAt)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Author returns the name to display for the message.
func (m Message) Author() string {
	switch {
	case m.IsBot:
		return BotName
	case m.Username == "":
		return "unknown"
	default:
		return m.Username
	}
}

// Room is a chat room the user belongs to.
type Room struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Member is one user in a room.
type Member struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
