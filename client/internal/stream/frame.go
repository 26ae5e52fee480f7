package stream

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

// FrameTypeMessage is the only inbound frame type the client acts on.
const FrameTypeMessage = "message"

// Frame is the JSON envelope of an inbound stream frame.
type Frame struct {
	Type    string          `json:"type"`
	RoomID  int64           `json:"room_id,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

// ParseFrame decodes data and returns the chat message it carries. ok is
// false for invalid JSON, unknown types, and message frames without an
// object payload. Payload fields of an unexpected JSON type are coerced
// where possible and otherwise left zero; they never drop the frame.
func ParseFrame(data []byte) (msg types.Message, ok bool) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return types.Message{}, false
	}
	if f.Type != FrameTypeMessage {
		return types.Message{}, false
	}
	raw := bytes.TrimSpace(f.Message)
	if len(raw) == 0 || raw[0] != '{' {
		return types.Message{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return types.Message{}, false
	}
	return types.Message{
		ID:        intField(fields["id"]),
		Username:  textField(fields["username"]),
		Content:   textField(fields["content"]),
		IsBot:     boolField(fields["is_bot"]),
		CreatedAt: timeField(fields["created_at"]),
	}, true
}

// textField returns a JSON string as is and any other scalar as its
// literal text. null and missing fields are empty.
func textField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// intField accepts a JSON number or a numeric string.
func intField(raw json.RawMessage) int64 {
	s := strings.TrimSpace(textField(raw))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return int64(f)
	}
	return 0
}

// boolField accepts a JSON bool, a bool string, or a number (non-zero is
// true).
func boolField(raw json.RawMessage) bool {
	s := strings.TrimSpace(textField(raw))
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return false
}

// timeField keeps a string timestamp verbatim. A JSON number is read as
// Unix seconds and rendered as RFC 3339 in UTC.
func timeField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || raw[0] == 'n' {
		return textField(raw)
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return ""
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC().Format(time.RFC3339Nano)
}
