package stream

import (
	"testing"

	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

func TestParseFrame(t *testing.T) {
	cases := []struct {
		name string
		data string
		want types.Message
		ok   bool
	}{
		{
			name: "room message",
			data: `{"type":"message","room_id":4,"message":{"id":9,"username":"amy","content":"eggs?","is_bot":false,"created_at":"2025-03-01 10:00:00.123456"}}`,
			want: types.Message{ID: 9, Username: "amy", Content: "eggs?", CreatedAt: "2025-03-01 10:00:00.123456"},
			ok:   true,
		},
		{
			name: "bot message",
			data: `{"type":"message","message":{"id":10,"username":"LLM Bot","content":"buy milk","is_bot":true}}`,
			want: types.Message{ID: 10, Username: "LLM Bot", Content: "buy milk", IsBot: true},
			ok:   true,
		},
		{
			name: "extra fields ignored",
			data: `{"type":"message","seq":3,"message":{"username":"bob","content":"hi","avatar":"x"}}`,
			want: types.Message{Username: "bob", Content: "hi"},
			ok:   true,
		},
		{name: "ping", data: `{"type":"ping"}`},
		{name: "missing type", data: `{"message":{"username":"bob"}}`},
		{name: "type case differs", data: `{"type":"Message","message":{}}`},
		{name: "null payload", data: `{"type":"message","message":null}`},
		{name: "string payload", data: `{"type":"message","message":"hi"}`},
		{
			name: "string id",
			data: `{"type":"message","message":{"id":"7","username":"amy","content":"hi"}}`,
			want: types.Message{ID: 7, Username: "amy", Content: "hi"},
			ok:   true,
		},
		{
			name: "numeric created_at",
			data: `{"type":"message","message":{"id":8,"content":"ok","created_at":1700000000}}`,
			want: types.Message{ID: 8, Content: "ok", CreatedAt: "2023-11-14T22:13:20Z"},
			ok:   true,
		},
		{
			name: "unparseable fields left zero",
			data: `{"type":"message","message":{"id":"nine","username":null,"is_bot":"yes","content":42}}`,
			want: types.Message{Content: "42"},
			ok:   true,
		},
		{
			name: "bot flag as number",
			data: `{"type":"message","message":{"is_bot":1,"content":"tip"}}`,
			want: types.Message{IsBot: true, Content: "tip"},
			ok:   true,
		},
		{name: "array payload", data: `{"type":"message","message":[1,2]}`},
		{name: "truncated", data: `{"type":"message","message":{`},
		{name: "empty", data: ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseFrame([]byte(tc.data))
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("msg = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestURL(t *testing.T) {
	cases := []struct {
		server string
		room   int64
		want   string
	}{
		{"http://localhost:8000", 0, "ws://localhost:8000/ws"},
		{"https://chat.example.com", 0, "wss://chat.example.com/ws"},
		{"https://chat.example.com/", 7, "wss://chat.example.com/ws?room_id=7"},
		{"http://10.0.0.2:8000/grocery", 2, "ws://10.0.0.2:8000/grocery/ws?room_id=2"},
		{"http://localhost:8000?x=1#frag", 0, "ws://localhost:8000/ws"},
	}
	for _, tc := range cases {
		got, err := URL(tc.server, tc.room)
		if err != nil {
			t.Errorf("URL(%q, %d): %v", tc.server, tc.room, err)
			continue
		}
		if got != tc.want {
			t.Errorf("URL(%q, %d) = %q, want %q", tc.server, tc.room, got, tc.want)
		}
	}
}

func TestURL_Invalid(t *testing.T) {
	for _, s := range []string{"", "localhost", "http://%zz"} {
		if _, err := URL(s, 0); err == nil {
			t.Errorf("URL(%q): expected error", s)
		}
	}
}
