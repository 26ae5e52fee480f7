package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pohaoc29/GroceryShopperAI/client/internal/chattest"
	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

func TestWebSocketDialer_Lifecycle(t *testing.T) {
	srv := chattest.New()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	url, err := URL(ts.URL, 3)
	if err != nil {
		t.Fatal(err)
	}

	r := &recorder{}
	m := New(Options{URL: url, ReconnectDelay: 50 * time.Millisecond}, NewWebSocketDialer(nil), r)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	m.Start()
	waitFor(t, "stream open", func() bool { return m.Status() == StatusOpen && srv.Clients() == 1 })

	// Room 3 frames arrive; other rooms and non-message frames do not.
	srv.Broadcast(1, map[string]any{"type": "message", "message": map[string]any{"content": "wrong room"}})
	srv.BroadcastRaw(3, []byte(`{"type":"ping"}`))
	srv.Broadcast(3, map[string]any{
		"type":    "message",
		"room_id": 3,
		"message": map[string]any{"id": 1, "username": "bob", "content": "hi"},
	})
	waitFor(t, "message delivered", func() bool { return len(r.messages()) == 1 })
	if got := r.messages()[0]; got != (types.Message{ID: 1, Username: "bob", Content: "hi"}) {
		t.Errorf("delivered %+v", got)
	}

	// An abrupt drop is retried after the delay, with one socket at a time.
	srv.DropAll()
	waitFor(t, "reconnected", func() bool {
		if n := srv.Clients(); n > 1 {
			t.Fatalf("server saw %d concurrent clients", n)
		}
		return srv.Dials() == 2 && m.Status() == StatusOpen
	})

	m.Disconnect(ReasonLogout)
	waitFor(t, "logout close frame", func() bool {
		for _, c := range srv.Closes() {
			if c == (chattest.CloseRecord{Code: CloseNormal, Reason: ReasonLogout}) {
				return true
			}
		}
		return false
	})

	time.Sleep(200 * time.Millisecond)
	if n := srv.Dials(); n != 2 {
		t.Errorf("dials after logout = %d, want 2", n)
	}
	if got := m.Status(); got != StatusClosed {
		t.Errorf("status = %s, want closed", got)
	}
}

func TestWebSocketDialer_RefusedDialRetries(t *testing.T) {
	ts := httptest.NewServer(chattest.New())
	url, _ := URL(ts.URL, 0)
	ts.Close()

	d := NewWebSocketDialer(nil)
	events := make(chan Event, 4)
	d.Dial("conn-1", url, nil, func(ev Event) { events <- ev })

	var kinds []EventKind
	for len(kinds) < 2 {
		select {
		case ev := <-events:
			if ev.ConnID != "conn-1" {
				t.Errorf("ConnID = %q", ev.ConnID)
			}
			kinds = append(kinds, ev.Kind)
		case <-time.After(3 * time.Second):
			t.Fatalf("events so far: %v", kinds)
		}
	}
	if kinds[0] != EventError || kinds[1] != EventClose {
		t.Errorf("events = %v, want [error close]", kinds)
	}
}

func TestWebSocketDialer_CloseDuringHandshake(t *testing.T) {
	// A listener that never completes the upgrade.
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-block }))
	t.Cleanup(func() {
		close(block)
		ts.Close()
	})
	url, _ := URL(ts.URL, 0)

	events := make(chan Event, 4)
	conn := NewWebSocketDialer(nil).Dial("conn-1", url, nil, func(ev Event) { events <- ev })
	if err := conn.Close(CloseNormal, ReasonLogout); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != EventClose || ev.Code != CloseNormal || ev.Reason != ReasonLogout {
			t.Errorf("event = %+v, want close 1000 logout", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no event after cancelling the handshake")
	}
}
