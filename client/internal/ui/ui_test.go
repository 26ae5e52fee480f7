package ui

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

func TestFormatLine(t *testing.T) {
	cases := []struct {
		name string
		msg  types.Message
		want string
	}{
		{
			name: "server timestamp",
			msg:  types.Message{Username: "amy", Content: "eggs?", CreatedAt: "2025-03-01 10:04:05.123456"},
			want: "[10:04:05] amy: eggs?",
		},
		{
			name: "rfc3339",
			msg:  types.Message{Username: "bob", Content: "hi", CreatedAt: "2025-03-01T22:00:01Z"},
			want: "[22:00:01] bob: hi",
		},
		{
			name: "bot",
			msg:  types.Message{Username: "LLM Bot", Content: "buy milk", IsBot: true, CreatedAt: "2025-03-01 10:00:00"},
			want: "[10:00:00] LLM Bot*: buy milk",
		},
		{
			name: "missing fields",
			msg:  types.Message{Content: "?"},
			want: "[--:--:--] unknown: ?",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatLine(tc.msg); got != tc.want {
				t.Errorf("FormatLine = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Clear()
	p.Deliver(types.Message{Username: "amy", Content: "one", CreatedAt: "2025-03-01 09:00:00"})
	p.Notice("connected to %s", "ws://x/ws")

	want := rule + "\n" +
		"[09:00:00] amy: one\n" +
		"* connected to ws://x/ws\n"
	if got := buf.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestChatView_BeforeRun(t *testing.T) {
	v := NewChatView("amy")
	v.Deliver(types.Message{Username: "bob", Content: "[red]not a tag", CreatedAt: "2025-03-01 09:00:00"})

	if got := v.Text(); !strings.Contains(got, "bob") || !strings.Contains(got, "not a tag") {
		t.Errorf("text = %q", got)
	}

	v.Clear()
	if got := strings.TrimSpace(v.Text()); got != "" {
		t.Errorf("text after Clear = %q", got)
	}
}

// TestChatView_RunSubmitAndQuit drives the event loop on a simulation
// screen. Run it with -race: pane updates from other goroutines must go
// through the loop.
func TestChatView_RunSubmitAndQuit(t *testing.T) {
	v := NewChatView("amy")
	screen := tcell.NewSimulationScreen("UTF-8")
	v.SetScreen(screen)

	var mu sync.Mutex
	var submitted []string
	quit := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- v.Run(func(s string) {
			mu.Lock()
			submitted = append(submitted, s)
			mu.Unlock()
		}, func() {
			close(quit)
			v.Stop()
		})
	}()

	// Wait for the event loop.
	deadline := time.Now().Add(2 * time.Second)
	for {
		v.mu.Lock()
		running := v.running
		v.mu.Unlock()
		if running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("view did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	v.Deliver(types.Message{Username: "bob", Content: "hello"})
	if got := v.Text(); !strings.Contains(got, "bob: hello") {
		t.Errorf("text = %q", got)
	}

	// Deliveries from several goroutines while the screen redraws.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				v.Deliver(types.Message{Username: "carl", Content: fmt.Sprintf("m%d-%d", i, j)})
				v.Notice("tick %d", j)
			}
		}(i)
	}
	wg.Wait()
	got := v.Text()
	for i := 0; i < 4; i++ {
		if want := fmt.Sprintf("carl: m%d-9", i); !strings.Contains(got, want) {
			t.Errorf("text missing %q", want)
		}
	}

	for _, r := range "  hi there " {
		press(screen, tcell.KeyRune, r, tcell.ModNone)
	}
	press(screen, tcell.KeyEnter, 0, tcell.ModNone)
	press(screen, tcell.KeyEnter, 0, tcell.ModNone) // empty line is ignored

	deadline = time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(submitted)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	press(screen, tcell.KeyCtrlC, 0, tcell.ModCtrl)
	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("onQuit not called")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(submitted) != 1 || submitted[0] != "hi there" {
		t.Errorf("submitted = %q, want [\"hi there\"]", submitted)
	}

	// Updates after Stop are dropped, not blocked on.
	v.Deliver(types.Message{Content: "late"})
}

// press injects one key. The simulation screen's event queue is small and
// drops events when full, so give the loop time to drain it.
func press(s tcell.SimulationScreen, key tcell.Key, r rune, mod tcell.ModMask) {
	s.InjectKey(key, r, mod)
	time.Sleep(5 * time.Millisecond)
}
