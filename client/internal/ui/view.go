package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

const maxInputLen = 2000

// ChatView is a full-screen chat: a scrolling message pane, a status line
// and an input field.
//
// Clear, Deliver, Notice and SetStatus may be called from any goroutine
// except the view's own callbacks. Before Run they write straight into the
// widgets; while running they are queued onto the event loop; after Stop
// they are dropped.
type ChatView struct {
	app      *tview.Application
	messages *tview.TextView
	status   *tview.TextView
	input    *tview.InputField

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewChatView builds the view. label prefixes the input line.
func NewChatView(label string) *ChatView {
	v := &ChatView{app: tview.NewApplication()}

	v.messages = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true)

	v.status = tview.NewTextView().SetDynamicColors(true)
	v.status.SetBackgroundColor(tcell.ColorDarkSlateGray)

	v.input = tview.NewInputField().
		SetLabel(tview.Escape(label) + " > ").
		SetFieldWidth(0).
		SetAcceptanceFunc(tview.InputFieldMaxLength(maxInputLen))

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.messages, 0, 1, false).
		AddItem(v.status, 1, 0, false).
		AddItem(v.input, 1, 0, true)

	v.app.SetRoot(root, true).SetFocus(v.input)
	return v
}

// SetScreen replaces the terminal, for tests.
func (v *ChatView) SetScreen(s tcell.Screen) {
	v.app.SetScreen(s)
}

// Clear empties the message pane.
func (v *ChatView) Clear() {
	v.update(func() {
		v.messages.Clear()
		v.messages.ScrollToEnd()
	})
}

// Deliver appends msg to the message pane.
func (v *ChatView) Deliver(msg types.Message) {
	line := colorLine(msg)
	v.update(func() {
		fmt.Fprintln(v.messages, line)
		v.messages.ScrollToEnd()
	})
}

// Notice appends a client-side status line.
func (v *ChatView) Notice(format string, args ...any) {
	line := "[yellow]* " + tview.Escape(fmt.Sprintf(format, args...)) + "[-]"
	v.update(func() {
		fmt.Fprintln(v.messages, line)
		v.messages.ScrollToEnd()
	})
}

// SetStatus replaces the status line.
func (v *ChatView) SetStatus(text string) {
	text = " " + tview.Escape(text)
	v.update(func() { v.status.SetText(text) })
}

// Text returns the message pane without color tags.
func (v *ChatView) Text() string {
	var out string
	v.update(func() { out = v.messages.GetText(true) })
	return out
}

// Run shows the view until Stop. onSubmit receives each non-empty input
// line; onQuit is called on Ctrl+C. Both run on their own goroutine, so
// they may call back into the view.
func (v *ChatView) Run(onSubmit func(string), onQuit func()) error {
	v.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := strings.TrimSpace(v.input.GetText())
		if text == "" {
			return
		}
		v.input.SetText("")
		go onSubmit(text)
	})
	v.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyCtrlC {
			go onQuit()
			return nil
		}
		return ev
	})

	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return nil
	}
	v.running = true
	v.mu.Unlock()

	err := v.app.Run()

	v.mu.Lock()
	v.running = false
	v.stopped = true
	v.mu.Unlock()
	if err != nil {
		return fmt.Errorf("ui: run: %w", err)
	}
	return nil
}

// Stop ends Run. Later updates are dropped.
func (v *ChatView) Stop() {
	v.mu.Lock()
	running := v.running
	v.running = false
	v.stopped = true
	v.mu.Unlock()
	if running {
		v.app.Stop()
	}
}

// update applies f to the widgets. The lock is held across QueueUpdateDraw
// so Stop cannot end the loop while an update is waiting on it.
func (v *ChatView) update(f func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.running:
		v.app.QueueUpdateDraw(f)
	case !v.stopped:
		f()
	}
}

func colorLine(msg types.Message) string {
	name := "[blue]" + tview.Escape(msg.Author()) + "[-]"
	if msg.IsBot {
		name = "[green]" + tview.Escape(msg.Author()) + "*[-]"
	}
	return fmt.Sprintf("[gray]%s[-] %s: %s", tview.Escape("["+stamp(msg)+"]"), name, tview.Escape(msg.Content))
}
