package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

const (
	timeLayout  = "15:04:05"
	unknownTime = "--:--:--"
	rule        = "----------------------------------------"
)

// FormatLine renders msg as "[15:04:05] author: content". Bot replies are
// marked with "*" after the author.
func FormatLine(msg types.Message) string {
	author := msg.Author()
	if msg.IsBot {
		author += "*"
	}
	return fmt.Sprintf("[%s] %s: %s", stamp(msg), author, msg.Content)
}

func stamp(msg types.Message) string {
	t := msg.Time()
	if t.IsZero() {
		return unknownTime
	}
	return t.Format(timeLayout)
}

// Printer writes messages to w, one per line. It is safe for concurrent use.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Clear marks the start of a freshly loaded history. A terminal cannot
// take lines back, so a rule is printed instead.
func (p *Printer) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, rule)
}

// Deliver prints msg.
func (p *Printer) Deliver(msg types.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, FormatLine(msg))
}

// Notice prints a client-side status line prefixed with "* ".
func (p *Printer) Notice(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "* "+format+"\n", args...)
}
