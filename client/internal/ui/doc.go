// Package ui renders chat messages.
//
// Printer writes one plain line per message and is used by the line-mode
// chat REPL and the history command. ChatView is the full-screen tview
// interface. Both implement Clear and Deliver, the display contract the
// controller loads history into and the stream manager delivers to.
package ui
