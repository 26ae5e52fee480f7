// Package cli implements the grocerychat command tree.
//
// The root command loads configuration (file, then GROCERYCHAT_* environment,
// then flags), installs the JSON slog handler on stderr and opens the SQLite
// session store before any subcommand runs. One-shot commands (login,
// history, send, rooms ...) use the API client directly; chat runs the
// controller with a live stream and reads commands from a REPL or the TUI.
package cli
