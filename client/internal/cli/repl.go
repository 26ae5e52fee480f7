package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/pohaoc29/GroceryShopperAI/client/internal/api"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/app"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/stream"
)

const replHelp = `commands:
  /signup USER PASS   create an account and start chatting
  /login USER PASS    log in and start chatting
  /logout             close the stream and forget the session
  /history            reload recent messages
  /status             show connection state
  /stats              show stream counters
  /quit               leave (the session is kept)
anything else is sent as a message`

// notifier prints client-side status lines.
type notifier interface {
	Notice(format string, args ...any)
}

// repl interprets chat input lines.
type repl struct {
	ctrl *app.Controller
	mgr  *stream.Manager
	out  notifier
}

// run reads lines from in until /quit, EOF or ctx is done.
func (r *repl) run(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || r.exec(ctx, line) {
				return
			}
		}
	}
}

// exec runs one input line and reports whether the session should end.
func (r *repl) exec(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if err := r.ctrl.Send(ctx, line); err != nil {
			r.fail("send", err)
		}
		return false
	}

	args, err := shellwords.Parse(line)
	if err != nil {
		r.out.Notice("cannot parse command: %v", err)
		return false
	}

	switch args[0] {
	case "/quit", "/exit":
		return true

	case "/signup", "/login":
		if len(args) != 3 {
			r.out.Notice("usage: %s USER PASS", args[0])
			return false
		}
		auth := r.ctrl.Login
		if args[0] == "/signup" {
			auth = r.ctrl.Signup
		}
		if err := auth(ctx, args[1], args[2]); err != nil {
			r.fail(strings.TrimPrefix(args[0], "/"), err)
			return false
		}
		r.out.Notice("logged in as %s", args[1])

	case "/logout":
		if err := r.ctrl.Logout(); err != nil {
			r.fail("logout", err)
			return false
		}
		r.out.Notice("logged out")

	case "/history":
		if err := r.ctrl.LoadHistory(ctx); err != nil {
			r.fail("history", err)
		}

	case "/status":
		user := r.ctrl.Username()
		if user == "" {
			user = "-"
		}
		r.out.Notice("stream %s, reconnect %v, user %s", r.mgr.Status(), r.mgr.Reconnecting(), user)

	case "/stats":
		var b strings.Builder
		if err := r.mgr.WriteMetrics(&b); err != nil {
			r.fail("stats", err)
			return false
		}
		for _, l := range strings.Split(strings.TrimSpace(b.String()), "\n") {
			if !strings.HasPrefix(l, "#") {
				r.out.Notice("%s", l)
			}
		}

	case "/help":
		for _, l := range strings.Split(replHelp, "\n") {
			r.out.Notice("%s", l)
		}

	default:
		r.out.Notice("unknown command %s, try /help", args[0])
	}
	return false
}

// fail reports err, using the server's message for API errors.
func (r *repl) fail(op string, err error) {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
		r.out.Notice("%s failed: %s", op, apiErr.Error())
	case errors.Is(err, app.ErrNotAuthenticated):
		r.out.Notice("%s failed: not logged in, use /login USER PASS", op)
	default:
		r.out.Notice("%s failed: %v", op, err)
	}
}
