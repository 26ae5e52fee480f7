package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pohaoc29/GroceryShopperAI/client/internal/app"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/config"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/stream"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/ui"
)

const statusRefresh = 500 * time.Millisecond

// display is what a chat session renders into.
type display interface {
	app.Display
	notifier
}

func newChatCmd(rt *runtime) *cobra.Command {
	var tui bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join the live chat",
		Long: `Join the live chat. A stored session is resumed; otherwise log in with
/login USER PASS. Lines starting with / are commands (see /help), anything
else is sent as a message.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.chat(cmd, tui)
		},
	}
	cmd.Flags().BoolVar(&tui, "tui", false, "use the full-screen interface")
	return cmd
}

// chatSession is one running chat: the controller, its stream and the REPL.
type chatSession struct {
	ctrl *app.Controller
	mgr  *stream.Manager
	repl *repl
}

func (rt *runtime) newChatSession(d display) (*chatSession, error) {
	c := rt.cfg.Client
	wsURL, err := stream.URL(c.ServerURL, c.RoomID)
	if err != nil {
		return nil, err
	}

	mgr := stream.New(stream.Options{
		URL:            wsURL,
		ReconnectDelay: c.ReconnectDelay,
		Header:         rt.streamHeader,
	}, stream.NewWebSocketDialer(c.TLS.Build()), d)

	ctrl := app.New(rt.api, rt.session, mgr, d)
	return &chatSession{
		ctrl: ctrl,
		mgr:  mgr,
		repl: &repl{ctrl: ctrl, mgr: mgr, out: d},
	}, nil
}

// streamHeader authenticates the handshake with the current credential.
func (rt *runtime) streamHeader() http.Header {
	h := http.Header{}
	if tok := rt.session.Credential(); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

func (rt *runtime) chat(cmd *cobra.Command, tui bool) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if tui {
		return rt.chatTUI(ctx)
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	s, err := rt.newChatSession(p)
	if err != nil {
		return err
	}

	done := s.start(ctx, rt)
	s.resume(ctx, p)
	s.repl.run(ctx, cmd.InOrStdin())

	cancel()
	<-done
	return nil
}

func (rt *runtime) chatTUI(ctx context.Context) error {
	logPath := filepath.Join(filepath.Dir(rt.cfg.Client.SessionPath), "grocerychat.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("cli: open log file: %w", err)
	}
	defer logFile.Close()
	rt.logTo(logFile)

	view := ui.NewChatView("grocerychat")
	s, err := rt.newChatSession(view)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := s.start(ctx, rt)
	defer func() {
		cancel()
		<-done
	}()

	go s.resume(ctx, view)
	go func() {
		<-ctx.Done()
		view.Stop()
	}()
	go func() {
		t := time.NewTicker(statusRefresh)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				view.SetStatus(s.statusLine(rt.cfg.Client.RoomID))
			}
		}
	}()

	return view.Run(func(line string) {
		if s.repl.exec(ctx, line) {
			view.Stop()
		}
	}, view.Stop)
}

// start runs the stream loop and the config watcher until ctx is done. The
// returned channel closes once the stream has been torn down.
func (s *chatSession) start(ctx context.Context, rt *runtime) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.mgr.Run(ctx)
		close(done)
	}()

	go func() {
		err := config.Watch(ctx, rt.cfgPath, func(cfg *config.Config) {
			rt.level.Set(cfg.Client.Level())
		})
		if err != nil {
			slog.Debug("config: not watching", "path", rt.cfgPath, "err", err)
		}
	}()
	return done
}

// resume continues a stored session, if any.
func (s *chatSession) resume(ctx context.Context, out notifier) {
	err := s.ctrl.Resume(ctx)
	switch {
	case err == nil:
		if user := s.ctrl.Username(); user != "" {
			out.Notice("resumed session as %s", user)
		} else {
			out.Notice("resumed session")
		}
	case errors.Is(err, app.ErrNotAuthenticated):
		out.Notice("not logged in, use /login USER PASS or /signup USER PASS")
	case errors.Is(err, app.ErrSessionExpired):
		out.Notice("session expired, log in again")
	default:
		s.repl.fail("resume", err)
	}
}

func (s *chatSession) statusLine(room int64) string {
	user := s.ctrl.Username()
	if user == "" {
		user = "-"
	}
	feed := "global"
	if room > 0 {
		feed = fmt.Sprintf("room %d", room)
	}
	return fmt.Sprintf("%s | %s | stream %s", user, feed, s.mgr.Status())
}
