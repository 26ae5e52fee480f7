package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pohaoc29/GroceryShopperAI/client/internal/api"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/session"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/stream"
	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

var (
	// ErrNotAuthenticated is returned by operations that need a credential
	// when none is held.
	ErrNotAuthenticated = errors.New("app: not authenticated")

	// ErrSessionExpired is returned by Resume when the stored credential is
	// expired or rejected. The credential has been erased.
	ErrSessionExpired = errors.New("app: session expired")
)

// API is the subset of *api.Client the controller uses.
type API interface {
	Signup(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	FetchHistory(ctx context.Context) ([]types.Message, error)
	SendMessage(ctx context.Context, content string) (api.Ack, error)
}

// Stream is the subset of *stream.Manager the controller drives.
type Stream interface {
	Start()
	Disconnect(reason string)
}

// Display receives history and live messages.
type Display interface {
	Clear()
	Deliver(msg types.Message)
}

// Controller implements the user-level session actions.
type Controller struct {
	api     API
	session *session.State
	stream  Stream
	display Display

	now func() time.Time // injectable for tests
}

// New returns a Controller.
func New(client API, sess *session.State, st Stream, display Display) *Controller {
	return &Controller{
		api:     client,
		session: sess,
		stream:  st,
		display: display,
		now:     time.Now,
	}
}

// Signup creates an account and logs in as it.
func (c *Controller) Signup(ctx context.Context, username, password string) error {
	token, err := c.api.Signup(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return err
	}
	return c.begin(ctx, token)
}

// Login authenticates and starts the session. A failed login leaves the
// session and stream untouched.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	token, err := c.api.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return err
	}
	return c.begin(ctx, token)
}

func (c *Controller) begin(ctx context.Context, token string) error {
	prev := c.session.Credential()
	if err := c.session.SetCredential(token); err != nil {
		return err
	}
	// The stream handshake carries the credential it was dialled with, so a
	// replaced credential needs a fresh connection.
	if prev != "" && prev != token {
		c.stream.Disconnect(stream.ReasonLogout)
	}
	if claims, ok := c.session.Claims(); ok {
		slog.Info("app: logged in", "user", claims.Subject)
	} else {
		slog.Info("app: logged in")
	}
	return c.startStreaming(ctx)
}

// Resume continues a session from the stored credential.
func (c *Controller) Resume(ctx context.Context) error {
	if !c.session.HasCredential() {
		return ErrNotAuthenticated
	}
	if c.session.Expired(c.now()) {
		slog.Info("app: stored session expired")
		return c.expire()
	}

	err := c.startStreaming(ctx)
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		slog.Info("app: stored session rejected", "detail", apiErr.Detail)
		return c.expire()
	}
	return err
}

func (c *Controller) expire() error {
	if err := c.session.ClearCredential(); err != nil {
		return err
	}
	return ErrSessionExpired
}

// startStreaming loads history, then enables the stream. The stream is not
// started when history fails.
func (c *Controller) startStreaming(ctx context.Context) error {
	if err := c.LoadHistory(ctx); err != nil {
		return err
	}
	c.stream.Start()
	return nil
}

// Logout closes the stream with reason "logout" and erases the credential.
func (c *Controller) Logout() error {
	c.stream.Disconnect(stream.ReasonLogout)
	if err := c.session.ClearCredential(); err != nil {
		return err
	}
	slog.Info("app: logged out")
	return nil
}

// Shutdown closes the stream with reason "unload". The credential is kept
// so the next start resumes.
func (c *Controller) Shutdown() {
	c.stream.Disconnect(stream.ReasonUnload)
}

// LoadHistory replaces the display's contents with the server's history.
func (c *Controller) LoadHistory(ctx context.Context) error {
	msgs, err := c.api.FetchHistory(ctx)
	if err != nil {
		return err
	}
	c.display.Clear()
	for _, m := range msgs {
		c.display.Deliver(m)
	}
	slog.Debug("app: history loaded", "messages", len(msgs))
	return nil
}

// Send posts text to the current feed. Blank text is ignored. The message
// comes back through the stream, so it is not delivered here.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !c.session.HasCredential() {
		return ErrNotAuthenticated
	}
	if _, err := c.api.SendMessage(ctx, text); err != nil {
		return fmt.Errorf("app: send: %w", err)
	}
	return nil
}

// Username returns the logged-in user's name from the credential's claims,
// or "" when the credential is absent or opaque.
func (c *Controller) Username() string {
	claims, ok := c.session.Claims()
	if !ok {
		return ""
	}
	return claims.Subject
}
