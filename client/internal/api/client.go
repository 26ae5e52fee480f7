package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pohaoc29/GroceryShopperAI/client/internal/config"
	"github.com/pohaoc29/GroceryShopperAI/pkg/types"
)

// TokenSource supplies the bearer token for outgoing requests.
// An empty string means the request is sent anonymously.
type TokenSource interface {
	Credential() string
}

// Error is a non-success response from the backend.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "HTTP " + strconv.Itoa(e.StatusCode)
}

// Ack is the backend's reply to a posted message.
type Ack struct {
	OK bool  `json:"ok"`
	ID int64 `json:"id"`
}

// Client calls the backend's /api routes.
type Client struct {
	base    *url.URL
	http    *http.Client
	roomID  int64
	history int
}

// New builds a Client for cfg. tokens is consulted on every request.
func New(cfg config.ClientConfig, tokens TokenSource) (*Client, error) {
	base, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse server url: %w", err)
	}
	return &Client{
		base:    base,
		http:    buildHTTPClient(cfg, tokens),
		roomID:  cfg.RoomID,
		history: cfg.HistoryLimit,
	}, nil
}

// bearerRoundTripper injects the Authorization header when a token is held.
type bearerRoundTripper struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if tok := t.tokens.Credential(); tok != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for cfg's TLS and timeout settings.
func buildHTTPClient(cfg config.ClientConfig, tokens TokenSource) *http.Client {
	return &http.Client{
		Transport: &bearerRoundTripper{
			base:   &http.Transport{TLSClientConfig: cfg.TLS.Build(), Proxy: http.ProxyFromEnvironment},
			tokens: tokens,
		},
		Timeout: cfg.RequestTimeout,
	}
}

// --- auth -------------------------------------------------------------------

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}

// Signup creates an account and returns its credential.
func (c *Client) Signup(ctx context.Context, username, password string) (string, error) {
	return c.authenticate(ctx, "/api/signup", username, password)
}

// Login returns a credential for an existing account.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	return c.authenticate(ctx, "/api/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, path, nil, credentials{Username: username, Password: password}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("api: %s: response carried no token", path)
	}
	return out.Token, nil
}

// --- messages ---------------------------------------------------------------

// FetchHistory returns past messages, oldest first.
func (c *Client) FetchHistory(ctx context.Context) ([]types.Message, error) {
	var q url.Values
	if c.roomID > 0 {
		q = url.Values{"limit": {strconv.Itoa(c.history)}}
	}
	var out struct {
		Messages []types.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, c.messagesPath(), q, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendMessage posts content as the authenticated user.
func (c *Client) SendMessage(ctx context.Context, content string) (Ack, error) {
	var ack Ack
	err := c.do(ctx, http.MethodPost, c.messagesPath(), nil, map[string]string{"content": content}, &ack)
	return ack, err
}

func (c *Client) messagesPath() string {
	if c.roomID > 0 {
		return "/api/rooms/" + strconv.FormatInt(c.roomID, 10) + "/messages"
	}
	return "/api/messages"
}

// --- rooms ------------------------------------------------------------------

// ListRooms returns the rooms the user belongs to.
func (c *Client) ListRooms(ctx context.Context) ([]types.Room, error) {
	var out struct {
		Rooms []types.Room `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

// CreateRoom creates a room owned by the user.
func (c *Client) CreateRoom(ctx context.Context, name string) (types.Room, error) {
	var out struct {
		Room types.Room `json:"room"`
	}
	err := c.do(ctx, http.MethodPost, "/api/rooms", nil, map[string]string{"name": name}, &out)
	return out.Room, err
}

// RoomMembers lists the members of a room.
func (c *Client) RoomMembers(ctx context.Context, roomID int64) ([]types.Member, error) {
	var out struct {
		Members []types.Member `json:"members"`
	}
	path := "/api/rooms/" + strconv.FormatInt(roomID, 10) + "/members"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// Invite adds username to a room owned by the user and returns the
// server's confirmation text.
func (c *Client) Invite(ctx context.Context, roomID int64, username string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	path := "/api/rooms/" + strconv.FormatInt(roomID, 10) + "/invite"
	err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"username": username}, &out)
	return out.Message, err
}

// --- transport --------------------------------------------------------------

// do sends one JSON request and decodes the JSON reply into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s body: %w", path, err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Detail: detail(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s response: %w", path, err)
	}
	return nil
}

// detail extracts the backend's error text. FastAPI sends a string for
// HTTPException and a list of objects for validation errors.
func detail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(env.Detail)
}
