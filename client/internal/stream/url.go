package stream

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Path is where the backend serves the stream.
const Path = "/ws"

// URL derives the stream address from the backend's base URL: wss for an
// https backend, ws otherwise, at Path. A positive roomID is sent as the
// room_id query parameter.
func URL(serverURL string, roomID int64) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("stream: parse server url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("stream: server url %q has no host", serverURL)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + Path
	u.RawQuery = ""
	u.Fragment = ""
	if roomID > 0 {
		u.RawQuery = url.Values{"room_id": {strconv.FormatInt(roomID, 10)}}.Encode()
	}
	return u.String(), nil
}
