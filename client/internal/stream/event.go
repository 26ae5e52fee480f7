package stream

import "net/http"

// Close codes and reasons sent on intentional disconnects.
const (
	CloseNormal = 1000

	ReasonLogout = "logout"
	ReasonUnload = "unload"
)

// EventKind discriminates transport lifecycle events.
type EventKind int

const (
	EventOpen EventKind = iota
	EventFrame
	EventError
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventFrame:
		return "frame"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification from a transport.
type Event struct {
	ConnID string
	Kind   EventKind

	Data []byte // EventFrame

	Code   int    // EventClose
	Reason string // EventClose

	Err error // EventError
}

// Dialer opens transports.
//
// Dial must return immediately: the handshake runs in the background and its
// outcome is reported through emit, tagged with id. After an EventClose the
// transport emits nothing further.
type Dialer interface {
	Dial(id, url string, header http.Header, emit func(Event)) Conn
}

// Conn is a transport handle returned by Dial.
type Conn interface {
	// Close requests closure with code and reason. It does not wait for the
	// peer to confirm; the transport later emits EventClose.
	Close(code int, reason string) error
}
