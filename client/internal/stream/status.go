package stream

// Status is the lifecycle state of the connection handle.
type Status int

const (
	// StatusIdle means no connection has been attempted yet.
	StatusIdle Status = iota

	// StatusConnecting means a handle exists and its handshake is in flight.
	StatusConnecting

	// StatusOpen means the handle is connected and receiving frames.
	StatusOpen

	// StatusClosed means the last handle closed, failed or was disconnected.
	StatusClosed
)

// String returns the lowercase name of s.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// active reports whether s counts toward the single-connection limit.
func (s Status) active() bool {
	return s == StatusConnecting || s == StatusOpen
}
