package merklekv

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConnected is returned when an operation is attempted before
	// Connect, or after the connection has been closed.
	ErrNotConnected = errors.New("merklekv: not connected to server")

	// ErrClosed is returned by operations on a client whose connection was
	// torn down after a transport error.
	ErrClosed = errors.New("merklekv: connection closed")
)

// ConnectionError reports a transport that could not be established or
// maintained: refused, reset, closed by peer, or unresolvable.
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("merklekv: %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("merklekv: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a bounded wait that elapsed without completion. A bare
// timeout does not by itself invalidate the connection.
type TimeoutError struct {
	Op       string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("merklekv: %s timed out after %s", e.Op, e.Duration)
}

// Timeout implements the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// ProtocolError reports a response that matched no recognized grammar, or a
// retry loop that exhausted its attempts. Attempts is zero when no retrying
// was involved.
type ProtocolError struct {
	Op       string
	Message  string
	Attempts int
}

func (e *ProtocolError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("merklekv: %s: %s (after %d attempts)", e.Op, e.Message, e.Attempts)
	}
	return fmt.Sprintf("merklekv: %s: %s", e.Op, e.Message)
}

// ServerError carries a well-formed ERROR response from the server. The
// protocol exchange itself succeeded; the operation failed at the application
// level. It is never retried and never coerced into a miss or a success.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "merklekv: server error: " + e.Message
}
