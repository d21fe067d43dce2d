package merklekv

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/merklekv/client-go/protocol"
)

// Connection owns one transport handle to the server and the framer that
// reassembles response lines from it. It is exclusively owned by a single
// Client and carries no internal locking: the protocol is strictly
// request-then-response, so there is never more than one operation in flight.
type Connection struct {
	addr    string
	timeout time.Duration
	conn    net.Conn
	framer  *protocol.Framer
	closed  bool
}

// NewConnection wraps an established transport. The timeout bounds every
// exchange on this connection unless the caller's context imposes a tighter
// deadline.
func NewConnection(conn net.Conn, addr string, timeout time.Duration) *Connection {
	return &Connection{
		addr:    addr,
		timeout: timeout,
		conn:    conn,
		framer:  protocol.NewFramer(conn),
	}
}

// Addr returns the remote address this connection was dialed to.
func (c *Connection) Addr() string {
	return c.addr
}

// IsClosed reports whether the connection has been closed or has observed a
// transport error. Purely local, no network round-trip.
func (c *Connection) IsClosed() bool {
	return c.closed
}

// Close releases the transport. Safe to call repeatedly.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *Connection) markClosed() {
	c.closed = true
}

// Exchange writes one encoded command and reads back one terminator-stripped
// response line. A deadline from the context, or the configured timeout when
// the context has none, bounds the whole exchange. A timeout leaves the
// connection usable; any other transport failure marks it closed.
func (c *Connection) Exchange(ctx context.Context, command []byte) (string, error) {
	if c.closed {
		return "", ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	deadline, wait := c.deadline(ctx)
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.markClosed()
		return "", &ConnectionError{Op: "set deadline", Addr: c.addr, Err: err}
	}

	if _, err := c.conn.Write(command); err != nil {
		c.markClosed()
		return "", &ConnectionError{Op: "write", Addr: c.addr, Err: err}
	}

	line, err := c.framer.ReadLine()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", &TimeoutError{Op: "read response", Duration: wait}
		}
		c.markClosed()
		return "", &ConnectionError{Op: "read", Addr: c.addr, Err: err}
	}
	return line, nil
}

func (c *Connection) deadline(ctx context.Context) (time.Time, time.Duration) {
	if d, ok := ctx.Deadline(); ok {
		return d, time.Until(d)
	}
	return time.Now().Add(c.timeout), c.timeout
}
