package merklekv

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/merklekv/client-go/protocol"
)

// DefaultTimeout bounds connects and exchanges when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// DefaultMaxAttempts is the total attempt bound for the Get recovery policy:
// one original try plus two reconnect-retries.
const DefaultMaxAttempts = 3

// DefaultReconnectThreshold is the encoded-command size, not counting the
// terminator, above which a successful SET triggers a proactive reconnect.
// See retry.go for why.
const DefaultReconnectThreshold = 1024

// NoReconnectThreshold disables the post-SET reconnect workaround.
const NoReconnectThreshold = -1

// Config holds optional client settings. The zero value gives working
// defaults.
type Config struct {
	// Timeout bounds the initial connect and every exchange that has no
	// context deadline. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxAttempts is the total attempt bound for Get, including the first
	// try. Zero means DefaultMaxAttempts. Must be finite by construction;
	// values below 1 are raised to 1.
	MaxAttempts int

	// ReconnectThreshold is the encoded SET size in bytes, terminator
	// excluded, above which the connection is cycled after a successful
	// write. Zero means DefaultReconnectThreshold; NoReconnectThreshold
	// disables the workaround entirely.
	ReconnectThreshold int

	// Dialer is used to open the transport. If nil, a default net.Dialer
	// bounded by Timeout is used.
	Dialer *net.Dialer

	// Logger receives debug events for connects, retries, and reconnects.
	// If nil, logging is disabled.
	Logger *zerolog.Logger

	// NewCircuitBreaker creates a circuit breaker wrapping every exchange.
	// Called once with the server address. If nil, no breaker is used.
	NewCircuitBreaker func(addr string) CircuitBreaker
}

// Item is the result of a read operation. Found distinguishes a missing key
// from a present key, including one holding an empty value.
type Item struct {
	Key   string
	Value string
	Found bool
}

// Client talks to one MerkleKV server over a single connection.
//
// A Client is not safe for concurrent use: the wire protocol has no request
// identifiers, so responses can only be matched to commands by strict
// request-then-response ordering. Use one Client per goroutine, or the pool
// package.
type Client struct {
	addr               string
	timeout            time.Duration
	maxAttempts        int
	reconnectThreshold int
	dialer             *net.Dialer
	logger             zerolog.Logger
	breaker            CircuitBreaker

	conn  *Connection
	stats *statsCollector
}

// New creates a client for the given endpoint with default settings. Call
// Connect before issuing operations.
func New(host string, port int) *Client {
	return NewWithConfig(host, port, Config{})
}

// NewWithConfig creates a client with explicit settings.
func NewWithConfig(host string, port int, config Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	maxAttempts := config.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	threshold := config.ReconnectThreshold
	if threshold == 0 {
		threshold = DefaultReconnectThreshold
	}

	dialer := config.Dialer
	if dialer == nil {
		dialer = &net.Dialer{Timeout: timeout}
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	c := &Client{
		addr:               addr,
		timeout:            timeout,
		maxAttempts:        maxAttempts,
		reconnectThreshold: threshold,
		dialer:             dialer,
		logger:             logger,
		stats:              newStatsCollector(),
	}

	if config.NewCircuitBreaker != nil {
		c.breaker = config.NewCircuitBreaker(addr)
	}

	return c
}

// Addr returns the endpoint address in host:port form.
func (c *Client) Addr() string {
	return c.addr
}

// Connect opens the transport. A prior connection, if any, is closed first,
// so calling Connect again replaces the handle.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	netConn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return &ConnectionError{Op: "connect", Addr: c.addr, Err: err}
	}

	// Disable Nagle coalescing: exchanges are tiny and strictly serial, so
	// every batched write is pure added latency.
	if tcpConn, ok := netConn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			_ = netConn.Close()
			return &ConnectionError{Op: "set nodelay", Addr: c.addr, Err: err}
		}
	}

	c.conn = NewConnection(netConn, c.addr, c.timeout)
	c.logger.Debug().Str("addr", c.addr).Msg("connected")
	return nil
}

// Close releases the transport. Safe to call when not connected.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// IsConnected reports whether a usable transport handle exists. Purely local,
// never a network round-trip.
func (c *Client) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

// exchange runs one request-response cycle, through the circuit breaker when
// one is configured.
func (c *Client) exchange(ctx context.Context, command []byte) (string, error) {
	if !c.IsConnected() {
		return "", ErrNotConnected
	}
	if c.breaker != nil {
		return c.breaker.Execute(func() (string, error) {
			return c.conn.Exchange(ctx, command)
		})
	}
	return c.conn.Exchange(ctx, command)
}

// Get retrieves the value for a key. A missing key is reported as
// Found=false, never as an error. Transport failures and malformed responses
// are absorbed by the recovery policy up to the configured attempt bound.
func (c *Client) Get(ctx context.Context, key string) (Item, error) {
	if err := protocol.ValidateKey(key); err != nil {
		c.stats.recordError()
		return Item{}, err
	}
	item, err := c.getWithRecovery(ctx, key)
	if err != nil {
		c.stats.recordError()
		return Item{}, err
	}
	c.stats.recordGet(item.Found)
	return item, nil
}

// Set stores a value under a key. An empty value is sent as the quoted empty
// token per the wire format.
func (c *Client) Set(ctx context.Context, key, value string) error {
	if err := protocol.ValidateKey(key); err != nil {
		c.stats.recordError()
		return err
	}

	command := protocol.FormatSet(key, value)
	line, err := c.exchange(ctx, command)
	if err != nil {
		c.stats.recordError()
		return err
	}

	outcome := protocol.Classify(line)
	switch outcome.Kind {
	case protocol.KindAcknowledged:
		c.stats.recordSet()
		c.reconnectAfterLargeSet(ctx, len(command)-len(protocol.Terminator))
		return nil
	case protocol.KindServerError:
		c.stats.recordError()
		return &ServerError{Message: outcome.Payload}
	default:
		c.stats.recordError()
		return &ProtocolError{Op: "set", Message: "unexpected response: " + outcome.String()}
	}
}

// Delete removes a key. Deleting an absent key is still a success. The
// returned bool is true when the server answered DELETED, meaning the key
// existed; server builds that answer OK for every delete always yield false.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	if err := protocol.ValidateKey(key); err != nil {
		c.stats.recordError()
		return false, err
	}

	line, err := c.exchange(ctx, protocol.FormatDelete(key))
	if err != nil {
		c.stats.recordError()
		return false, err
	}

	outcome := protocol.Classify(line)
	switch outcome.Kind {
	case protocol.KindAcknowledged:
		c.stats.recordDelete()
		return false, nil
	case protocol.KindDeleted:
		c.stats.recordDelete()
		return true, nil
	case protocol.KindServerError:
		c.stats.recordError()
		return false, &ServerError{Message: outcome.Payload}
	default:
		c.stats.recordError()
		return false, &ProtocolError{Op: "delete", Message: "unexpected response: " + outcome.String()}
	}
}

// Increment adds amount to a numeric value and returns the new value.
func (c *Client) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	return c.arithmetic(ctx, protocol.CmdIncr, key, amount)
}

// Decrement subtracts amount from a numeric value and returns the new value.
func (c *Client) Decrement(ctx context.Context, key string, amount int64) (int64, error) {
	return c.arithmetic(ctx, protocol.CmdDecr, key, amount)
}

func (c *Client) arithmetic(ctx context.Context, verb, key string, amount int64) (int64, error) {
	if err := protocol.ValidateKey(key); err != nil {
		c.stats.recordError()
		return 0, err
	}

	line, err := c.exchange(ctx, protocol.FormatArithmetic(verb, key, amount))
	if err != nil {
		c.stats.recordError()
		return 0, err
	}

	outcome := protocol.Classify(line)
	switch outcome.Kind {
	case protocol.KindValue:
		value, err := strconv.ParseInt(outcome.Payload, 10, 64)
		if err != nil {
			c.stats.recordError()
			return 0, &ProtocolError{Op: verb, Message: fmt.Sprintf("non-numeric value %q", outcome.Payload)}
		}
		c.stats.recordIncrement()
		return value, nil
	case protocol.KindServerError:
		c.stats.recordError()
		return 0, &ServerError{Message: outcome.Payload}
	default:
		c.stats.recordError()
		return 0, &ProtocolError{Op: verb, Message: "unexpected response: " + outcome.String()}
	}
}

// Append concatenates value after the current string and returns the result.
func (c *Client) Append(ctx context.Context, key, value string) (string, error) {
	return c.mutate(ctx, protocol.CmdAppend, key, value)
}

// Prepend concatenates value before the current string and returns the result.
func (c *Client) Prepend(ctx context.Context, key, value string) (string, error) {
	return c.mutate(ctx, protocol.CmdPrepend, key, value)
}

func (c *Client) mutate(ctx context.Context, verb, key, value string) (string, error) {
	if err := protocol.ValidateKey(key); err != nil {
		c.stats.recordError()
		return "", err
	}

	line, err := c.exchange(ctx, protocol.FormatMutation(verb, key, value))
	if err != nil {
		c.stats.recordError()
		return "", err
	}

	outcome := protocol.Classify(line)
	switch outcome.Kind {
	case protocol.KindValue:
		c.stats.recordMutation()
		return outcome.Payload, nil
	case protocol.KindServerError:
		c.stats.recordError()
		return "", &ServerError{Message: outcome.Payload}
	default:
		c.stats.recordError()
		return "", &ProtocolError{Op: verb, Message: "unexpected response: " + outcome.String()}
	}
}

// Truncate clears every key in the store.
func (c *Client) Truncate(ctx context.Context) error {
	line, err := c.exchange(ctx, protocol.FormatCommand(protocol.CmdTruncate))
	if err != nil {
		c.stats.recordError()
		return err
	}

	outcome := protocol.Classify(line)
	switch outcome.Kind {
	case protocol.KindAcknowledged:
		return nil
	case protocol.KindServerError:
		c.stats.recordError()
		return &ServerError{Message: outcome.Payload}
	default:
		c.stats.recordError()
		return &ProtocolError{Op: "truncate", Message: "unexpected response: " + outcome.String()}
	}
}

// Ping sends the liveness command and fails unless the server answers PONG.
func (c *Client) Ping(ctx context.Context) error {
	line, err := c.exchange(ctx, protocol.FormatPing())
	if err != nil {
		c.stats.recordError()
		return err
	}
	if line == protocol.RespPong {
		return nil
	}
	if outcome := protocol.Classify(line); outcome.Kind == protocol.KindServerError {
		c.stats.recordError()
		return &ServerError{Message: outcome.Payload}
	}
	c.stats.recordError()
	return &ProtocolError{Op: "ping", Message: fmt.Sprintf("unexpected response %q", line)}
}

// Do sends a raw command and returns the server's response line with the
// terminator stripped. It is the escape hatch for verbs the typed methods do
// not cover: the line comes back verbatim, ERROR responses included, so
// callers classify it themselves. Only validation and transport failures are
// reported as errors.
func (c *Client) Do(ctx context.Context, verb string, args ...string) (string, error) {
	if verb == "" {
		c.stats.recordError()
		return "", protocol.ErrEmptyVerb
	}
	line, err := c.exchange(ctx, protocol.FormatCommand(verb, args...))
	if err != nil {
		c.stats.recordError()
		return "", err
	}
	return line, nil
}

// HealthCheck reports server liveness as a bare boolean. Every failure mode,
// including not being connected, collapses to false; it never returns an
// error and performs no I/O when disconnected.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if !c.IsConnected() {
		return false
	}
	line, err := c.exchange(ctx, protocol.FormatPing())
	if err != nil {
		return false
	}
	return line == protocol.RespPong
}

// Stats returns a snapshot of operation counters.
func (c *Client) Stats() Stats {
	return c.stats.snapshot()
}
