package merklekv

// Recovery policy for a server defect: large or malformed input can
// desynchronize the server's command parser, after which well-formed commands
// on the same connection draw spurious "Unknown command:" errors. A fresh
// connection gets a fresh parser, so the workaround is always
// close-then-reconnect. Everything related to the defect lives in this file
// so it can be deleted as one unit once the server is fixed.

import (
	"context"
	"errors"
	"fmt"

	"github.com/merklekv/client-go/protocol"
)

// getWithRecovery issues GET with a bounded reconnect-and-retry loop. GET is
// idempotent, which is why it is the only operation retried blindly.
//
// Retried: transport failures and unrecognized responses. Not retried: a
// ServerError (a healthy exchange reporting an application failure), a
// timeout (the connection may still be fine), a canceled context, and calling
// before Connect.
func (c *Client) getWithRecovery(ctx context.Context, key string) (Item, error) {
	command := protocol.FormatGet(key)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.stats.recordRetry()
			c.logger.Warn().Str("key", key).Int("attempt", attempt).
				AnErr("cause", lastErr).Msg("retrying get after reconnect")
			if err := c.Connect(ctx); err != nil {
				lastErr = err
				continue
			}
		}

		line, err := c.exchange(ctx, command)
		if err == nil {
			outcome := protocol.Classify(line)
			switch outcome.Kind {
			case protocol.KindValue:
				return Item{Key: key, Value: outcome.Payload, Found: true}, nil
			case protocol.KindNotFound:
				return Item{Key: key}, nil
			case protocol.KindServerError:
				return Item{}, &ServerError{Message: outcome.Payload}
			default:
				err = &ProtocolError{Op: "get", Message: "unexpected response: " + outcome.String()}
			}
		}

		if !retryable(err) {
			return Item{}, err
		}
		lastErr = err
	}

	return Item{}, &ProtocolError{
		Op:       "get",
		Message:  fmt.Sprintf("giving up on key %q: %v", key, lastErr),
		Attempts: c.maxAttempts,
	}
}

func retryable(err error) bool {
	if errors.Is(err, ErrNotConnected) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return false
	}

	var connErr *ConnectionError
	var protoErr *ProtocolError
	return errors.As(err, &connErr) || errors.As(err, &protoErr)
}

// reconnectAfterLargeSet cycles the connection after a successful oversized
// SET, before the parser desync can poison a later command. The threshold is
// deliberately conservative; set Config.ReconnectThreshold to
// NoReconnectThreshold to turn this off.
//
// The SET itself succeeded, so a failed reconnect is logged rather than
// surfaced: the client is simply left disconnected, exactly as if the caller
// had closed it.
func (c *Client) reconnectAfterLargeSet(ctx context.Context, commandLen int) {
	if c.reconnectThreshold == NoReconnectThreshold || commandLen <= c.reconnectThreshold {
		return
	}

	c.stats.recordReconnect()
	c.logger.Debug().Int("command_bytes", commandLen).
		Int("threshold", c.reconnectThreshold).Msg("cycling connection after large set")

	_ = c.Close()
	if err := c.Connect(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("reconnect after large set failed")
	}
}
