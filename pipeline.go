package merklekv

import (
	"context"

	"github.com/merklekv/client-go/protocol"
)

// Pipeline executes raw command lines sequentially on the existing connection
// and returns one result per command, in input order. This is client-side
// batching, not wire-level overlap: command N+1 is not written until command
// N's response has been read.
//
// A failing command contributes its stringified error at its position and the
// batch continues; a server ERROR line is likewise captured in place. The
// connection must already be established or the whole call fails fast with
// ErrNotConnected before any I/O. Empty input returns an empty slice.
func (c *Client) Pipeline(ctx context.Context, commands []string) ([]string, error) {
	if len(commands) == 0 {
		return []string{}, nil
	}
	if !c.IsConnected() {
		c.stats.recordError()
		return nil, ErrNotConnected
	}

	results := make([]string, len(commands))
	for i, command := range commands {
		line, err := c.Do(ctx, command)
		if err != nil {
			results[i] = err.Error()
			continue
		}
		if outcome := protocol.Classify(line); outcome.Kind == protocol.KindServerError {
			c.stats.recordError()
			results[i] = (&ServerError{Message: outcome.Payload}).Error()
			continue
		}
		results[i] = line
	}

	c.stats.recordPipeline(len(commands))
	return results, nil
}
