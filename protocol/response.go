package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrConnectionLost reports a stream that ended before a full response line
// arrived. It is distinct from a timeout: the peer is gone, not slow.
var ErrConnectionLost = errors.New("merklekv: connection closed by server")

const readChunkSize = 4096

// Framer reassembles CRLF-terminated response lines from a byte stream. The
// stream owes no alignment guarantees: a terminator may arrive split across
// reads, and a single value may span many reads. The accumulator grows as
// needed since the protocol puts no upper bound on response length.
type Framer struct {
	r   io.Reader
	buf []byte
}

func NewFramer(r io.Reader) *Framer {
	return &Framer{r: r}
}

// ReadLine reads until the first terminator and returns the line without it.
// Anything buffered past the terminator is discarded: the protocol is strictly
// one response per command, so trailing bytes within a read cycle are garbage.
// A clean end-of-stream before the terminator is reported as ErrConnectionLost.
func (f *Framer) ReadLine() (string, error) {
	f.buf = f.buf[:0]

	chunk := make([]byte, readChunkSize)
	for {
		n, err := f.r.Read(chunk)
		if n > 0 {
			f.buf = append(f.buf, chunk[:n]...)
			if idx := bytes.Index(f.buf, []byte(Terminator)); idx >= 0 {
				return string(f.buf[:idx]), nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return "", ErrConnectionLost
			}
			return "", err
		}
	}
}

// Kind enumerates the recognized response categories.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindAcknowledged      // OK
	KindNotFound          // NOT_FOUND or (null)
	KindDeleted           // DELETED
	KindValue             // VALUE <payload>
	KindServerError       // ERROR <message>
)

func (k Kind) String() string {
	switch k {
	case KindAcknowledged:
		return "acknowledged"
	case KindNotFound:
		return "not_found"
	case KindDeleted:
		return "deleted"
	case KindValue:
		return "value"
	case KindServerError:
		return "server_error"
	default:
		return "unrecognized"
	}
}

// Outcome is one classified response line. Payload is set for KindValue (the
// value) and KindServerError (the server's message); for KindUnrecognized it
// holds the raw line so callers can report what actually arrived.
type Outcome struct {
	Kind    Kind
	Payload string
}

func (o Outcome) String() string {
	if o.Payload == "" {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.Payload)
}

// Classify maps a terminator-stripped response line to an Outcome. Matching is
// case-sensitive: the server emits tokens in upper case and nothing else is a
// valid response.
func Classify(line string) Outcome {
	switch {
	case line == RespOK:
		return Outcome{Kind: KindAcknowledged}
	case line == RespNotFound, line == RespNull:
		return Outcome{Kind: KindNotFound}
	case line == RespDeleted:
		return Outcome{Kind: KindDeleted}
	case strings.HasPrefix(line, PrefixValue):
		return Outcome{Kind: KindValue, Payload: line[len(PrefixValue):]}
	case strings.HasPrefix(line, PrefixError):
		return Outcome{Kind: KindServerError, Payload: line[len(PrefixError):]}
	default:
		return Outcome{Kind: KindUnrecognized, Payload: line}
	}
}
