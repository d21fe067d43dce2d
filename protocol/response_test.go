package protocol

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader delivers its chunks one Read call at a time, then EOF. It
// simulates a stream with no alignment between reads and protocol lines.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestFramerSingleRead(t *testing.T) {
	framer := NewFramer(strings.NewReader("VALUE test\r\n"))

	line, err := framer.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "VALUE test", line)
}

func TestFramerSplitAcrossReads(t *testing.T) {
	framer := NewFramer(&chunkReader{chunks: []string{"VAL", "UE test\r\n"}})

	line, err := framer.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "VALUE test", line)
}

func TestFramerTerminatorSplitAcrossReads(t *testing.T) {
	framer := NewFramer(&chunkReader{chunks: []string{"OK\r", "\n"}})

	line, err := framer.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "OK", line)
}

func TestFramerLargePayload(t *testing.T) {
	// Larger than any single read chunk, delivered in small pieces.
	payload := strings.Repeat("x", 64*1024)
	var chunks []string
	for wire := "VALUE " + payload + "\r\n"; len(wire) > 0; {
		n := min(1000, len(wire))
		chunks = append(chunks, wire[:n])
		wire = wire[n:]
	}

	framer := NewFramer(&chunkReader{chunks: chunks})

	line, err := framer.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "VALUE "+payload, line)
}

func TestFramerDiscardsTrailingBytes(t *testing.T) {
	framer := NewFramer(strings.NewReader("VALUE a\r\nVALUE stale\r\n"))

	line, err := framer.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "VALUE a", line)

	// The remainder was discarded with the first read cycle, so the next
	// read hits end-of-stream rather than the stale line.
	_, err = framer.ReadLine()
	assert.ErrorIs(t, err, ErrConnectionLost)
}

func TestFramerEndOfStream(t *testing.T) {
	framer := NewFramer(strings.NewReader(""))

	_, err := framer.ReadLine()
	assert.ErrorIs(t, err, ErrConnectionLost)
}

func TestFramerEndOfStreamMidLine(t *testing.T) {
	framer := NewFramer(strings.NewReader("VALUE trunc"))

	_, err := framer.ReadLine()
	assert.ErrorIs(t, err, ErrConnectionLost)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line    string
		kind    Kind
		payload string
	}{
		{"OK", KindAcknowledged, ""},
		{"NOT_FOUND", KindNotFound, ""},
		{"(null)", KindNotFound, ""},
		{"DELETED", KindDeleted, ""},
		{"VALUE john_doe", KindValue, "john_doe"},
		{"VALUE with spaces here", KindValue, "with spaces here"},
		{"VALUE ", KindValue, ""},
		{"ERROR key not found", KindServerError, "key not found"},
		{"PONG", KindUnrecognized, "PONG"},
		{"ok", KindUnrecognized, "ok"},       // case-sensitive
		{"VALUE", KindUnrecognized, "VALUE"}, // no trailing space
		{"NOT_FOUND extra", KindUnrecognized, "NOT_FOUND extra"},
		{"Unknown command: SET", KindUnrecognized, "Unknown command: SET"},
		{"", KindUnrecognized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			outcome := Classify(tt.line)
			assert.Equal(t, tt.kind, outcome.Kind)
			assert.Equal(t, tt.payload, outcome.Payload)
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "acknowledged", Outcome{Kind: KindAcknowledged}.String())
	assert.Equal(t, "value(x)", Outcome{Kind: KindValue, Payload: "x"}.String())
	assert.Equal(t, "unrecognized(huh)", Outcome{Kind: KindUnrecognized, Payload: "huh"}.String())
}
