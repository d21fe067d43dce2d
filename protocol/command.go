package protocol

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

var (
	ErrEmptyKey   = errors.New("merklekv: key cannot be empty")
	ErrInvalidKey = errors.New("merklekv: key contains control characters")
	ErrEmptyVerb  = errors.New("merklekv: command verb cannot be empty")
)

// ValidateKey rejects keys the server would refuse anyway: empty keys and keys
// containing the protocol's control characters. Checking locally avoids a wire
// round-trip for input that can never succeed.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.ContainsAny(key, "\t\r\n") {
		return ErrInvalidKey
	}
	return nil
}

// FormatCommand builds one wire command: verb and arguments joined by a single
// ASCII space, terminated by CRLF. Arguments are emitted verbatim; use
// EncodeValue for value positions.
func FormatCommand(verb string, args ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString(verb)
	for _, arg := range args {
		buf.WriteByte(' ')
		buf.WriteString(arg)
	}
	buf.WriteString(Terminator)
	return buf.Bytes()
}

// EncodeValue maps the empty string to the quoted empty token. Every other
// value passes through untouched.
func EncodeValue(value string) string {
	if value == "" {
		return EmptyValueToken
	}
	return value
}

// FormatGet encodes a GET command.
func FormatGet(key string) []byte {
	return FormatCommand(CmdGet, key)
}

// FormatSet encodes a SET command, quoting empty values.
func FormatSet(key, value string) []byte {
	return FormatCommand(CmdSet, key, EncodeValue(value))
}

// FormatDelete encodes a DEL command.
func FormatDelete(key string) []byte {
	return FormatCommand(CmdDelete, key)
}

// FormatArithmetic encodes an INC or DEC command with an explicit amount.
func FormatArithmetic(verb, key string, amount int64) []byte {
	return FormatCommand(verb, key, strconv.FormatInt(amount, 10))
}

// FormatMutation encodes an APPEND or PREPEND command.
func FormatMutation(verb, key, value string) []byte {
	return FormatCommand(verb, key, EncodeValue(value))
}

// FormatPing encodes the liveness command.
func FormatPing() []byte {
	return FormatCommand(CmdPing)
}
