package protocol

// Command verbs accepted by the server.
const (
	CmdGet      = "GET"
	CmdSet      = "SET"
	CmdDelete   = "DEL"
	CmdIncr     = "INC"
	CmdDecr     = "DEC"
	CmdAppend   = "APPEND"
	CmdPrepend  = "PREPEND"
	CmdPing     = "PING"
	CmdTruncate = "TRUNCATE"
)

// Response tokens. Exact tokens are compared whole; prefixed tokens carry a
// payload after the prefix.
const (
	RespOK       = "OK"
	RespNotFound = "NOT_FOUND"
	RespDeleted  = "DELETED"
	RespPong     = "PONG"

	// RespNull is an alternative not-found spelling some server builds emit
	// in place of NOT_FOUND.
	RespNull = "(null)"

	PrefixValue = "VALUE "
	PrefixError = "ERROR "
)

// Terminator ends every command and every response on the wire.
const Terminator = "\r\n"

// EmptyValueToken stands in for an empty value argument. The wire format is
// whitespace-tokenized, so a bare empty field would vanish during parsing.
const EmptyValueToken = `""`
