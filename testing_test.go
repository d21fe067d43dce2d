package merklekv

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// createListener starts a TCP server on a random local port and runs handler
// for every accepted connection. Returns the server address.
func createListener(t testing.TB, handler func(conn net.Conn)) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}

	t.Cleanup(func() {
		listener.Close()
	})

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			go func(c net.Conn) {
				defer c.Close()
				if handler != nil {
					handler(c)
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

// fakeStore is a minimal in-memory server speaking the MerkleKV line
// protocol, shared across connections so reconnects see the same data.
type fakeStore struct {
	mu   sync.Mutex
	data map[string]string

	// sabotageLeft, while positive, makes the server answer each command
	// with a corrupted-parser style garbage line instead of a response.
	sabotageLeft int

	conns int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (s *fakeStore) connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

func (s *fakeStore) sabotage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sabotageLeft = n
}

func (s *fakeStore) handle(conn net.Conn) {
	s.mu.Lock()
	s.conns++
	s.mu.Unlock()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		response := s.respond(strings.TrimRight(line, "\r\n"))
		if _, err := conn.Write([]byte(response + "\r\n")); err != nil {
			return
		}
	}
}

func (s *fakeStore) respond(line string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sabotageLeft > 0 {
		s.sabotageLeft--
		return "Unknown command: \x00garbage"
	}

	parts := strings.SplitN(line, " ", 3)
	verb := parts[0]

	switch verb {
	case "GET":
		if len(parts) != 2 || parts[1] == "" {
			return "ERROR GET command requires a key"
		}
		if value, ok := s.data[parts[1]]; ok {
			return "VALUE " + value
		}
		return "NOT_FOUND"

	case "SET":
		if len(parts) != 3 || parts[1] == "" {
			return "ERROR SET command requires a key and value"
		}
		s.data[parts[1]] = parts[2]
		return "OK"

	case "DEL", "DELETE":
		if len(parts) != 2 || parts[1] == "" {
			return "ERROR DEL command requires a key"
		}
		if _, ok := s.data[parts[1]]; ok {
			delete(s.data, parts[1])
			return "DELETED"
		}
		return "OK"

	case "INC", "DEC":
		if len(parts) < 2 || parts[1] == "" {
			return "ERROR " + verb + " command requires a key"
		}
		amount := int64(1)
		if len(parts) == 3 {
			n, err := strconv.ParseInt(parts[2], 10, 64)
			if err != nil {
				return "ERROR " + verb + " command amount must be a valid number"
			}
			amount = n
		}
		current, err := strconv.ParseInt(s.data[parts[1]], 10, 64)
		if s.data[parts[1]] != "" && err != nil {
			return "ERROR value is not a valid number"
		}
		if verb == "DEC" {
			amount = -amount
		}
		current += amount
		s.data[parts[1]] = strconv.FormatInt(current, 10)
		return "VALUE " + s.data[parts[1]]

	case "APPEND", "PREPEND":
		if len(parts) != 3 || parts[1] == "" {
			return "ERROR " + verb + " command requires a key and value"
		}
		if verb == "APPEND" {
			s.data[parts[1]] += parts[2]
		} else {
			s.data[parts[1]] = parts[2] + s.data[parts[1]]
		}
		return "VALUE " + s.data[parts[1]]

	case "PING":
		return "PONG"

	case "TRUNCATE":
		s.data = make(map[string]string)
		return "OK"

	default:
		return "ERROR Unknown command: " + verb
	}
}

// startFakeServer runs a fakeStore on a random port.
func startFakeServer(t testing.TB) (*fakeStore, string) {
	t.Helper()
	store := newFakeStore()
	addr := createListener(t, store.handle)
	return store, addr
}

// connectedClient dials addr and fails the test on any connect error.
func connectedClient(t testing.TB, addr string, config Config) *Client {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("bad test server address %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("bad test server port %q: %v", portStr, err)
	}

	if config.Timeout == 0 {
		config.Timeout = 2 * time.Second
	}

	client := NewWithConfig(host, port, config)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}
