package session

import (
	"errors"
	"sync"
	"time"

	"github.com/netipc-protocol/netipc-go/pkg/transport"
)

// ErrNotConnected indicates an operation on an endpoint with no bound
// connection.
var ErrNotConnected = errors.New("endpoint not connected")

// Endpoint is the session's stable handle on the peer. Its identity
// survives reconnects: the dispatcher and supervisor always reference
// the same Endpoint while the underlying connection is replaced by
// Rebind on every successful handshake.
type Endpoint struct {
	mu         sync.Mutex
	remoteAddr string
	conn       transport.Connection
}

// NewEndpoint creates an endpoint for the given peer socket path.
// The endpoint starts with no bound connection.
func NewEndpoint(remoteAddr string) *Endpoint {
	return &Endpoint{remoteAddr: remoteAddr}
}

// RemoteAddr returns the peer socket path.
func (e *Endpoint) RemoteAddr() string {
	return e.remoteAddr
}

// Connected returns true if a connection is currently bound.
func (e *Endpoint) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil
}

// Rebind installs a new connection, closing any previous one. Code
// holding the Endpoint transparently starts using the new connection.
func (e *Endpoint) Rebind(conn transport.Connection) {
	e.mu.Lock()
	old := e.conn
	e.conn = conn
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// current returns the bound connection, or nil.
func (e *Endpoint) current() transport.Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn
}

// Send sends a message on the bound connection.
func (e *Endpoint) Send(data []byte) error {
	conn := e.current()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Send(data)
}

// Receive receives a message from the bound connection. A zero timeout
// blocks until a message arrives or the connection fails.
func (e *Endpoint) Receive(timeout time.Duration) ([]byte, error) {
	conn := e.current()
	if conn == nil {
		return nil, ErrNotConnected
	}
	return conn.Receive(timeout)
}

// Shutdown disables traffic on the bound connection without releasing
// it. Best-effort; a missing connection is a no-op.
func (e *Endpoint) Shutdown() {
	if conn := e.current(); conn != nil {
		conn.Shutdown()
	}
}

// Close closes and unbinds the connection. Safe to call repeatedly.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
