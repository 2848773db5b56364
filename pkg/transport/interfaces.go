package transport

import (
	"net"
	"time"
)

// Connection represents a client-side connection to a peer.
// Implemented by ClientConn.
type Connection interface {
	// LocalAddr returns the local network address.
	LocalAddr() net.Addr

	// RemoteAddr returns the remote network address.
	RemoteAddr() net.Addr

	// Send sends a message to the peer.
	Send(data []byte) error

	// SendWithRights sends a message with file descriptors attached
	// as SCM_RIGHTS ancillary data.
	SendWithRights(data []byte, fds ...int) error

	// Receive receives a message with the specified timeout.
	Receive(timeout time.Duration) ([]byte, error)

	// Shutdown disables sends and receives without releasing the
	// descriptor. Best-effort; errors are ignored.
	Shutdown()

	// Close closes the connection.
	Close() error
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	// ReadFrame reads a length-prefixed frame.
	ReadFrame() ([]byte, error)

	// WriteFrame writes a length-prefixed frame.
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ Connection      = (*ClientConn)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
