package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/netipc-protocol/netipc-go/pkg/log"
)

// Transport errors.
var (
	// ErrConnectionClosed indicates the connection has been closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrShortWrite indicates a sendmsg wrote fewer bytes than requested.
	ErrShortWrite = errors.New("short write")
)

// ClientConfig configures a NETIPC client.
type ClientConfig struct {
	// MaxMessageSize is the maximum message size (default: 4KB).
	MaxMessageSize uint32

	// ConnectTimeout is the connection timeout (default: 10s).
	ConnectTimeout time.Duration
}

// Client dials NETIPC peers over Unix domain sockets.
type Client struct {
	config ClientConfig
}

// NewClient creates a new NETIPC client.
func NewClient(config ClientConfig) *Client {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	return &Client{config: config}
}

// Connect establishes a connection to the peer at the specified socket path.
func (c *Client) Connect(ctx context.Context, socketPath string) (*ClientConn, error) {
	// Apply timeout from config if context doesn't have one
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	uconn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("unexpected connection type %T", conn)
	}

	return &ClientConn{
		conn:    uconn,
		framer:  NewFramerWithMaxSize(uconn, c.config.MaxMessageSize),
		closeCh: make(chan struct{}),
	}, nil
}

// ClientConn represents a single connection from client to peer.
// A ClientConn is good for exactly one connection; reconnection creates
// a fresh one.
type ClientConn struct {
	conn    *net.UnixConn
	framer  *Framer
	closeCh chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex
	readMu    sync.Mutex
}

// LocalAddr returns the local network address.
func (c *ClientConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetLogger configures protocol logging for this connection.
// Pass nil to disable logging.
func (c *ClientConn) SetLogger(logger log.Logger, sessionID string) {
	c.framer.SetLogger(logger, sessionID)
}

// Send sends a message to the peer.
func (c *ClientConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	return c.framer.WriteFrame(data)
}

// SendWithRights sends a message with file descriptors attached as
// SCM_RIGHTS ancillary data. The frame and descriptors travel on the
// same sendmsg so the peer receives them together.
func (c *ClientConn) SendWithRights(data []byte, fds ...int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	frame, err := c.framer.EncodeFrame(data)
	if err != nil {
		return err
	}

	oob := unix.UnixRights(fds...)
	n, oobn, err := c.conn.WriteMsgUnix(frame, oob, nil)
	if err != nil {
		return fmt.Errorf("sendmsg failed: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(frame))
	}
	if oobn != len(oob) {
		return fmt.Errorf("%w: %d of %d ancillary bytes", ErrShortWrite, oobn, len(oob))
	}

	c.framer.logFrame(data, log.DirectionOut)
	return nil
}

// Receive receives a message from the peer with timeout.
// A zero timeout blocks until a message arrives or the connection fails.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}

	return c.framer.ReadFrame()
}

// ReceiveContext receives a message from the peer, honoring both the
// timeout and the context. Cancelling the context expires the read
// deadline, so a blocked read returns promptly with ctx.Err().
func (c *ClientConn) ReceiveContext(ctx context.Context, timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
	}

	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			c.conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	data, err := c.framer.ReadFrame()

	// Stop the watcher before touching the deadline again, so its
	// expired deadline cannot land after the reset.
	close(stop)
	<-watcherDone
	c.conn.SetReadDeadline(time.Time{})

	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return data, err
}

// Shutdown disables further sends and receives on the socket without
// releasing the descriptor. Errors are ignored: the peer may already be
// gone, and teardown proceeds regardless.
func (c *ClientConn) Shutdown() {
	raw, err := c.conn.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.Shutdown(int(fd), unix.SHUT_RDWR)
	})
}

// Close closes the connection.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
