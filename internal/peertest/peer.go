// Package peertest provides an in-process fake NETIPC peer for tests.
//
// The fake accepts connections on a Unix socket, performs the server
// side of the init/ack/reconfigure handshake, and can inject kicks or
// drop connections on demand. It exists only to exercise the client;
// it maps no memory and processes no packets.
package peertest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/netipc-protocol/netipc-go/pkg/transport"
	"github.com/netipc-protocol/netipc-go/pkg/wire"
)

// ErrNoSession indicates no completed handshake to operate on.
var ErrNoSession = errors.New("peertest: no established session")

// Session records one accepted connection after a completed handshake.
type Session struct {
	conn *net.UnixConn

	// Init is the decoded init message received from the client.
	Init *wire.Init

	// MemoryFDs are the descriptors received via SCM_RIGHTS.
	MemoryFDs []int

	// ReconfigureSeen is true once the reconfigure message arrived.
	ReconfigureSeen bool
}

// Peer is a fake NETIPC peer listening on a Unix socket.
type Peer struct {
	socketPath string

	mu         sync.Mutex
	ackStatus  wire.AckStatus
	ackGate    chan struct{}
	sessions   []*Session
	handshakes int
	inits      int
	closed     bool

	ln *net.UnixListener
	wg sync.WaitGroup
}

// New starts a fake peer listening at socketPath.
func New(socketPath string) (*Peer, error) {
	addr, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}

	p := &Peer{
		socketPath: socketPath,
		ackStatus:  wire.AckStatusOK,
		ln:         ln,
	}
	p.wg.Add(1)
	go p.acceptLoop()
	return p, nil
}

// SocketPath returns the listening socket path.
func (p *Peer) SocketPath() string {
	return p.socketPath
}

// SetAckStatus configures the status returned in the ack of subsequent
// handshakes.
func (p *Peer) SetAckStatus(status wire.AckStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ackStatus = status
}

// HoldAcks makes subsequent handshakes stall after the init arrives,
// leaving the client blocked on the ack until ReleaseAcks.
func (p *Peer) HoldAcks() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ackGate == nil {
		p.ackGate = make(chan struct{})
	}
}

// ReleaseAcks lets held handshakes proceed.
func (p *Peer) ReleaseAcks() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ackGate != nil {
		close(p.ackGate)
		p.ackGate = nil
	}
}

// InitsSeen returns the number of init messages received, counting
// handshakes that have not completed.
func (p *Peer) InitsSeen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inits
}

// Handshakes returns the number of completed handshakes.
func (p *Peer) Handshakes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handshakes
}

// acceptLoop accepts and serves connections until the listener closes.
func (p *Peer) acceptLoop() {
	defer p.wg.Done()

	for {
		conn, err := p.ln.AcceptUnix()
		if err != nil {
			return
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.serve(conn)
		}()
	}
}

// serve performs the server side of the handshake on one connection,
// then drains incoming frames until the client goes away.
func (p *Peer) serve(conn *net.UnixConn) {
	payload, fds, err := readFrameWithRights(conn)
	if err != nil {
		conn.Close()
		return
	}

	init, err := wire.DecodeInit(payload)
	if err != nil {
		conn.Close()
		return
	}

	p.mu.Lock()
	p.inits++
	status := p.ackStatus
	gate := p.ackGate
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}

	writer := transport.NewFrameWriter(conn)
	ackData, err := wire.EncodeAck(wire.NewAck(status))
	if err != nil {
		conn.Close()
		return
	}
	if err := writer.WriteFrame(ackData); err != nil {
		conn.Close()
		return
	}
	if status != wire.AckStatusOK {
		conn.Close()
		return
	}

	sess := &Session{
		conn:      conn,
		Init:      init,
		MemoryFDs: fds,
	}

	reader := transport.NewFrameReader(conn)
	reconf, err := reader.ReadFrame()
	if err != nil {
		conn.Close()
		return
	}
	if t, err := wire.PeekMessageType(reconf); err != nil || t != wire.MessageTypeReconfigure {
		conn.Close()
		return
	}
	sess.ReconfigureSeen = true

	p.mu.Lock()
	p.sessions = append(p.sessions, sess)
	p.handshakes++
	p.mu.Unlock()

	// Park until the client closes, discarding anything it sends.
	for {
		if _, err := reader.ReadFrame(); err != nil {
			return
		}
	}
}

// WaitConnected blocks until a handshake completes or the timeout
// expires, and returns the newest session.
func (p *Peer) WaitConnected(timeout time.Duration) (*Session, error) {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		n := len(p.sessions)
		var sess *Session
		if n > 0 {
			sess = p.sessions[n-1]
		}
		p.mu.Unlock()

		if sess != nil {
			return sess, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("peertest: no handshake within %v", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitInits blocks until at least n init messages have arrived,
// completed handshake or not.
func (p *Peer) WaitInits(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if p.InitsSeen() >= n {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("peertest: %d of %d inits within %v", p.InitsSeen(), n, timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitHandshakes blocks until at least n handshakes have completed.
func (p *Peer) WaitHandshakes(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if p.Handshakes() >= n {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("peertest: %d of %d handshakes within %v", p.Handshakes(), n, timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// SendKick sends a kick for the given queue on the newest session.
func (p *Peer) SendKick(queue uint16) error {
	sess := p.lastSession()
	if sess == nil {
		return ErrNoSession
	}

	data, err := wire.EncodeKick(wire.NewKick(queue))
	if err != nil {
		return err
	}
	return transport.NewFrameWriter(sess.conn).WriteFrame(data)
}

// SendRaw sends an arbitrary payload on the newest session. Used to
// exercise the client's handling of unrecognized messages.
func (p *Peer) SendRaw(payload []byte) error {
	sess := p.lastSession()
	if sess == nil {
		return ErrNoSession
	}
	return transport.NewFrameWriter(sess.conn).WriteFrame(payload)
}

// DropConnection closes the newest session's connection, simulating a
// peer crash.
func (p *Peer) DropConnection() error {
	sess := p.lastSession()
	if sess == nil {
		return ErrNoSession
	}
	return sess.conn.Close()
}

// lastSession returns the newest established session, or nil.
func (p *Peer) lastSession() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sessions) == 0 {
		return nil
	}
	return p.sessions[len(p.sessions)-1]
}

// Close stops the listener and closes all sessions.
func (p *Peer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	sessions := p.sessions
	if p.ackGate != nil {
		close(p.ackGate)
		p.ackGate = nil
	}
	p.mu.Unlock()

	p.ln.Close()
	for _, sess := range sessions {
		sess.conn.Close()
		for _, fd := range sess.MemoryFDs {
			unix.Close(fd)
		}
	}
	p.wg.Wait()
}

// readFrameWithRights reads one length-prefixed frame together with any
// SCM_RIGHTS descriptors attached to it.
func readFrameWithRights(conn *net.UnixConn) ([]byte, []int, error) {
	buf := make([]byte, transport.DefaultMaxMessageSize+transport.LengthPrefixSize)
	oob := make([]byte, unix.CmsgSpace(8*4))

	n, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, nil, err
	}
	if n < transport.LengthPrefixSize {
		return nil, nil, io.ErrUnexpectedEOF
	}

	var fds []int
	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return nil, nil, err
		}
		for _, cmsg := range cmsgs {
			got, err := unix.ParseUnixRights(&cmsg)
			if err != nil {
				continue
			}
			fds = append(fds, got...)
		}
	}

	length := int(binary.BigEndian.Uint32(buf[:transport.LengthPrefixSize]))
	if length <= 0 || length > transport.DefaultMaxMessageSize {
		return nil, fds, fmt.Errorf("peertest: bad frame length %d", length)
	}

	payload := make([]byte, length)
	copied := copy(payload, buf[transport.LengthPrefixSize:n])
	if copied < length {
		if _, err := io.ReadFull(conn, payload[copied:]); err != nil {
			return nil, fds, err
		}
	}
	return payload, fds, nil
}
