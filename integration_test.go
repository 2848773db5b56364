package netipc_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/netipc-protocol/netipc-go/internal/peertest"
	"github.com/netipc-protocol/netipc-go/pkg/guestmem"
	"github.com/netipc-protocol/netipc-go/pkg/log"
	"github.com/netipc-protocol/netipc-go/pkg/session"
	"github.com/netipc-protocol/netipc-go/pkg/wire"
)

const (
	e2eRetryInterval = 25 * time.Millisecond
	e2eTimeout       = 5 * time.Second
)

// recordingPort records link transitions and queue notifications.
type recordingPort struct {
	mu    sync.Mutex
	links []bool
	kicks []uint16
}

func (p *recordingPort) SetLinkStatus(up bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.links = append(p.links, up)
}

func (p *recordingPort) NotifyQueue(index uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kicks = append(p.kicks, index)
}

func (p *recordingPort) linkEvents() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.links...)
}

func (p *recordingPort) queues() []uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint16(nil), p.kicks...)
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(e2eTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startSession(t *testing.T, socketPath string, protocolLogger log.Logger) (*session.Supervisor, *recordingPort) {
	t.Helper()

	port := &recordingPort{}
	sup, err := session.New(session.Config{
		SocketPath:     socketPath,
		NodeID:         7,
		RetryInterval:  e2eRetryInterval,
		ConnectTimeout: time.Second,
		ProtocolLogger: protocolLogger,
	}, port, guestmem.MemfdProvider{Size: 1 << 20})
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	t.Cleanup(func() { sup.Close() })

	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return sup, port
}

// TestE2E_SessionLifecycle drives a full session: handshake with memory
// fd transfer, link up, kick delivery, peer crash, and reconnection.
func TestE2E_SessionLifecycle(t *testing.T) {
	peer, err := peertest.New(filepath.Join(t.TempDir(), "peer.sock"))
	if err != nil {
		t.Fatalf("peertest.New failed: %v", err)
	}
	defer peer.Close()

	sup, port := startSession(t, peer.SocketPath(), nil)

	// Handshake: init carries the node ID and memory description, the
	// region's fd arrives via SCM_RIGHTS, reconfigure completes it.
	sess, err := peer.WaitConnected(e2eTimeout)
	if err != nil {
		t.Fatalf("WaitConnected failed: %v", err)
	}
	waitUntil(t, sup.IsConnected, "session never connected")

	if sess.Init.NodeID != 7 {
		t.Errorf("init node ID = %d, want 7", sess.Init.NodeID)
	}
	if sess.Init.MemorySize != 1<<20 {
		t.Errorf("init memory size = %d, want %d", sess.Init.MemorySize, 1<<20)
	}
	if len(sess.MemoryFDs) != 1 {
		t.Fatalf("received %d memory fds, want 1", len(sess.MemoryFDs))
	}
	if !sess.ReconfigureSeen {
		t.Error("peer never saw reconfigure")
	}

	// Steady state: kicks flow to the device without state changes.
	for _, queue := range []uint16{0, 1, 0} {
		if err := peer.SendKick(queue); err != nil {
			t.Fatalf("SendKick failed: %v", err)
		}
	}
	waitUntil(t, func() bool { return len(port.queues()) == 3 }, "kicks not delivered")
	if got := port.queues(); got[0] != 0 || got[1] != 1 || got[2] != 0 {
		t.Errorf("queues = %v, want [0 1 0]", got)
	}
	if sup.State() != session.StateConnected {
		t.Errorf("state = %s after kicks, want CONNECTED", sup.State())
	}

	// Peer crash: link drops once, then the client reconnects on its
	// own and the link comes back.
	if err := peer.DropConnection(); err != nil {
		t.Fatalf("DropConnection failed: %v", err)
	}
	if err := peer.WaitHandshakes(2, e2eTimeout); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	waitUntil(t, sup.IsConnected, "session never reconnected")

	links := port.linkEvents()
	want := []bool{true, false, true}
	if len(links) != len(want) {
		t.Fatalf("link events = %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("link events = %v, want %v", links, want)
		}
	}
}

// TestE2E_RetryUntilPeerAppears starts the client before the peer
// exists and verifies it connects once the socket shows up.
func TestE2E_RetryUntilPeerAppears(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "late.sock")

	sup, port := startSession(t, socketPath, nil)

	// Let several attempts fail against the missing socket.
	waitUntil(t, func() bool { return sup.RetryAttempts() >= 3 }, "no retry attempts")
	if len(port.linkEvents()) != 0 {
		t.Fatalf("link events before any connection: %v", port.linkEvents())
	}

	peer, err := peertest.New(socketPath)
	if err != nil {
		t.Fatalf("peertest.New failed: %v", err)
	}
	defer peer.Close()

	if err := peer.WaitHandshakes(1, e2eTimeout); err != nil {
		t.Fatalf("client never connected to late peer: %v", err)
	}
	waitUntil(t, sup.IsConnected, "session never connected")
}

// TestE2E_ProtocolLogCapture runs a session with a file logger attached
// and verifies the captured events can be read back and filtered.
func TestE2E_ProtocolLogCapture(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "session.nlog")

	fileLogger, err := log.NewFileLogger(logPath)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	peer, err := peertest.New(filepath.Join(dir, "peer.sock"))
	if err != nil {
		t.Fatalf("peertest.New failed: %v", err)
	}
	defer peer.Close()

	sup, port := startSession(t, peer.SocketPath(), fileLogger)

	if err := peer.WaitHandshakes(1, e2eTimeout); err != nil {
		t.Fatalf("WaitHandshakes failed: %v", err)
	}
	waitUntil(t, sup.IsConnected, "session never connected")

	if err := peer.SendKick(4); err != nil {
		t.Fatalf("SendKick failed: %v", err)
	}
	waitUntil(t, func() bool { return len(port.queues()) == 1 }, "kick not delivered")

	sup.Close()
	if err := fileLogger.Close(); err != nil {
		t.Fatalf("closing file logger: %v", err)
	}

	// The log must contain the outgoing init, the incoming ack, the
	// incoming kick, and the state transitions around them.
	reader, err := log.NewReader(logPath)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var sawInit, sawAck, sawKick, sawConnected bool
	for {
		event, err := reader.Next()
		if err != nil {
			break
		}
		if event.Message != nil {
			switch event.Message.Type {
			case wire.MessageTypeInit:
				sawInit = sawInit || event.Direction == log.DirectionOut
			case wire.MessageTypeAck:
				sawAck = sawAck || event.Direction == log.DirectionIn
			case wire.MessageTypeKick:
				sawKick = sawKick || (event.Message.Queue != nil && *event.Message.Queue == 4)
			}
		}
		if event.StateChange != nil && event.StateChange.NewState == "CONNECTED" {
			sawConnected = true
		}
	}

	if !sawInit {
		t.Error("log missing outgoing init")
	}
	if !sawAck {
		t.Error("log missing incoming ack")
	}
	if !sawKick {
		t.Error("log missing kick for queue 4")
	}
	if !sawConnected {
		t.Error("log missing CONNECTED state change")
	}
}

// TestE2E_RejectedHandshakeKeepsRetrying verifies that a peer refusing
// the init does not wedge the client.
func TestE2E_RejectedHandshakeKeepsRetrying(t *testing.T) {
	peer, err := peertest.New(filepath.Join(t.TempDir(), "peer.sock"))
	if err != nil {
		t.Fatalf("peertest.New failed: %v", err)
	}
	defer peer.Close()
	peer.SetAckStatus(wire.AckStatusMapFailed)

	sup, _ := startSession(t, peer.SocketPath(), nil)

	waitUntil(t, func() bool { return sup.RetryAttempts() >= 2 }, "client stopped retrying")
	if sup.IsConnected() {
		t.Fatal("client connected despite rejected handshake")
	}

	peer.SetAckStatus(wire.AckStatusOK)
	if err := peer.WaitHandshakes(1, e2eTimeout); err != nil {
		t.Fatalf("client never recovered: %v", err)
	}
	waitUntil(t, sup.IsConnected, "session never connected after recovery")
}
