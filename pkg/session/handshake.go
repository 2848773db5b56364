package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/netipc-protocol/netipc-go/pkg/log"
	"github.com/netipc-protocol/netipc-go/pkg/transport"
	"github.com/netipc-protocol/netipc-go/pkg/wire"
)

// runHandshake performs the exchange that upgrades a bare socket into a
// usable channel: dial, send init (memory fd via SCM_RIGHTS), wait for
// the peer's ack. Each step failing fails the whole attempt; the caller
// rebinds the endpoint and sends the reconfigure message.
//
// Returns the handshaked connection and the session ID assigned to this
// attempt.
func (s *Supervisor) runHandshake() (*transport.ClientConn, string, error) {
	sessionID := uuid.NewString()

	conn, err := s.client.Connect(s.ctx, s.cfg.SocketPath)
	if err != nil {
		return nil, "", fmt.Errorf("connect to %s failed: %w", s.cfg.SocketPath, err)
	}
	conn.SetLogger(s.cfg.ProtocolLogger, sessionID)

	s.setState(StateHandshaking, "dialed peer")

	init := wire.NewInit(s.cfg.NodeID, s.mem.Size, s.mem.LowMemLimit)
	payload, err := wire.EncodeInit(init)
	if err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("encode init failed: %w", err)
	}

	if err := conn.SendWithRights(payload, s.mem.FD()); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("send init failed: %w", err)
	}
	s.logInit(sessionID, init)

	// The ack wait honors the supervisor context so Close interrupts an
	// in-flight handshake instead of waiting out the timeout.
	ackData, err := conn.ReceiveContext(s.ctx, s.cfg.ConnectTimeout)
	if err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("receive ack failed: %w", err)
	}

	ack, err := wire.DecodeAck(ackData)
	if err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("decode ack failed: %w", err)
	}
	s.logAck(sessionID, ack)

	if !ack.OK() {
		conn.Close()
		return nil, "", fmt.Errorf("peer rejected init: %s", ack.Status)
	}

	return conn, sessionID, nil
}

// encodeReconfigure encodes the no-payload reconfigure message.
func encodeReconfigure() ([]byte, error) {
	return wire.EncodeReconfigure()
}

// logInit records the outgoing init with the protocol logger.
func (s *Supervisor) logInit(sessionID string, init *wire.Init) {
	if s.cfg.ProtocolLogger == nil {
		return
	}
	size := init.MemorySize
	s.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  sessionID,
		Direction:  log.DirectionOut,
		Layer:      log.LayerWire,
		Category:   log.CategoryMessage,
		RemoteAddr: s.cfg.SocketPath,
		NodeID:     s.cfg.NodeID,
		Message: &log.MessageEvent{
			Type:       wire.MessageTypeInit,
			MemorySize: &size,
		},
	})
}

// logAck records the incoming ack with the protocol logger.
func (s *Supervisor) logAck(sessionID string, ack *wire.Ack) {
	if s.cfg.ProtocolLogger == nil {
		return
	}
	status := ack.Status
	s.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  sessionID,
		Direction:  log.DirectionIn,
		Layer:      log.LayerWire,
		Category:   log.CategoryMessage,
		RemoteAddr: s.cfg.SocketPath,
		NodeID:     s.cfg.NodeID,
		Message: &log.MessageEvent{
			Type:   wire.MessageTypeAck,
			Status: &status,
		},
	})
}
