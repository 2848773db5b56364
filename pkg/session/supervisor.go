package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/netipc-protocol/netipc-go/pkg/device"
	"github.com/netipc-protocol/netipc-go/pkg/guestmem"
	"github.com/netipc-protocol/netipc-go/pkg/log"
	"github.com/netipc-protocol/netipc-go/pkg/transport"
)

// Supervisor errors.
var (
	ErrSupervisorClosed = errors.New("supervisor closed")
	ErrAlreadyStarted   = errors.New("supervisor already started")
)

// Config configures a session supervisor.
type Config struct {
	// SocketPath is the peer's Unix socket path.
	SocketPath string

	// NodeID identifies this device node to the peer.
	NodeID uint32

	// RetryInterval is the fixed delay between reconnection attempts
	// (default: 1s). The interval is constant; there is no backoff.
	RetryInterval time.Duration

	// ConnectTimeout bounds the dial and each handshake step
	// (default: 10s).
	ConnectTimeout time.Duration

	// MaxMessageSize is the maximum wire message size (default: 4KB).
	MaxMessageSize uint32

	// LowMemoryLimit overrides the below-4G boundary advertised in the
	// init message; zero keeps the memory descriptor's value.
	LowMemoryLimit uint32

	// Logger is the runtime logger (default: slog.Default()).
	Logger *slog.Logger

	// ProtocolLogger captures protocol events. Nil disables capture.
	ProtocolLogger log.Logger
}

// dispatchFailure is posted by the dispatcher goroutine when the read
// path fails. The generation lets the supervisor ignore failures from
// connections it has already replaced.
type dispatchFailure struct {
	gen uint64
	err error
}

// Supervisor owns one session: its endpoint, guest memory descriptor,
// retry timer, and dispatcher. All session state is mutated by the
// supervisor goroutine (and by Close); external readers use the
// accessor methods.
type Supervisor struct {
	mu sync.RWMutex

	state     State
	linkUp    bool
	sessionID string

	cfg    Config
	port   device.Port
	mem    guestmem.Descriptor
	client *transport.Client

	endpoint   *Endpoint
	dispatcher *Dispatcher
	retry      *RetryPolicy

	// gen counts successful handshakes. Touched only by the supervisor
	// goroutine.
	gen    uint64
	failCh chan dispatchFailure

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	logger *slog.Logger

	// Callbacks
	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func(err error)
	onRetry        func(attempt int, delay time.Duration)
}

// New creates a supervisor for the device behind port, sharing the
// memory region located by provider.
//
// Provider failure is fatal: a session that cannot describe guest
// memory can never hand the peer anything to map, so the error is
// returned once and not retried.
func New(cfg Config, port device.Port, provider guestmem.Provider) (*Supervisor, error) {
	if cfg.SocketPath == "" {
		return nil, errors.New("socket path is required")
	}
	if port == nil {
		return nil, errors.New("device port is required")
	}
	if provider == nil {
		return nil, errors.New("memory provider is required")
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mem, err := provider.MemoryDescriptor()
	if err != nil {
		cfg.Logger.Error("failed to locate guest memory region", "error", err)
		return nil, fmt.Errorf("failed to locate guest memory region: %w", err)
	}
	if err := mem.Validate(); err != nil {
		mem.Close()
		cfg.Logger.Error("unusable guest memory descriptor", "error", err)
		return nil, fmt.Errorf("unusable guest memory descriptor: %w", err)
	}
	if cfg.LowMemoryLimit != 0 {
		mem.LowMemLimit = cfg.LowMemoryLimit
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Supervisor{
		state:  StateDisconnected,
		cfg:    cfg,
		port:   port,
		mem:    mem,
		client: transport.NewClient(transport.ClientConfig{
			MaxMessageSize: cfg.MaxMessageSize,
			ConnectTimeout: cfg.ConnectTimeout,
		}),
		endpoint: NewEndpoint(cfg.SocketPath),
		retry:    NewRetryPolicy(cfg.RetryInterval),
		failCh:   make(chan dispatchFailure, 1),
		ctx:      ctx,
		cancel:   cancel,
		logger:   cfg.Logger,
	}, nil
}

// Start arms the retry timer and launches the supervisor goroutine.
// The first connection attempt happens one retry interval after Start.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSupervisorClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	return nil
}

// run is the supervisor goroutine: the single owner of session state
// transitions, driven by timer fires and dispatch failures.
func (s *Supervisor) run() {
	defer s.wg.Done()

	timer := time.NewTimer(s.scheduleRetry())
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-timer.C:
			if !s.attempt() {
				timer.Reset(s.scheduleRetry())
			}

		case f := <-s.failCh:
			if s.handleDispatchFailure(f) {
				timer.Reset(s.scheduleRetry())
			}
		}
	}
}

// scheduleRetry advances the retry policy and returns the delay before
// the next attempt.
func (s *Supervisor) scheduleRetry() time.Duration {
	delay := s.retry.Next()

	s.mu.RLock()
	cb := s.onRetry
	s.mu.RUnlock()
	if cb != nil {
		cb(s.retry.Attempts(), delay)
	}

	return delay
}

// attempt performs one full connection attempt. Returns true if the
// session reached Connected; false re-arms the retry timer.
func (s *Supervisor) attempt() bool {
	s.setState(StateConnecting, "retry timer fired")

	conn, sessionID, err := s.runHandshake()
	if err != nil {
		s.logger.Info("connection attempt failed",
			"socket", s.cfg.SocketPath,
			"attempt", s.retry.Attempts(),
			"error", err)
		s.setState(StateDisconnected, "handshake failed")
		return false
	}

	// Teardown may have begun while the handshake was in flight; a
	// connection installed now would outlive Close.
	if s.State() == StateClosed {
		conn.Close()
		return true
	}

	// Rebind the session's stable endpoint to the new connection, then
	// confirm readiness for steady-state traffic.
	s.endpoint.Rebind(conn)

	reconf, err := encodeReconfigure()
	if err == nil {
		err = s.endpoint.Send(reconf)
	}
	if err != nil {
		s.logger.Info("reconfigure failed", "socket", s.cfg.SocketPath, "error", err)
		s.endpoint.Shutdown()
		s.endpoint.Close()
		s.setState(StateDisconnected, "reconfigure failed")
		return false
	}

	s.gen++
	gen := s.gen
	d := NewDispatcher(s.endpoint, s.port, func(err error) {
		s.postFailure(gen, err)
	})
	d.SetLogger(s.logger)
	d.SetProtocolLogger(s.cfg.ProtocolLogger, sessionID)

	// Installing the dispatcher and checking for a concurrent Close is
	// one atomic step; Close snapshots s.dispatcher under the same lock.
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		s.endpoint.Close()
		return true
	}
	s.dispatcher = d
	s.sessionID = sessionID
	s.mu.Unlock()

	s.setState(StateConnected, "handshake complete")
	s.setLink(true)
	s.retry.Reset()
	d.Start()

	s.mu.RLock()
	cb := s.onConnected
	s.mu.RUnlock()
	if cb != nil {
		cb()
	}

	s.logger.Info("connected to peer", "socket", s.cfg.SocketPath, "session_id", sessionID)
	return true
}

// handleDispatchFailure tears down a failed connection. Returns true
// if the retry timer should be re-armed.
func (s *Supervisor) handleDispatchFailure(f dispatchFailure) bool {
	if f.gen != s.gen {
		// Failure from a connection already replaced.
		return false
	}
	if s.State() != StateConnected {
		return false
	}

	s.logger.Info("connection to peer lost", "socket", s.cfg.SocketPath, "error", f.err)

	s.mu.Lock()
	s.dispatcher = nil
	s.mu.Unlock()

	// The read loop has already stopped; quiesce and release the
	// connection, then report link down before the timer is re-armed.
	s.endpoint.Shutdown()
	s.endpoint.Close()
	s.setLink(false)
	s.setState(StateDisconnected, "dispatch failure")

	s.mu.RLock()
	cb := s.onDisconnected
	s.mu.RUnlock()
	if cb != nil {
		cb(f.err)
	}

	return true
}

// postFailure hands a dispatch failure to the supervisor goroutine.
func (s *Supervisor) postFailure(gen uint64, err error) {
	select {
	case s.failCh <- dispatchFailure{gen: gen, err: err}:
	case <-s.ctx.Done():
	}
}

// Close shuts the supervisor down: cancels the retry timer, stops the
// dispatcher, closes the endpoint and memory descriptor, and reports
// link down. Idempotent; safe to call before any successful connection.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	oldState := s.state
	s.state = StateClosed
	d := s.dispatcher
	s.dispatcher = nil
	cb := s.onStateChange
	s.mu.Unlock()

	s.logStateChange(oldState, StateClosed, "close requested")
	if cb != nil {
		cb(oldState, StateClosed)
	}

	// Cancel first so the supervisor goroutine stops re-arming, then
	// close the endpoint to unblock the dispatcher's read.
	s.cancel()
	s.endpoint.Close()
	if d != nil {
		<-d.Done()
	}
	s.wg.Wait()

	// An attempt already past its handshake when Close began may have
	// installed a fresh connection and dispatcher while we waited. The
	// supervisor goroutine is gone now, so one more sweep is final.
	s.mu.Lock()
	late := s.dispatcher
	s.dispatcher = nil
	s.mu.Unlock()
	if late != nil {
		s.endpoint.Close()
		<-late.Done()
	}

	s.setLink(false)
	s.mem.Close()

	s.logger.Info("session closed", "socket", s.cfg.SocketPath)
	return nil
}

// setState transitions the session state, ignoring no-op transitions
// and transitions after Close.
func (s *Supervisor) setState(newState State, reason string) {
	s.mu.Lock()
	if s.state == newState || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	oldState := s.state
	s.state = newState
	cb := s.onStateChange
	s.mu.Unlock()

	s.logger.Debug("session state change",
		"old", oldState.String(),
		"new", newState.String(),
		"reason", reason)
	s.logStateChange(oldState, newState, reason)

	if cb != nil {
		cb(oldState, newState)
	}
}

// setLink reports link status to the device, exactly once per change.
// A session being torn down never reports link up.
func (s *Supervisor) setLink(up bool) {
	s.mu.Lock()
	if up && s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	if s.linkUp == up {
		s.mu.Unlock()
		return
	}
	s.linkUp = up
	s.mu.Unlock()

	s.port.SetLinkStatus(up)
}

// logStateChange records a state transition with the protocol logger.
func (s *Supervisor) logStateChange(oldState, newState State, reason string) {
	if s.cfg.ProtocolLogger == nil {
		return
	}
	s.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.SessionID(),
		Direction:  log.DirectionOut,
		Layer:      log.LayerSession,
		Category:   log.CategoryState,
		RemoteAddr: s.cfg.SocketPath,
		NodeID:     s.cfg.NodeID,
		StateChange: &log.StateChangeEvent{
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

// State returns the current session state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConnected returns true if the session is Connected.
func (s *Supervisor) IsConnected() bool {
	return s.State() == StateConnected
}

// LinkUp returns the last link status reported to the device.
func (s *Supervisor) LinkUp() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.linkUp
}

// SessionID returns the ID of the current (or most recent) connection.
func (s *Supervisor) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// RetryAttempts returns the number of timer fires since the last
// successful handshake. Callers wanting a give-up policy on an
// unreachable peer can watch this; the supervisor itself retries
// indefinitely.
func (s *Supervisor) RetryAttempts() int {
	return s.retry.Attempts()
}

// MemorySize returns the size of the shared guest memory region.
func (s *Supervisor) MemorySize() uint64 {
	return s.mem.Size
}

// OnStateChange sets a callback for state changes.
func (s *Supervisor) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnConnected sets a callback for successful connection.
func (s *Supervisor) OnConnected(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnected = fn
}

// OnDisconnected sets a callback for connection loss.
func (s *Supervisor) OnDisconnected(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnected = fn
}

// OnRetry sets a callback invoked when the retry timer is armed.
func (s *Supervisor) OnRetry(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRetry = fn
}
