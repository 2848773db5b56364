package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/netipc-protocol/netipc-go/pkg/device"
	"github.com/netipc-protocol/netipc-go/pkg/log"
	"github.com/netipc-protocol/netipc-go/pkg/wire"
)

// Dispatcher owns the steady-state read path of a connected session.
// It receives exactly one message per loop iteration and routes it:
// kicks are forwarded synchronously to the device port, unrecognized
// kinds are logged and ignored, and any receive error ends the loop
// and reports failure exactly once.
type Dispatcher struct {
	endpoint  *Endpoint
	port      device.Port
	onFailure func(err error)

	logger         *slog.Logger
	protocolLogger log.Logger
	sessionID      string

	failOnce sync.Once
	done     chan struct{}
}

// NewDispatcher creates a dispatcher for the given endpoint. onFailure
// is invoked at most once, from the dispatcher goroutine, when a
// receive fails or the peer closes the channel.
func NewDispatcher(endpoint *Endpoint, port device.Port, onFailure func(err error)) *Dispatcher {
	return &Dispatcher{
		endpoint:  endpoint,
		port:      port,
		onFailure: onFailure,
		logger:    slog.Default(),
		done:      make(chan struct{}),
	}
}

// SetLogger configures the runtime logger.
func (d *Dispatcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// SetProtocolLogger configures protocol event capture.
func (d *Dispatcher) SetProtocolLogger(logger log.Logger, sessionID string) {
	d.protocolLogger = logger
	d.sessionID = sessionID
}

// Start launches the read loop goroutine.
func (d *Dispatcher) Start() {
	go d.loop()
}

// Done returns a channel closed when the read loop has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// loop receives and routes messages until the connection fails.
func (d *Dispatcher) loop() {
	defer close(d.done)

	for {
		data, err := d.endpoint.Receive(0)
		if err != nil {
			d.fail(err)
			return
		}
		d.dispatch(data)
	}
}

// dispatch routes a single received message.
func (d *Dispatcher) dispatch(data []byte) {
	msgType, err := wire.PeekMessageType(data)
	if err != nil {
		// Malformed payload is ignorable: the frame itself was intact,
		// so the channel is still usable.
		d.logger.Warn("dropping malformed message", "error", err)
		d.logError("dispatch", err)
		return
	}

	switch msgType {
	case wire.MessageTypeKick:
		kick, err := wire.DecodeKick(data)
		if err != nil {
			d.logger.Warn("dropping undecodable kick", "error", err)
			d.logError("decode kick", err)
			return
		}
		d.logMessage(kick.Queue)
		d.port.NotifyQueue(kick.Queue)

	default:
		d.logger.Warn("ignoring unexpected message type", "type", msgType.String())
	}
}

// fail reports the receive error exactly once.
func (d *Dispatcher) fail(err error) {
	d.failOnce.Do(func() {
		d.logError("receive", err)
		if d.onFailure != nil {
			d.onFailure(err)
		}
	})
}

// logMessage records a decoded kick with the protocol logger.
func (d *Dispatcher) logMessage(queue uint16) {
	if d.protocolLogger == nil {
		return
	}
	q := queue
	d.protocolLogger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: d.sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:  wire.MessageTypeKick,
			Queue: &q,
		},
	})
}

// logError records a dispatch error with the protocol logger.
func (d *Dispatcher) logError(context string, err error) {
	if d.protocolLogger == nil {
		return
	}
	d.protocolLogger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: d.sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: context,
		},
	})
}
