package log

// Logger consumes NETIPC protocol events. When capture is enabled the
// transport, session, and wire layers call Log on every frame, message,
// and state transition; a nil logger field at the call site disables
// capture entirely.
type Logger interface {
	// Log records one event. Implementations must tolerate concurrent
	// calls from the framer, the dispatcher, and the supervisor, and
	// should return quickly: a slow logger stalls the read path.
	Log(event Event)
}

// NoopLogger discards every event. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
