package log

// MultiLogger fans one event stream out to several loggers, typically a
// FileLogger capture plus a SlogAdapter for live console output.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger forwarding to all given loggers.
// Nil entries are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Log forwards the event to every logger in order.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
