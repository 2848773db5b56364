package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to a capture file as a CBOR sequence, the
// format netipc-log reads back. A single mutex serializes writers: one
// session logs from the framer, the dispatcher, and the supervisor at
// the same time.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	enc    *cbor.Encoder
	closed bool
}

// NewFileLogger opens the capture file at path, creating it with mode
// 0644 if needed. An existing file is appended to, so one capture can
// span several sessions.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	return &FileLogger{file: f, enc: NewEncoder(f)}, nil
}

// Log appends one event. Encoding errors are swallowed: capture must
// never take the session down with it.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	_ = l.enc.Encode(event)
}

// Close closes the capture file. Idempotent; events logged after Close
// are dropped.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
