package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/netipc-protocol/netipc-go/pkg/log"
)

func TestFrameWriterReader(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{
			name:    "small message",
			payload: []byte("hello"),
		},
		{
			name:    "medium message",
			payload: bytes.Repeat([]byte("x"), 1000),
		},
		{
			name:    "max size message",
			payload: bytes.Repeat([]byte("y"), DefaultMaxMessageSize),
		},
		{
			name:    "single byte",
			payload: []byte{0x42},
		},
		{
			name:    "binary data",
			payload: []byte{0x00, 0xFF, 0x7F, 0x80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)

			// Write frame
			writer := NewFrameWriter(buf)
			if err := writer.WriteFrame(tt.payload); err != nil {
				t.Fatalf("WriteFrame failed: %v", err)
			}

			// Check frame size
			expectedSize := LengthPrefixSize + len(tt.payload)
			if buf.Len() != expectedSize {
				t.Errorf("frame size = %d, want %d", buf.Len(), expectedSize)
			}

			// Read frame
			reader := NewFrameReader(buf)
			got, err := reader.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame failed: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d bytes", len(got), len(tt.payload))
			}
		})
	}
}

func TestFrameWriterRejectsEmpty(t *testing.T) {
	writer := NewFrameWriter(new(bytes.Buffer))
	if err := writer.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("WriteFrame(nil) = %v, want ErrMessageEmpty", err)
	}
}

func TestFrameWriterRejectsOversized(t *testing.T) {
	writer := NewFrameWriterWithMaxSize(new(bytes.Buffer), 16)
	payload := bytes.Repeat([]byte("z"), 17)
	if err := writer.WriteFrame(payload); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("WriteFrame oversized = %v, want ErrMessageTooLarge", err)
	}
}

func TestFrameReaderRejectsOversized(t *testing.T) {
	buf := new(bytes.Buffer)

	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], 100)
	buf.Write(lengthBuf[:])
	buf.Write(bytes.Repeat([]byte("a"), 100))

	reader := NewFrameReaderWithMaxSize(buf, 16)
	if _, err := reader.ReadFrame(); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ReadFrame oversized = %v, want ErrMessageTooLarge", err)
	}
}

func TestFrameReaderTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "truncated prefix",
			data: []byte{0x00, 0x00},
			want: ErrFrameTruncated,
		},
		{
			name: "truncated payload",
			data: []byte{0x00, 0x00, 0x00, 0x08, 0x01, 0x02},
			want: ErrFrameTruncated,
		},
		{
			name: "empty stream",
			data: nil,
			want: io.EOF,
		},
		{
			name: "zero length",
			data: []byte{0x00, 0x00, 0x00, 0x00},
			want: ErrMessageEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewFrameReader(bytes.NewReader(tt.data))
			if _, err := reader.ReadFrame(); !errors.Is(err, tt.want) {
				t.Errorf("ReadFrame = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	writer := NewFrameWriter(io.Discard)

	frame, err := writer.EncodeFrame([]byte("abc"))
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if len(frame) != LengthPrefixSize+3 {
		t.Fatalf("frame length = %d, want %d", len(frame), LengthPrefixSize+3)
	}
	if binary.BigEndian.Uint32(frame[:LengthPrefixSize]) != 3 {
		t.Errorf("length prefix = %d, want 3", binary.BigEndian.Uint32(frame[:LengthPrefixSize]))
	}
	if !bytes.Equal(frame[LengthPrefixSize:], []byte("abc")) {
		t.Error("frame payload mismatch")
	}
}

// captureLogger records events for assertions.
type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(event log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureLogger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestFramerLogsFrames(t *testing.T) {
	buf := new(bytes.Buffer)
	capture := &captureLogger{}

	framer := NewFramer(buf)
	framer.SetLogger(capture, "sess-1")

	if err := framer.WriteFrame([]byte("ping")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if _, err := framer.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	if capture.count() != 2 {
		t.Fatalf("logged %d events, want 2", capture.count())
	}

	capture.mu.Lock()
	defer capture.mu.Unlock()
	if capture.events[0].Direction != log.DirectionOut {
		t.Error("first event should be outgoing")
	}
	if capture.events[1].Direction != log.DirectionIn {
		t.Error("second event should be incoming")
	}
	for _, e := range capture.events {
		if e.SessionID != "sess-1" {
			t.Errorf("event session ID = %q, want sess-1", e.SessionID)
		}
		if e.Frame == nil || e.Frame.Size != FrameSize(4) {
			t.Error("event missing frame payload details")
		}
	}
}
