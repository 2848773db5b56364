package log

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/netipc-protocol/netipc-go/pkg/wire"
)

func sampleEvent(sessionID string, category Category) Event {
	queue := uint16(3)
	e := Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  category,
	}
	switch category {
	case CategoryMessage:
		e.Message = &MessageEvent{Type: wire.MessageTypeKick, Queue: &queue}
	case CategoryState:
		e.StateChange = &StateChangeEvent{OldState: "DISCONNECTED", NewState: "CONNECTED"}
	case CategoryError:
		e.Error = &ErrorEventData{Layer: LayerWire, Message: "boom"}
	}
	return e
}

func TestEncodeDecodeEvent(t *testing.T) {
	event := sampleEvent("abc", CategoryMessage)

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if got.SessionID != "abc" {
		t.Errorf("SessionID = %q, want abc", got.SessionID)
	}
	if got.Message == nil || got.Message.Type != wire.MessageTypeKick {
		t.Error("message payload lost in round trip")
	}
	if got.Message.Queue == nil || *got.Message.Queue != 3 {
		t.Error("queue index lost in round trip")
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.nlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.Log(sampleEvent("s1", CategoryMessage))
	logger.Log(sampleEvent("s2", CategoryState))
	logger.Log(sampleEvent("s1", CategoryError))

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Close is idempotent and later Log calls are ignored.
	if err := logger.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	logger.Log(sampleEvent("s3", CategoryMessage))

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var count int
	for {
		_, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("read %d events, want 3", count)
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.nlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(sampleEvent("s1", CategoryMessage))
	logger.Log(sampleEvent("s2", CategoryState))
	logger.Log(sampleEvent("s1", CategoryError))
	logger.Close()

	reader, err := NewFilteredReader(path, Filter{SessionID: "s1"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var got []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, event)
	}

	if len(got) != 2 {
		t.Fatalf("filter returned %d events, want 2", len(got))
	}
	for _, e := range got {
		if e.SessionID != "s1" {
			t.Errorf("filtered event has session %q", e.SessionID)
		}
	}
}

func TestFilterCriteria(t *testing.T) {
	in := DirectionIn
	out := DirectionOut
	stateCat := CategoryState

	event := sampleEvent("s1", CategoryState)

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty matches", Filter{}, true},
		{"session match", Filter{SessionID: "s1"}, true},
		{"session mismatch", Filter{SessionID: "other"}, false},
		{"direction match", Filter{Direction: &in}, true},
		{"direction mismatch", Filter{Direction: &out}, false},
		{"category match", Filter{Category: &stateCat}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.matches(event); got != tt.want {
				t.Errorf("matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMultiLogger(t *testing.T) {
	var a, b countingLogger
	multi := NewMultiLogger(&a, &b)

	multi.Log(sampleEvent("s1", CategoryMessage))
	multi.Log(sampleEvent("s1", CategoryError))

	if a.count != 2 || b.count != 2 {
		t.Errorf("counts = %d/%d, want 2/2", a.count, b.count)
	}
}

type countingLogger struct {
	count int
}

func (c *countingLogger) Log(Event) { c.count++ }

func TestSlogAdapter(t *testing.T) {
	buf := new(bytes.Buffer)
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(sampleEvent("s1", CategoryMessage))

	out := buf.String()
	if out == "" {
		t.Fatal("adapter produced no output")
	}
	for _, want := range []string{"session_id=s1", "msg_type=KICK", "queue=3"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestNoopLogger(t *testing.T) {
	// Must not panic and must satisfy the interface as a zero value.
	var l NoopLogger
	l.Log(sampleEvent("s1", CategoryMessage))
}
