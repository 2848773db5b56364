package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/netipc-protocol/netipc-go/pkg/log"
	"github.com/netipc-protocol/netipc-go/pkg/wire"
)

func TestExportJSONL(t *testing.T) {
	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	queue := uint16(2)
	events := []log.Event{
		{Timestamp: ts, SessionID: "s1", Layer: log.LayerWire, Category: log.CategoryMessage,
			Message: &log.MessageEvent{Type: wire.MessageTypeKick, Queue: &queue}},
		{Timestamp: ts, SessionID: "s2", Layer: log.LayerSession, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{NewState: "CONNECTED"}},
	}
	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("exported %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"SessionID":"s1"`) {
		t.Errorf("first line missing session ID: %s", lines[0])
	}
}

func TestExportCSV(t *testing.T) {
	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	queue := uint16(7)
	events := []log.Event{
		{Timestamp: ts, SessionID: "s1", Direction: log.DirectionIn, Layer: log.LayerWire,
			Category: log.CategoryMessage, NodeID: 42,
			Message: &log.MessageEvent{Type: wire.MessageTypeKick, Queue: &queue}},
	}
	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("exported %d lines, want 2 (header + row)", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,session_id") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	for _, want := range []string{"s1", "IN", "WIRE", "KICK", "42", "7"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row missing %q: %s", want, lines[1])
		}
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, []log.Event{{Timestamp: time.Now()}})

	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}
