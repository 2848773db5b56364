package wire

import (
	"testing"
)

func TestMessageTypeString(t *testing.T) {
	tests := []struct {
		mt   MessageType
		want string
	}{
		{MessageTypeInit, "INIT"},
		{MessageTypeAck, "ACK"},
		{MessageTypeReconfigure, "RECONFIGURE"},
		{MessageTypeKick, "KICK"},
		{MessageTypeUnknown, "UNKNOWN"},
		{MessageType(200), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.mt.String(); got != tt.want {
			t.Errorf("MessageType(%d).String() = %q, want %q", tt.mt, got, tt.want)
		}
	}
}

func TestMessageTypeIsValid(t *testing.T) {
	for _, mt := range []MessageType{MessageTypeInit, MessageTypeAck, MessageTypeReconfigure, MessageTypeKick} {
		if !mt.IsValid() {
			t.Errorf("%s should be valid", mt)
		}
	}
	if MessageTypeUnknown.IsValid() {
		t.Error("unknown type should not be valid")
	}
	if MessageType(42).IsValid() {
		t.Error("undefined type should not be valid")
	}
}

func TestAckStatusString(t *testing.T) {
	tests := []struct {
		st   AckStatus
		want string
	}{
		{AckStatusOK, "OK"},
		{AckStatusMapFailed, "MAP_FAILED"},
		{AckStatusRejected, "REJECTED"},
		{AckStatus(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.st.String(); got != tt.want {
			t.Errorf("AckStatus(%d).String() = %q, want %q", tt.st, got, tt.want)
		}
	}
}
