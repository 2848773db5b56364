package session

import (
	"testing"
	"time"
)

func TestRetryPolicyConstantInterval(t *testing.T) {
	r := NewRetryPolicy(250 * time.Millisecond)

	// The delay never grows and never shrinks across attempts.
	for i := 0; i < 10; i++ {
		if got := r.Next(); got != 250*time.Millisecond {
			t.Errorf("attempt %d: Next() = %v, want 250ms", i, got)
		}
	}
	if r.Attempts() != 10 {
		t.Errorf("Attempts() = %d, want 10", r.Attempts())
	}
}

func TestRetryPolicyDefaultInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		r := NewRetryPolicy(interval)
		if got := r.Interval(); got != DefaultRetryInterval {
			t.Errorf("NewRetryPolicy(%v).Interval() = %v, want %v", interval, got, DefaultRetryInterval)
		}
	}
}

func TestRetryPolicyReset(t *testing.T) {
	r := NewRetryPolicy(time.Second)

	for i := 0; i < 5; i++ {
		r.Next()
	}
	if r.Attempts() != 5 {
		t.Fatalf("Attempts() = %d, want 5", r.Attempts())
	}

	r.Reset()

	if r.Attempts() != 0 {
		t.Errorf("Attempts() = %d after reset, want 0", r.Attempts())
	}
	if got := r.Next(); got != time.Second {
		t.Errorf("Next() after reset = %v, want 1s", got)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUninitialized, "UNINITIALIZED"},
		{StateDisconnected, "DISCONNECTED"},
		{StateConnecting, "CONNECTING"},
		{StateHandshaking, "HANDSHAKING"},
		{StateConnected, "CONNECTED"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
