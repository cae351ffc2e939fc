package connection

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff()

		// Base delays: 1s, 2s, 4s, ... capped at 60s.
		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			32 * time.Second,
			60 * time.Second,
			60 * time.Second,
		}

		for i, exp := range expected {
			got := b.Next()
			if base := b.Current(); base != exp {
				t.Errorf("step %d: base = %v, want %v", i, base, exp)
			}
			if got < exp || got > exp+exp/4 {
				t.Errorf("step %d: delay = %v, want within [%v, %v]", i, got, exp, exp+exp/4)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff()

		samples := make([]time.Duration, 20)
		for i := range samples {
			samples[i] = b.Peek()
		}

		distinct := map[time.Duration]bool{}
		for i, s := range samples {
			if s < time.Second || s > 1250*time.Millisecond {
				t.Errorf("sample %d: %v outside [1s, 1.25s]", i, s)
			}
			distinct[s] = true
		}
		if len(distinct) < 2 {
			t.Error("jitter produced identical samples")
		}
		if b.Attempts() != 0 {
			t.Errorf("Peek advanced the backoff: Attempts() = %d", b.Attempts())
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()
		for i := 0; i < 4; i++ {
			b.Next()
		}
		if b.Current() <= InitialBackoff {
			t.Fatalf("Current() = %v, want above %v", b.Current(), InitialBackoff)
		}

		b.Reset()

		if b.Current() != 0 {
			t.Errorf("Current() = %v after reset, want 0", b.Current())
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
		if got := b.Next(); got < InitialBackoff || got > InitialBackoff+InitialBackoff/4 {
			t.Errorf("Next() = %v after reset, want about %v", got, InitialBackoff)
		}
	})

	t.Run("Attempts", func(t *testing.T) {
		b := NewBackoff()
		for i := 1; i <= 5; i++ {
			b.Next()
			if b.Attempts() != i {
				t.Errorf("after %d calls Attempts() = %d", i, b.Attempts())
			}
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 3,
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			300 * time.Millisecond,
			500 * time.Millisecond,
			500 * time.Millisecond,
		}
		for i, exp := range expected {
			if got := b.Next(); got != exp {
				t.Errorf("step %d: got %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("InvalidConfigUsesDefaults", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    -1,
			Multiplier: 0.5,
			Jitter:     -1,
		})

		if got := b.Next(); got != InitialBackoff {
			t.Errorf("first delay = %v, want %v", got, InitialBackoff)
		}
		if got := b.Next(); got != 2*InitialBackoff {
			t.Errorf("second delay = %v, want %v", got, 2*InitialBackoff)
		}
	})
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "CLOSED"},
		{StateAwaitingConnection, "AWAITING_CONNECTION"},
		{StateChallenging, "CHALLENGING"},
		{StateAwaitingAuthentication, "AWAITING_AUTHENTICATION"},
		{StateAuthenticating, "AUTHENTICATING"},
		{StateOpen, "OPEN"},
		{StateError, "ERROR"},
		{StateReconnecting, "RECONNECTING"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}

	if n := len(States()); n != 8 {
		t.Errorf("len(States()) = %d, want 8", n)
	}
}
