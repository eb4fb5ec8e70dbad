package codec

import "testing"

func TestDeadWorkerHandlerString(t *testing.T) {
	cases := []struct {
		h    DeadWorkerHandler
		want string
	}{
		{DeadWorkerNone, "None"},
		{DeadWorkerStop, "Stop"},
		{DeadWorkerReload, "Reload"},
		{DeadWorkerHandler(99), "None"},
	}
	for _, c := range cases {
		if got := c.h.String(); got != c.want {
			t.Errorf("DeadWorkerHandler(%d).String() = %q, want %q", c.h, got, c.want)
		}
	}
}

func TestProcessStateValuesDistinct(t *testing.T) {
	states := []ProcessState{
		ProcessStandby, ProcessStarting, ProcessRunning,
		ProcessStopping, ProcessStopped, ProcessFailed,
	}
	seen := make(map[ProcessState]bool)
	for _, s := range states {
		if seen[s] {
			t.Errorf("duplicate ProcessState value %q", s)
		}
		seen[s] = true
	}
}
