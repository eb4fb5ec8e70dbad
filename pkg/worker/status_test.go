package worker

import (
	"strings"
	"testing"
	"time"

	"sockboss/pkg/listener"
)

func newTestWorker() *Worker {
	l := listener.New(listener.TransportTCP, "127.0.0.1:0", listener.ProtocolRaw, "echo", 1, false)
	w := &Worker{
		ID:           3,
		Hash:         "abc123",
		Listener:     l,
		RestartCount: 2,
		StartTime:    time.Now().Add(-90 * time.Minute),
	}
	return w
}

func TestStatusRowSchema(t *testing.T) {
	w := newTestWorker()
	row := w.StatusRow(5, 42, 1)

	if row.ID != "3" {
		t.Errorf("ID = %q, want \"3\"", row.ID)
	}
	if row.Name != "echo" {
		t.Errorf("Name = %q, want \"echo\"", row.Name)
	}
	if row.Connections != "5/42" {
		t.Errorf("Connections = %q, want \"5/42\"", row.Connections)
	}
	if !strings.HasPrefix(row.StartTime, "(2) ") {
		t.Errorf("StartTime = %q, want restart_count prefix \"(2) \"", row.StartTime)
	}
	if !strings.HasSuffix(row.Memory, "M") {
		t.Errorf("Memory = %q, want an \"M\"-suffixed value", row.Memory)
	}
	if !strings.HasSuffix(row.PeakMemory, "M") {
		t.Errorf("PeakMemory = %q, want an \"M\"-suffixed value", row.PeakMemory)
	}
	if row.Timers != 1 {
		t.Errorf("Timers = %d, want 1", row.Timers)
	}
}

func TestHumanizeUptimeFormat(t *testing.T) {
	got := humanizeUptime(90 * time.Minute)
	if got != "01:30:00" {
		t.Errorf("humanizeUptime(90m) = %q, want \"01:30:00\"", got)
	}
}

func TestHumanizeMB(t *testing.T) {
	got := humanizeMB(2 * 1024 * 1024)
	if got != "2.00M" {
		t.Errorf("humanizeMB(2MiB) = %q, want \"2.00M\"", got)
	}
}
