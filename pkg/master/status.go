package master

import (
	"fmt"
	"runtime"
	"syscall"
	"time"

	"sockboss/pkg/codec"
	"sockboss/pkg/rendezvous"
)

func (m *Master) rendezvousStatusName() string   { return rendezvous.StatusFileName }
func (m *Master) rendezvousShutdownName() string { return rendezvous.ShutdownFileName }

// statusRow builds the master's own status row ("id": "M", per §6).
func (m *Master) statusRow() codec.StatusRow {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	// ru_maxrss is the peak resident set size, in kilobytes on Linux.
	var ru syscall.Rusage
	_ = syscall.Getrusage(syscall.RUSAGE_SELF, &ru)

	return codec.StatusRow{
		ID:          "M",
		Listen:      "N/A",
		Name:        m.cfg.Name,
		Memory:      fmt.Sprintf("%.2fM", float64(mem.Alloc)/1024/1024),
		PeakMemory:  fmt.Sprintf("%.2fM", float64(ru.Maxrss)/1024),
		StartTime:   fmt.Sprintf("(0) %s", humanizeUptime(time.Since(m.startTime))),
		Connections: "N/A",
		Timers:      0,
	}
}

func humanizeUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mn := d / time.Minute
	d -= mn * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, mn, s)
}
