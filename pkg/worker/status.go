package worker

import (
	"fmt"
	"runtime"
	"syscall"
	"time"

	"sockboss/pkg/codec"
)

// StatusRow builds the §6 status-row payload for this worker: memory/
// peak_memory in MB with two decimals, start_time formatted as
// "(<restart_count>) <uptime>", connections as "<active>/<total>".
func (w *Worker) StatusRow(active int, total uint64, timers int) codec.StatusRow {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	// ru_maxrss is the peak resident set size, in kilobytes on Linux.
	var ru syscall.Rusage
	_ = syscall.Getrusage(syscall.RUSAGE_SELF, &ru)

	return codec.StatusRow{
		ID:          fmt.Sprintf("%d", w.ID),
		Listen:      w.Listener.DisplayAddress(),
		Name:        w.Listener.Name,
		Memory:      humanizeMB(mem.Alloc),
		PeakMemory:  humanizeMB(uint64(ru.Maxrss) * 1024),
		StartTime:   fmt.Sprintf("(%d) %s", w.RestartCount, humanizeUptime(time.Since(w.StartTime))),
		Connections: fmt.Sprintf("%d/%d", active, total),
		Timers:      timers,
	}
}

func humanizeMB(bytes uint64) string {
	return fmt.Sprintf("%.2fM", float64(bytes)/1024/1024)
}

func humanizeUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
