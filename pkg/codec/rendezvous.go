package codec

// StatusRow is the JSON shape written under a worker's (or the master's own)
// hash file and the shape the Controller's status table renders. Field names
// and formatting match the schema in the external-interfaces section
// exactly: memory/peak_memory carry the "M" suffix already baked in, and
// start_time is pre-formatted as "(<restart_count>) <uptime>".
type StatusRow struct {
	ID          string `json:"id"`
	Listen      string `json:"listen"`
	Name        string `json:"name"`
	Memory      string `json:"memory"`
	PeakMemory  string `json:"peak_memory"`
	StartTime   string `json:"start_time"`
	Connections string `json:"connections"`
	Timers      int    `json:"timers"`
}

// HashList is the payload of status.workerman (master hash first, then each
// worker hash) and of shutdown.workerman (worker hashes only).
type HashList []string

// PidFile is the payload of process.pid: the master's decimal pid. Modeled
// as its own type only so rendezvous.go's generic JSON helpers have a named
// target; on the wire it's just a JSON number.
type PidFile int

// RestartTimestamp is the payload of restart.workerman: a unix timestamp
// written after a reload completes.
type RestartTimestamp int64
