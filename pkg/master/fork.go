package master

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"sockboss/pkg/codec"
	"sockboss/pkg/worker"
)

// forkWorker re-execs the current binary as a fresh worker process bound to
// listener name, with a newly assigned id. Go cannot fork(2) without
// exec(2) once goroutines are running, so every "fork" in this package is
// actually a re-exec — the same workaround every prefork example in the
// corpus uses.
func (m *Master) forkWorker(listenerName, hash string, restartCount int) error {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.mu.Unlock()

	return m.forkWorkerPreserving(listenerName, hash, id, restartCount)
}

// forkWorkerPreserving re-execs a worker with a caller-supplied id, used
// both by forkWorker (fresh id) and revive (preserved id/hash, §4.3.2).
func (m *Master) forkWorkerPreserving(listenerName, hash string, id, restartCount int) error {
	if _, ok := m.listenerByName(listenerName); !ok {
		return fmt.Errorf("unknown listener %q", listenerName)
	}

	exe, err := os.Executable()
	if err != nil {
		return &codec.ForkError{Stage: "resolve-executable", Err: err}
	}

	// The child is told everything it needs via environment variables —
	// there is no wire protocol beyond signals and rendezvous files (§6),
	// and main.go intercepts SOCKBOSS_ROLE=worker before any CLI argument
	// parsing, so os.Args[1:] is deliberately not forwarded.
	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(),
		worker.EnvRole+"="+worker.RoleWorkerValue,
		worker.EnvWorkerID+"="+strconv.Itoa(id),
		worker.EnvWorkerHash+"="+hash,
		worker.EnvRestartCount+"="+strconv.Itoa(restartCount),
		worker.EnvOwnListener+"="+listenerName,
		worker.EnvFDListeners+"="+m.fdOrderCSV(),
		worker.EnvDaemon+"="+boolEnv(m.daemon),
		worker.EnvWorkingDir+"="+m.cfg.WorkingDir,
		worker.EnvConfigFile+"="+m.configFile,
		worker.EnvName+"="+m.cfg.Name,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: false}

	extraFiles, err := m.dupListenerFiles()
	if err != nil {
		return err
	}
	cmd.ExtraFiles = extraFiles

	if err := cmd.Start(); err != nil {
		return &codec.ForkError{Stage: "start", Err: err}
	}
	for _, f := range extraFiles {
		_ = f.Close()
	}

	rec := &WorkerRecord{
		Pid:          cmd.Process.Pid,
		ID:           id,
		ListenerName: listenerName,
		Hash:         hash,
		RestartCount: restartCount,
		StartTime:    time.Now(),
	}

	m.mu.Lock()
	m.workers[rec.Pid] = rec
	m.mu.Unlock()

	go m.waitForChild(cmd, rec.Pid)
	return nil
}

// dupListenerFiles returns one dup'd *os.File per non-reuse_port listener,
// in m.fdOrder order, for placement in exec.Cmd.ExtraFiles.
func (m *Master) dupListenerFiles() ([]*os.File, error) {
	files := make([]*os.File, 0, len(m.fdOrder))
	for _, name := range m.fdOrder {
		fl, ok := m.listenerByName(name)
		if !ok {
			continue
		}
		f, err := fl.File()
		if err != nil {
			return nil, &codec.ForkError{Stage: "dup-listener-fd:" + name, Err: err}
		}
		files = append(files, f)
	}
	return files, nil
}

func (m *Master) waitForChild(cmd *exec.Cmd, pid int) {
	err := cmd.Wait()
	ev := reapEvent{pid: pid}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				ev.exitCode = ws.ExitStatus()
				ev.signaled = ws.Signaled()
			} else {
				ev.exitCode = -1
			}
		} else {
			ev.exitCode = -1
		}
	}
	m.reapCh <- ev
}

// revive replaces a dead worker record with a freshly re-exec'd process,
// preserving id and hash (§4.3.2). incrementRestart distinguishes an
// unexpected-crash revival (restart_count increments) from a planned
// reload revival (it does not — S3 requires restart_count stay 0 across a
// plain reload).
func (m *Master) revive(old *WorkerRecord, incrementRestart bool) {
	restartCount := old.RestartCount
	if incrementRestart {
		restartCount++
	}

	if err := m.forkWorkerPreserving(old.ListenerName, old.Hash, old.ID, restartCount); err != nil {
		m.rc.Logger.Errorw("revive failed", "worker", old.ID, "error", err)
	}
}

func boolEnv(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
