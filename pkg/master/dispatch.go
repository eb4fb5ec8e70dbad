package master

import (
	"os"
	"sort"
	"syscall"
	"time"

	"sockboss/pkg/codec"
)

// handleDeadWorker implements §4.3.1: branch on whether this death was
// expected, and if so, on the tagged dead-worker handler.
func (m *Master) handleDeadWorker(ev reapEvent) {
	m.mu.Lock()
	rec, known := m.workers[ev.pid]
	expect := m.expectDeadWorker
	handler := m.deadWorkerHandler
	m.mu.Unlock()

	if !known {
		m.rc.Logger.Warnw("reaped unknown pid", "pid", ev.pid)
		return
	}

	if !expect {
		// Unexpected: remove once, increment restart_count, log, revive.
		m.removeWorkerOnce(rec.Pid)
		m.rc.Logger.Errorw("worker exited unexpectedly", "worker", rec.ID, "pid", rec.Pid, "exit_code", ev.exitCode)
		m.revive(rec, true)
		return
	}

	switch handler {
	case codec.DeadWorkerStop:
		if ev.exitCode != 0 {
			m.rc.Logger.Errorw("worker exited non-zero during planned stop",
				"worker", rec.ID, "exit_code", ev.exitCode)
			_ = &codec.UnexpectedExitError{WorkerID: rec.ID, ExitStatus: ev.exitCode}
		}
		// Remove exactly once regardless of path — the design notes flag
		// the source's double-removal bug here and specify remove-once.
		m.removeWorkerOnce(rec.Pid)

		m.mu.Lock()
		empty := len(m.workers) == 0
		if empty {
			m.run = false
			m.shutdownDisabled = true
		}
		m.mu.Unlock()

	case codec.DeadWorkerReload:
		if ev.exitCode != 0 {
			m.rc.Logger.Errorw("worker exited non-zero during reload",
				"worker", rec.ID, "exit_code", ev.exitCode)
		}
		m.removeWorkerOnce(rec.Pid)
		// Reload-triggered revival does not count as a crash: restart_count
		// is left unchanged (S3 requires it stay 0 across a plain reload).
		m.revive(rec, false)

		m.mu.Lock()
		drained := len(m.workersPendingStop) == 0
		m.mu.Unlock()
		if drained {
			if err := m.rc.Rendezvous.WriteRestartTimestamp(time.Now().Unix()); err != nil {
				m.rc.Logger.Errorw("write restart.workerman failed", "error", err)
			}
		}

	default:
		m.rc.Logger.Warnw("dead worker with no handler set", "worker", rec.ID)
	}
}

// removeWorkerOnce deletes pid from both workers and workersPendingStop,
// never more than once per call regardless of which maps currently hold it
// — the fix for the design notes' flagged double-removal bug.
func (m *Master) removeWorkerOnce(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workers, pid)
	delete(m.workersPendingStop, pid)
}

// handleControlSignal implements the operator-triggered signal table from
// §4.3.3.
func (m *Master) handleControlSignal(sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	switch s {
	case syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGTSTP:
		m.stopHard(codec.DeadWorkerStop)
	case syscall.SIGQUIT:
		m.stopGraceful(codec.DeadWorkerStop)
	case syscall.SIGUSR1:
		m.reload(false)
	case syscall.SIGUSR2:
		m.reload(true)
	case syscall.SIGABRT: // SIGIOT alias
		m.collectStatus()
	}
}

// stopHard signals every worker with SIGINT and arms handleDeadWorker with
// handler: DeadWorkerStop for an operator-triggered stop, DeadWorkerReload
// when reload is driving this as its non-graceful half.
func (m *Master) stopHard(handler codec.DeadWorkerHandler) {
	m.mu.Lock()
	m.expectDeadWorker = true
	m.deadWorkerHandler = handler
	pids := m.workerPids()
	m.mu.Unlock()

	m.signalAll(pids, syscall.SIGINT)
}

// stopGraceful implements the redesigned handshake from the design notes:
// the master itself writes the hash list *and* the per-hash stub files
// before signaling, instead of sleeping 500ms for the Controller to create
// them after reading shutdown.workerman. handler is DeadWorkerStop for an
// operator-triggered stop, DeadWorkerReload when reload is driving this as
// its graceful half.
func (m *Master) stopGraceful(handler codec.DeadWorkerHandler) {
	m.mu.Lock()
	m.expectDeadWorker = true
	m.deadWorkerHandler = handler
	hashes := m.workerHashes()
	pids := m.workerPids()
	m.mu.Unlock()

	if err := m.rc.Rendezvous.WriteHashList(m.rendezvousShutdownName(), hashes); err != nil {
		m.rc.Logger.Errorw("write shutdown.workerman failed", "error", err)
	}
	for _, h := range hashes {
		if err := m.rc.Rendezvous.CreateStub(h); err != nil {
			m.rc.Logger.Errorw("create stub failed", "hash", h, "error", err)
		}
	}

	m.signalAll(pids, syscall.SIGQUIT)

	m.mu.Lock()
	for _, pid := range pids {
		if rec, ok := m.workers[pid]; ok {
			m.workersPendingStop[pid] = rec
		}
	}
	m.mu.Unlock()
}

// reload implements §4.3.3's "Reload (either mode)": snapshot workers into
// workers_pending_stop, then perform the corresponding stop with handler =
// Reload, so handleDeadWorker revives rather than retires each worker as it
// exits. The handler is passed into stopHard/stopGraceful rather than set
// here, since both of those also run for a plain stop and must not clobber
// it back to DeadWorkerStop.
func (m *Master) reload(graceful bool) {
	m.mu.Lock()
	for pid, rec := range m.workers {
		m.workersPendingStop[pid] = rec
	}
	m.mu.Unlock()

	if graceful {
		m.stopGraceful(codec.DeadWorkerReload)
	} else {
		m.stopHard(codec.DeadWorkerReload)
	}
}

func (m *Master) collectStatus() {
	m.mu.Lock()
	hashes := m.workerHashes()
	pids := m.workerPids()
	m.mu.Unlock()

	row := m.statusRow()
	if err := m.rc.Rendezvous.WriteStatusRow(m.hash, row); err != nil {
		m.rc.Logger.Errorw("write master status failed", "error", err)
		return
	}

	all := append(codec.HashList{m.hash}, hashes...)
	if err := m.rc.Rendezvous.WriteHashList(m.rendezvousStatusName(), all); err != nil {
		m.rc.Logger.Errorw("write status.workerman failed", "error", err)
		return
	}

	m.signalAll(pids, syscall.SIGABRT)
}

func (m *Master) signalAll(pids []int, sig syscall.Signal) {
	for _, pid := range pids {
		if err := syscall.Kill(pid, sig); err != nil {
			m.rc.Logger.Errorw("signal delivery failed",
				"pid", pid, "signal", sig, "error",
				&codec.SignalDeliveryError{Pid: pid, Sig: sig.String(), Err: err})
		}
	}
}

func (m *Master) workerPids() []int {
	pids := make([]int, 0, len(m.workers))
	for pid := range m.workers {
		pids = append(pids, pid)
	}
	return pids
}

// workerHashes lists the worker hashes in worker-id order, so status rows
// come out in a stable order despite m.workers being a map.
func (m *Master) workerHashes() codec.HashList {
	recs := make([]*WorkerRecord, 0, len(m.workers))
	for _, rec := range m.workers {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	hashes := make(codec.HashList, 0, len(recs))
	for _, rec := range recs {
		hashes = append(hashes, rec.Hash)
	}
	return hashes
}
