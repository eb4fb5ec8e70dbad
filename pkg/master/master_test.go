package master

import (
	"testing"
	"time"

	"sockboss/pkg/codec"
	"sockboss/pkg/config"
)

func newTestMaster(t *testing.T) *Master {
	t.Helper()
	cfg := &config.Config{
		Name: "echo",
		Listeners: []config.ListenerSpec{
			{Transport: "tcp", Address: "127.0.0.1:0", Name: "echo", WorkerCount: 2},
		},
	}
	return New(nil, cfg, "", false)
}

func TestFdOrderCSVSkipsReusePortListeners(t *testing.T) {
	cfg := &config.Config{
		Listeners: []config.ListenerSpec{
			{Transport: "tcp", Address: "127.0.0.1:0", Name: "a", WorkerCount: 1},
			{Transport: "tcp", Address: "127.0.0.1:0", Name: "b", WorkerCount: 1, ReusePort: true},
			{Transport: "tcp", Address: "127.0.0.1:0", Name: "c", WorkerCount: 1},
		},
	}
	m := New(nil, cfg, "", false)
	if got, want := m.fdOrderCSV(), "a,c"; got != want {
		t.Errorf("fdOrderCSV() = %q, want %q", got, want)
	}
}

func TestRemoveWorkerOnceClearsBothMaps(t *testing.T) {
	m := newTestMaster(t)
	rec := &WorkerRecord{Pid: 111, ID: 1, ListenerName: "echo", Hash: "h1"}
	m.workers[rec.Pid] = rec
	m.workersPendingStop[rec.Pid] = rec

	m.removeWorkerOnce(rec.Pid)

	if _, ok := m.workers[rec.Pid]; ok {
		t.Error("removeWorkerOnce left an entry in workers")
	}
	if _, ok := m.workersPendingStop[rec.Pid]; ok {
		t.Error("removeWorkerOnce left an entry in workersPendingStop")
	}

	// Calling it again on an already-removed pid must not panic.
	m.removeWorkerOnce(rec.Pid)
}

// TestHandleDeadWorkerExpectedStopDisablesShutdownWhenEmpty exercises the
// one handleDeadWorker branch that never re-execs a replacement worker
// (DeadWorkerStop), confirming §4.3.1's "when workers_pending_stop/workers
// drains, stop the monitor loop" behavior and the remove-once fix for the
// design notes' flagged double-removal bug.
func TestHandleDeadWorkerExpectedStopDisablesShutdownWhenEmpty(t *testing.T) {
	m := newTestMaster(t)
	m.rc = noopRuntimeContext(t)

	rec := &WorkerRecord{Pid: 222, ID: 1, ListenerName: "echo", Hash: "h1", StartTime: time.Now()}
	m.workers[rec.Pid] = rec
	m.expectDeadWorker = true
	m.deadWorkerHandler = codec.DeadWorkerStop
	m.run = true

	m.handleDeadWorker(reapEvent{pid: rec.Pid, exitCode: 0})

	if _, ok := m.workers[rec.Pid]; ok {
		t.Error("worker record should have been removed")
	}
	if m.run {
		t.Error("run should be false once the last worker has stopped")
	}
	if !m.shutdownDisabled {
		t.Error("shutdownDisabled should be set so the unexpected-exit handler skips its emergency KILL+remove")
	}
}

func TestHandleDeadWorkerUnknownPidIsIgnored(t *testing.T) {
	m := newTestMaster(t)
	m.rc = noopRuntimeContext(t)

	// No panic, no state change, for a pid the master never forked.
	m.handleDeadWorker(reapEvent{pid: 99999})

	if len(m.workers) != 0 {
		t.Error("handleDeadWorker should not create an entry for an unknown pid")
	}
}

func TestBoolEnv(t *testing.T) {
	if boolEnv(true) != "1" {
		t.Errorf("boolEnv(true) = %q, want \"1\"", boolEnv(true))
	}
	if boolEnv(false) != "0" {
		t.Errorf("boolEnv(false) = %q, want \"0\"", boolEnv(false))
	}
}
