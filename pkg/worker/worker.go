// Package worker implements the Worker component from §4.2: a child
// process bound to one Listener, driving the event loop, tracking
// connections, and responding to the worker signal table.
package worker

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sockboss/pkg/eventloop"
	"sockboss/pkg/listener"
	"sockboss/pkg/runtimectx"
)

// Worker is the child-side state described in §3: id, hash, listener,
// start_time, restart_count, connections, total_connections_count,
// event_loop_handle, daemon_flag.
type Worker struct {
	ID           int
	Hash         string
	Listener     *listener.Listener
	StartTime    time.Time
	RestartCount int
	DaemonFlag   bool

	rc   *runtimectx.RuntimeContext
	loop eventloop.EventLoop

	mu               sync.Mutex
	connections      map[uint64]eventloop.AcceptedConnection
	totalConnections uint64
	timersActive     int
	stopping         bool
}

// OnConnect is invoked for each accepted connection after it's been added
// to Worker.connections; the byte-level lifecycle from there belongs to the
// external event-loop/protocol collaborator, not this package.
type OnConnect func(w *Worker, c eventloop.AcceptedConnection)

func New(id int, hash string, l *listener.Listener, restartCount int, daemon bool, rc *runtimectx.RuntimeContext) *Worker {
	return &Worker{
		ID:           id,
		Hash:         hash,
		Listener:     l,
		RestartCount: restartCount,
		DaemonFlag:   daemon,
		rc:           rc,
		loop:         eventloop.New(),
		connections:  make(map[uint64]eventloop.AcceptedConnection),
	}
}

// Run executes the full startup sequence from §4.2 and blocks in the event
// loop until a stop signal drives it to exit(0). onConnect is the external
// application callback invoked per accepted connection.
func (w *Worker) Run(sigQueue <-chan os.Signal, onConnect OnConnect) {
	// 1. record start_time (daemon flag was captured at construction).
	w.StartTime = time.Now()

	// 2/9: shutdown handler — best-effort unlink(hash) on any exit path.
	defer w.shutdownHandler()

	// 3. no inherited timer state to clear: this Loop is freshly
	// constructed per process.

	// 6. process title.
	setProcTitle(fmt.Sprintf("%s worker (%d)", w.Listener.Name, w.ID))

	// 8. register the accept handler.
	if err := w.Listener.ResumeAccept(w.loop, func(c eventloop.AcceptedConnection) {
		w.handleAccept(c, onConnect)
	}); err != nil {
		w.rc.Logger.Errorw("resume accept failed", "listener", w.Listener.Name, "error", err)
	}

	// 7. signal dispatch alongside the loop's own action queue.
	go w.pumpSignals(sigQueue)

	// 9. enter the event loop.
	if err := w.loop.Run(); err != nil {
		w.rc.Logger.Errorw("event loop exited with error", "error", err)
	}
}

func (w *Worker) handleAccept(c eventloop.AcceptedConnection, onConnect OnConnect) {
	w.mu.Lock()
	w.connections[c.ID()] = c
	w.totalConnections++
	w.mu.Unlock()

	if onConnect != nil {
		onConnect(w, c)
	}
}

// ForgetConnection removes c from the tracked set once the external
// collaborator reports it closed. total_connections_count is never
// decremented — it is monotonically non-decreasing per §3.
func (w *Worker) ForgetConnection(id uint64) {
	w.loop.Post(func() {
		w.mu.Lock()
		delete(w.connections, id)
		empty := len(w.connections) == 0
		stopping := w.stopping
		w.mu.Unlock()

		if stopping && empty {
			w.finishGracefulStop()
		}
	})
}

func (w *Worker) pumpSignals(sigQueue <-chan os.Signal) {
	for sig := range sigQueue {
		s := sig
		w.loop.Post(func() { w.dispatchSignal(s) })
	}
}

func (w *Worker) dispatchSignal(sig os.Signal) {
	switch sigName(sig) {
	case "INT", "TERM", "HUP", "TSTP", "USR1":
		w.hardStop()
	case "QUIT", "USR2":
		w.gracefulStop()
	case "IOT":
		w.writeStatus()
	}
}

// hardStop tears down the listener, force-closes every connection, and
// exits immediately.
func (w *Worker) hardStop() {
	_ = w.Listener.Teardown()

	w.mu.Lock()
	conns := make([]eventloop.AcceptedConnection, 0, len(w.connections))
	for _, c := range w.connections {
		conns = append(conns, c)
	}
	w.connections = make(map[uint64]eventloop.AcceptedConnection)
	w.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}

	// os.Exit skips deferred calls, so run the shutdown handler here.
	w.shutdownHandler()
	os.Exit(0)
}

// gracefulStop is the level-triggered drain from §4.2: pause accept, and
// exit only once every connection has closed itself. No hard timeout —
// the operator must send a hard stop if a connection never drains.
func (w *Worker) gracefulStop() {
	w.mu.Lock()
	alreadyStopping := w.stopping
	w.stopping = true
	empty := len(w.connections) == 0
	w.mu.Unlock()

	if w.Listener.Accepting() {
		w.Listener.PauseAccept(w.loop)
	}

	if empty {
		w.finishGracefulStop()
		return
	}

	if !alreadyStopping {
		w.rc.Logger.Infow("graceful stop waiting for connections to drain", "worker", w.ID)
	}

	// Reschedule re-entry after 1s; this is only a re-check, not a forced
	// close — draining itself has no timeout.
	w.loop.PostTimer(time.Second, w.gracefulStop)
}

func (w *Worker) finishGracefulStop() {
	_ = w.Listener.Teardown()
	w.shutdownHandler()
	os.Exit(0)
}

// writeStatus serializes the status row and writes it to the worker's hash
// file (§4.2's "Status write").
func (w *Worker) writeStatus() {
	w.mu.Lock()
	active := len(w.connections)
	total := w.totalConnections
	timers := w.timersActive
	w.mu.Unlock()

	row := w.StatusRow(active, total, timers)
	if err := w.rc.Rendezvous.WriteStatusRow(w.Hash, row); err != nil {
		w.rc.Logger.Errorw("write status failed", "worker", w.ID, "error", err)
	}
}

// shutdownHandler runs on any exit path, including a panic recovered here,
// and best-effort unlinks the worker's hash rendezvous file.
func (w *Worker) shutdownHandler() {
	if r := recover(); r != nil {
		w.rc.Logger.Errorw("worker panicked", "worker", w.ID, "recover", r)
	}
	if err := w.rc.Rendezvous.DeleteHash(w.Hash); err != nil {
		w.rc.Logger.Warnw("unlink hash file failed", "worker", w.ID, "error", err)
	}
}

func sigName(sig os.Signal) string {
	return signalName(sig)
}
