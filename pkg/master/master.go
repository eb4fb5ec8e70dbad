// Package master implements the Master component from §4.3: the parent
// process that forks workers, reaps them, revives crashed ones, and
// orchestrates stop/reload/status against the whole pool.
package master

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"sockboss/pkg/codec"
	"sockboss/pkg/config"
	"sockboss/pkg/hashid"
	"sockboss/pkg/listener"
	"sockboss/pkg/runtimectx"
	"sockboss/pkg/signalbus"
)

// WorkerRecord is the master-side record from §3: pid, id, the listener it
// is bound to, its rendezvous hash, how many times it has been revived
// after a crash, and when it was forked.
type WorkerRecord struct {
	Pid          int
	ID           int
	ListenerName string
	Hash         string
	RestartCount int
	StartTime    time.Time
}

type reapEvent struct {
	pid      int
	exitCode int
	signaled bool
}

// Master owns the whole worker pool and the state machine from §3/§4.3.
type Master struct {
	rc         *runtimectx.RuntimeContext
	cfg        *config.Config
	configFile string

	listeners  *orderedmap.OrderedMap[string, *listener.Listener]
	fdOrder    []string // fixed ExtraFiles ordering: non-reuse_port listener names
	workerSpec map[string]int

	mu                 sync.Mutex
	workers            map[int]*WorkerRecord // keyed by pid
	workersPendingStop map[int]*WorkerRecord
	run                bool
	shutdownDisabled   bool
	expectDeadWorker   bool
	deadWorkerHandler  codec.DeadWorkerHandler
	daemon             bool
	startTime          time.Time
	hash               string
	nextID             int

	sigs   *signalbus.SignalBus
	reapCh chan reapEvent
}

// New builds a Master from the resolved config: one Listener per spec,
// kept in an insertion-ordered set (wk8/go-ordered-map) so status rows and
// the fork fd order are always stable, never subject to Go's randomized
// map iteration.
func New(rc *runtimectx.RuntimeContext, cfg *config.Config, configFile string, daemon bool) *Master {
	listeners := orderedmap.New[string, *listener.Listener]()
	workerSpec := make(map[string]int, len(cfg.Listeners))
	var fdOrder []string

	for _, spec := range cfg.Listeners {
		l := listener.New(
			listener.Transport(spec.Transport),
			spec.Address,
			listener.Protocol(spec.Protocol),
			spec.Name,
			spec.WorkerCount,
			spec.ReusePort,
		)
		listeners.Set(spec.Name, l)
		workerSpec[spec.Name] = spec.WorkerCount
		if !spec.ReusePort {
			fdOrder = append(fdOrder, spec.Name)
		}
	}

	return &Master{
		rc:                 rc,
		cfg:                cfg,
		configFile:         configFile,
		listeners:          listeners,
		fdOrder:            fdOrder,
		workerSpec:         workerSpec,
		workers:            make(map[int]*WorkerRecord),
		workersPendingStop: make(map[int]*WorkerRecord),
		run:                true,
		daemon:             daemon,
		hash:               hashid.New(),
		reapCh:             make(chan reapEvent, 16),
	}
}

// Start performs the §4.3 startup sequence and the non-daemon branch of
// §4.4.1 steps 5 onward (bind listeners, fork workers, enter the monitor
// loop). It blocks until the monitor loop exits.
func (m *Master) Start() error {
	// On-startup invariant (§3): the Controller must never observe stale
	// rendezvous files from a prior run.
	if err := m.rc.Rendezvous.RemoveWellKnown(); err != nil {
		m.rc.Logger.Warnw("removing stale rendezvous files", "error", err)
	}

	for pair := m.listeners.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.ReusePort {
			continue
		}
		if err := pair.Value.Build(); err != nil {
			return fmt.Errorf("build listener %s: %w", pair.Key, err)
		}
	}

	if err := m.rc.Rendezvous.WritePid(os.Getpid()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	m.sigs = signalbus.New(
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGTSTP,
		syscall.SIGQUIT, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGABRT,
	)

	m.startTime = time.Now()

	defer m.unexpectedExitHandler()

	if err := m.forkInitialWorkers(); err != nil {
		// Not a controlled exit: KILL whatever was forked and remove the
		// rendezvous files, as unexpectedExitHandler does for a panic.
		m.rc.Logger.Errorw("master exiting unexpectedly", "error", err)
		m.mu.Lock()
		for pid := range m.workers {
			_ = syscall.Kill(pid, syscall.SIGKILL)
		}
		m.mu.Unlock()
		_ = m.rc.Rendezvous.RemoveWellKnown()
		return err
	}

	m.monitorLoop()

	m.cleanCleanup()
	return nil
}

func (m *Master) forkInitialWorkers() error {
	for pair := m.listeners.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		count := m.workerSpec[name]
		for i := 0; i < count; i++ {
			if err := m.forkWorker(name, hashid.New(), 0); err != nil {
				return fmt.Errorf("fork worker for listener %s: %w", name, err)
			}
		}
	}
	return nil
}

// monitorLoop alternates draining the signal queue with waiting for a
// child to be reaped, matching §5: "drain the signal queue, then
// waitpid... handlers run between reap calls, never during a reap."
func (m *Master) monitorLoop() {
	for {
		for {
			sig, ok := m.sigs.TryNext()
			if !ok {
				break
			}
			m.handleControlSignal(sig)
		}

		m.mu.Lock()
		running := m.run
		m.mu.Unlock()
		if !running {
			return
		}

		select {
		case sig := <-m.sigs.Queue():
			m.handleControlSignal(sig)
		case ev := <-m.reapCh:
			m.handleDeadWorker(ev)
		}
	}
}

// cleanCleanup runs on a controlled exit: removes every rendezvous file,
// per the invariant "after a clean stop, none of the four well-known
// rendezvous files exist." This always runs — shutdownDisabled only bypasses
// the unexpectedExitHandler's emergency KILL+remove, not this.
func (m *Master) cleanCleanup() {
	if err := m.rc.Rendezvous.RemoveWellKnown(); err != nil {
		m.rc.Logger.Warnw("removing rendezvous files on exit", "error", err)
	}
	m.sigs.Stop()
}

// unexpectedExitHandler implements §4.3.4 for a panic, recovered here; Start
// performs the same KILL+remove inline when forking the initial workers
// fails, since this handler does nothing without a panic. A literal SIGKILL against
// this process can never be intercepted by any process in any language —
// that is a kernel guarantee, not a gap in this implementation — so this
// handler only covers the paths Go can actually run: panics. shutdownDisabled
// means handleDeadWorker already saw the pool drain to empty under an
// operator-triggered stop, so there are no workers left to KILL and
// cleanCleanup has already (or is about to) remove the well-known files —
// running the emergency path again here would be redundant, not wrong, but
// the flag exists precisely to skip it.
func (m *Master) unexpectedExitHandler() {
	r := recover()
	if r == nil {
		return
	}
	m.rc.Logger.Errorw("master exiting unexpectedly", "recover", r)

	m.mu.Lock()
	disabled := m.shutdownDisabled
	pids := make([]int, 0, len(m.workers))
	for pid := range m.workers {
		pids = append(pids, pid)
	}
	m.mu.Unlock()

	if !disabled {
		for _, pid := range pids {
			_ = syscall.Kill(pid, syscall.SIGKILL)
		}
		_ = m.rc.Rendezvous.RemoveWellKnown()
	}
	panic(r)
}

func (m *Master) listenerByName(name string) (*listener.Listener, bool) {
	l, ok := m.listeners.Get(name)
	return l, ok
}

// fdOrderCSV renders fdOrder for the SOCKBOSS_FD_LISTENERS env var.
func (m *Master) fdOrderCSV() string {
	out := ""
	for i, name := range m.fdOrder {
		if i > 0 {
			out += ","
		}
		out += name
	}
	return out
}
