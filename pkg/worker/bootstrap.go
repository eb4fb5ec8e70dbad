package worker

import (
	"fmt"
	"os"
	"strings"

	"sockboss/pkg/config"
	"sockboss/pkg/listener"
)

// These constants name the environment variables the master sets before
// re-exec'ing a worker child; there is no wire protocol beyond signals and
// rendezvous files (§6), so this is the only channel used to tell a freshly
// exec'd process which role and identity it has.
const (
	EnvRole         = "SOCKBOSS_ROLE"
	EnvWorkerID     = "SOCKBOSS_WORKER_ID"
	EnvWorkerHash   = "SOCKBOSS_WORKER_HASH"
	EnvRestartCount = "SOCKBOSS_RESTART_COUNT"
	EnvOwnListener  = "SOCKBOSS_OWN_LISTENER"
	EnvFDListeners  = "SOCKBOSS_FD_LISTENERS"
	EnvDaemon       = "SOCKBOSS_DAEMON"
	EnvWorkingDir   = "SOCKBOSS_WORKING_DIR"
	EnvConfigFile   = "SOCKBOSS_CONFIG_FILE"
	EnvName         = "SOCKBOSS_NAME"
	RoleWorkerValue = "worker"
	stdFDCount      = 3
)

// BuildListenerSet constructs one *listener.Listener per spec, keyed by
// listener name. The map has no order; the master and every child agree on
// fd-to-listener positions through the comma-joined name list in
// EnvFDListeners alone.
func BuildListenerSet(specs []config.ListenerSpec) map[string]*listener.Listener {
	out := make(map[string]*listener.Listener, len(specs))
	for _, s := range specs {
		out[s.Name] = listener.New(
			listener.Transport(s.Transport),
			s.Address,
			listener.Protocol(s.Protocol),
			s.Name,
			s.WorkerCount,
			s.ReusePort,
		)
	}
	return out
}

// Reconstruct rebuilds every listener's bound state in a freshly exec'd
// worker process: fd-inherited listeners are wrapped from ExtraFiles at the
// position EnvFDListeners records; reuse_port listeners bind independently.
// Every listener other than ownName then has DropCompetingState called on
// it, per §4.2 step 5.
func Reconstruct(listeners map[string]*listener.Listener, fdListenersCSV, ownName string) error {
	names := strings.Split(fdListenersCSV, ",")
	for i, name := range names {
		if name == "" {
			continue
		}
		l, ok := listeners[name]
		if !ok {
			return fmt.Errorf("unknown listener %q in fd list", name)
		}
		f := os.NewFile(uintptr(stdFDCount+i), name)
		if f == nil {
			return fmt.Errorf("missing inherited fd for listener %q", name)
		}
		if err := l.FromInheritedFD(f); err != nil {
			return fmt.Errorf("reconstruct listener %q: %w", name, err)
		}
	}

	for name, l := range listeners {
		if l.ReusePort {
			if err := l.BuildInWorker(); err != nil {
				return fmt.Errorf("build_in_worker %q: %w", name, err)
			}
		}
		if name != ownName {
			if err := l.DropCompetingState(); err != nil {
				return fmt.Errorf("drop competing state for %q: %w", name, err)
			}
		}
	}
	return nil
}
