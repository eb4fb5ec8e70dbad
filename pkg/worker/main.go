package worker

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"sockboss/pkg/config"
	"sockboss/pkg/logger"
	"sockboss/pkg/runtimectx"
)

// Main is the entrypoint main.go calls when SOCKBOSS_ROLE=worker: it is the
// whole of the child side of a fork, from reading its environment through
// entering the event loop. It never returns under normal operation — the
// worker's own hard/graceful stop paths call os.Exit directly.
func Main() error {
	id, err := strconv.Atoi(os.Getenv(EnvWorkerID))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvWorkerID, err)
	}
	hash := os.Getenv(EnvWorkerHash)
	restartCount, _ := strconv.Atoi(os.Getenv(EnvRestartCount))
	ownListener := os.Getenv(EnvOwnListener)
	fdListeners := os.Getenv(EnvFDListeners)
	daemon := os.Getenv(EnvDaemon) == "1"
	workingDir := os.Getenv(EnvWorkingDir)
	configFile := os.Getenv(EnvConfigFile)
	name := os.Getenv(EnvName)

	cfg, err := config.Load(configFile, workingDir)
	if err != nil {
		return fmt.Errorf("worker %d: load config: %w", id, err)
	}
	logger.Configure(cfg.Log)

	listeners := BuildListenerSet(cfg.Listeners)
	if err := Reconstruct(listeners, fdListeners, ownListener); err != nil {
		return fmt.Errorf("worker %d: reconstruct listeners: %w", id, err)
	}

	own, ok := listeners[ownListener]
	if !ok {
		return fmt.Errorf("worker %d: own listener %q not found", id, ownListener)
	}

	rc := runtimectx.New(name, workingDir, cfg.StdErrorPath, daemon, logger.Logging(fmt.Sprintf("worker.%d", id)))

	w := New(id, hash, own, restartCount, daemon, rc)

	sigCh := make(chan os.Signal, 16)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGTSTP,
		syscall.SIGUSR1, syscall.SIGQUIT, syscall.SIGUSR2, syscall.SIGABRT)

	w.Run(sigCh, nil)
	return nil
}
