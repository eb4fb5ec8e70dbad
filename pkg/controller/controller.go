package controller

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	gnuosdaemon "github.com/gnuos/daemon"

	"sockboss/pkg/codec"
	"sockboss/pkg/config"
	"sockboss/pkg/master"
	"sockboss/pkg/runtimectx"
)

// daemonizePollInterval and daemonizePollCount implement the fixed 10x500ms
// timeout §5 specifies for daemonize verification — the one poll in this
// package that is deliberately bounded.
const (
	daemonizePollInterval = 500 * time.Millisecond
	daemonizePollCount    = 10
)

// Controller is the CLI-side driver: it never shares memory with the
// master process it is driving (§4.4).
type Controller struct {
	rc         *runtimectx.RuntimeContext
	cfg        *config.Config
	configFile string
}

func New(rc *runtimectx.RuntimeContext, cfg *config.Config, configFile string) *Controller {
	return &Controller{rc: rc, cfg: cfg, configFile: configFile}
}

func (c *Controller) pidPath() string { return c.rc.Rendezvous.Path("process.pid") }

// Start implements §4.4.1.
func (c *Controller) Start(daemon bool) error {
	if c.rc.Rendezvous.Exists("process.pid") {
		return codec.NewLifecycleError("Cannot start workerman, workerman already running.")
	}

	if c.cfg.StdErrorPath != "" {
		f, err := os.OpenFile(c.cfg.StdErrorPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("redirect stderr to %s: %w", c.cfg.StdErrorPath, err)
		}
		os.Stderr = f
	} else {
		c.rc.Output.Warning("std_error_path not configured; stderr left attached to the terminal")
	}

	title := config.MasterTitle(c.cfg.Name)
	c.rc.Output.Info("starting %s", title)

	if !daemon {
		m := master.New(c.rc, c.cfg, c.configFile, false)
		return m.Start()
	}

	return c.startDaemonized()
}

// startDaemonized implements §4.4.1 step 4: a double-fork (fork → setsid →
// fork) via github.com/gnuos/daemon's Reborn, with the intermediate parent
// polling for process.pid up to 10x500ms.
func (c *Controller) startDaemonized() error {
	ctx := &gnuosdaemon.Context{
		WorkDir: c.cfg.WorkingDir,
		Umask:   027,
	}

	child, err := ctx.Reborn()
	if err != nil {
		return &codec.ForkError{Stage: "daemonize", Err: err}
	}

	if child != nil {
		// Intermediate parent: poll for process.pid up to 10x500ms and
		// report success/failure to the operator.
		for i := 0; i < daemonizePollCount; i++ {
			if c.rc.Rendezvous.Exists("process.pid") {
				c.rc.Output.Success("workerman started")
				return nil
			}
			time.Sleep(daemonizePollInterval)
		}
		return codec.NewLifecycleError("daemon did not report ready within %s", daemonizePollInterval*daemonizePollCount)
	}

	// Grandchild: perform §4.3 startup.
	defer ctx.Release()
	c.rc.Output.Daemonize()
	m := master.New(c.rc, c.cfg, c.configFile, true)
	return m.Start()
}

// Stop implements §4.4.2 for stop, both the immediate variant and the
// progress-bar-driven graceful variant; Restart covers restart.
func (c *Controller) Stop(graceful bool) error {
	pid, err := c.requireRunning("stop")
	if err != nil {
		return err
	}

	sig := syscall.SIGINT
	if graceful {
		sig = syscall.SIGQUIT
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return &codec.SignalDeliveryError{Pid: pid, Sig: sig.String(), Err: err}
	}

	if graceful {
		if err := c.watchGracefulDrain(); err != nil {
			return err
		}
	}

	poller := NewPoller(c.rc.WorkingDir)
	defer poller.Close()
	if err := poller.WaitForAbsent(context.Background(), c.pidPath()); err != nil {
		return err
	}
	c.rc.Output.Success("workerman stopped")
	return nil
}

// Restart implements §4.4.2's restart variants.
func (c *Controller) Restart(graceful bool) error {
	pid, err := c.requireRunning("restart")
	if err != nil {
		return err
	}
	sentAt := time.Now().Unix()

	sig := syscall.SIGUSR1
	if graceful {
		sig = syscall.SIGUSR2
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return &codec.SignalDeliveryError{Pid: pid, Sig: sig.String(), Err: err}
	}

	if graceful {
		if err := c.watchGracefulDrain(); err != nil {
			return err
		}
	}

	poller := NewPoller(c.rc.WorkingDir)
	defer poller.Close()
	restartPath := c.rc.Rendezvous.Path("restart.workerman")
	if err := poller.WaitForExists(context.Background(), restartPath); err != nil {
		return err
	}

	ts, err := c.rc.Rendezvous.ReadRestartTimestamp()
	if err != nil {
		return err
	}
	if ts < sentAt {
		return codec.NewLifecycleError("restart.workerman is stale from a previous run")
	}
	c.rc.Output.Success("workerman restarted")
	return nil
}

// watchGracefulDrain implements §4.4.2 step 2: poll for shutdown.workerman
// to appear, then watch each listed hash file disappear (the worker itself
// deletes its stub on exit — see the design notes' synchronous handshake
// redesign, which moved stub creation into the master), ticking the
// progress bar down as each one goes.
func (c *Controller) watchGracefulDrain() error {
	poller := NewPoller(c.rc.WorkingDir)
	defer poller.Close()

	shutdownPath := c.rc.Rendezvous.Path("shutdown.workerman")
	if err := poller.WaitForExists(context.Background(), shutdownPath); err != nil {
		return err
	}

	hashes, err := c.rc.Rendezvous.ReadHashList("shutdown.workerman")
	if err != nil {
		return err
	}

	c.rc.Output.ProgressBar(len(hashes), 0)
	for _, h := range hashes {
		if err := poller.WaitForAbsent(context.Background(), c.rc.Rendezvous.Path(h)); err != nil {
			return err
		}
		c.rc.Output.ProgressTick()
	}
	return nil
}

// Status implements §4.4.3.
func (c *Controller) Status() ([]codec.StatusRow, error) {
	pid, err := c.requireRunning("status")
	if err != nil {
		return nil, err
	}

	if err := syscall.Kill(pid, syscall.SIGABRT); err != nil {
		return nil, &codec.SignalDeliveryError{Pid: pid, Sig: "IOT", Err: err}
	}

	poller := NewPoller(c.rc.WorkingDir)
	defer poller.Close()

	statusPath := c.rc.Rendezvous.Path("status.workerman")
	if err := poller.WaitForExists(context.Background(), statusPath); err != nil {
		return nil, err
	}

	hashes, err := c.rc.Rendezvous.ReadHashList("status.workerman")
	if err != nil {
		return nil, err
	}

	rows := make([]codec.StatusRow, 0, len(hashes))
	for _, h := range hashes {
		hashPath := c.rc.Rendezvous.Path(h)
		if err := poller.WaitForExists(context.Background(), hashPath); err != nil {
			return nil, err
		}
		row, err := c.rc.Rendezvous.ReadStatusRow(h)
		if err != nil {
			return nil, err
		}
		_ = c.rc.Rendezvous.DeleteHash(h)
		rows = append(rows, row)
	}
	_ = c.rc.Rendezvous.RemoveHashList("status.workerman")

	return rows, nil
}

// requireRunningVerbs gives each caller of requireRunning the operator
// phrasing §4.4's "Cannot <verb>, workerman is not running." error expects,
// instead of reusing the status command's wording for stop/restart too.
var requireRunningVerbs = map[string]string{
	"stop":    "stop workerman",
	"restart": "restart workerman",
	"status":  "collect worker status",
}

func (c *Controller) requireRunning(action string) (int, error) {
	if !c.rc.Rendezvous.Exists("process.pid") {
		verb, ok := requireRunningVerbs[action]
		if !ok {
			verb = action
		}
		return 0, codec.NewLifecycleError("Cannot %s, workerman is not running.", verb)
	}
	return c.rc.Rendezvous.ReadPid()
}
