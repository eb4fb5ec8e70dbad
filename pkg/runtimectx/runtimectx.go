// Package runtimectx gathers the values the original implementation kept as
// global module state (Files::$rootPath, Output's sink lists, Command::$path)
// into one value constructed at startup and passed explicitly to the
// master, worker, controller, and output sinks — the redesign the design
// notes call for in place of ambient globals.
package runtimectx

import (
	"go.uber.org/zap"

	"sockboss/pkg/output"
	"sockboss/pkg/rendezvous"
)

// RuntimeContext is constructed once per process (master, worker, or
// Controller invocation) and threaded explicitly through every component
// that previously would have reached into global state.
type RuntimeContext struct {
	Name         string
	WorkingDir   string
	StdErrorPath string
	Daemon       bool

	Rendezvous *rendezvous.FileRendezvous
	Output     *output.Facade
	Logger     *zap.SugaredLogger
}

func New(name, workingDir, stdErrorPath string, daemon bool, logger *zap.SugaredLogger) *RuntimeContext {
	return &RuntimeContext{
		Name:         name,
		WorkingDir:   workingDir,
		StdErrorPath: stdErrorPath,
		Daemon:       daemon,
		Rendezvous:   rendezvous.New(workingDir),
		Output:       output.NewFacade(),
		Logger:       logger,
	}
}
