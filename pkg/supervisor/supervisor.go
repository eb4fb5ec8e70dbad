// Package supervisor is the Workerman facade from SPEC_FULL.md §2: it loads
// configuration, builds the shared RuntimeContext (rendezvous/output/logger),
// and hands the operator's requested operation to a pkg/controller.Controller.
// cmd/ depends only on this package, never on pkg/master, pkg/worker, or
// pkg/controller directly — the facade is the single seam between the CLI
// surface and the supervision engine.
package supervisor

import (
	"fmt"

	"sockboss/pkg/config"
	"sockboss/pkg/controller"
	"sockboss/pkg/logger"
	"sockboss/pkg/output"
	"sockboss/pkg/runtimectx"
)

// Facade bundles a loaded Config with the Controller built from it.
type Facade struct {
	Config     *config.Config
	Controller *controller.Controller
	rc         *runtimectx.RuntimeContext
}

// New loads configFile (or discovers it under workingDir) and constructs the
// RuntimeContext and Controller every CLI command drives.
func New(configFile, workingDir string) (*Facade, error) {
	cfg, err := config.Load(configFile, workingDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger.Configure(cfg.Log)
	rc := runtimectx.New(cfg.Name, cfg.WorkingDir, cfg.StdErrorPath, cfg.Daemonize, logger.Logging("controller"))
	rc.Output.AddGeneralSink(output.NewZapSink(logger.Logging("output"), ""))
	rc.Output.AddPostDaemonizeSink(output.NewZapSink(logger.Logging("output"), ""))

	return &Facade{
		Config:     cfg,
		Controller: controller.New(rc, cfg, configFile),
		rc:         rc,
	}, nil
}
