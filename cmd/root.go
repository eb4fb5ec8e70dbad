// Package cmd implements the sockboss CLI surface from spec §6: start, stop,
// restart, and status, each a thin cobra command over pkg/supervisor.Facade,
// plus a config command that prints the effective configuration via
// pkg/config directly.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sockboss/pkg/codec"
	"sockboss/pkg/supervisor"
)

var (
	workingDir string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:           "sockboss",
	Short:         "sockboss supervises a pool of prefork TCP/UDP/UNIX socket workers",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute is called by main.main() for every invocation that isn't
// intercepted as a re-exec'd worker child.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.PersistentFlags().StringVarP(&workingDir, "path", "p", cwd, "Working directory rendezvous files and listeners are rooted under")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to sockboss.yml (default: discovered under the working directory)")
}

// newFacade is the one place every subcommand builds its
// pkg/supervisor.Facade from the shared --path/--config flags.
func newFacade() *supervisor.Facade {
	f, err := supervisor.New(configFile, workingDir)
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
	return f
}

// reportError implements §7's operator-facing error rendering:
// a LifecycleError prints as a short operator message; everything else
// prints as "sockboss: " followed by its wrapped Go error chain. The
// callers exit 1 afterwards.
func reportError(err error) {
	var lifecycle *codec.LifecycleError
	if errors.As(err, &lifecycle) {
		fmt.Fprintln(os.Stderr, lifecycle.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "sockboss: %v\n", err)
}
