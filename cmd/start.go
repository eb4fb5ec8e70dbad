package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var daemonFlag bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the master and its worker pool",
	Run: func(cmd *cobra.Command, args []string) {
		f := newFacade()
		daemon := daemonFlag || f.Config.Daemonize
		if err := f.Controller.Start(daemon); err != nil {
			reportError(err)
			os.Exit(1)
		}
	},
}

func init() {
	startCmd.Flags().BoolVarP(&daemonFlag, "daemon", "d", false, "Daemonize (double-fork, detach from the controlling terminal)")
	rootCmd.AddCommand(startCmd)
}
