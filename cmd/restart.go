package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var restartGracefulFlag bool

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Reload every worker: all are signalled, and each is replaced by a fresh process as it exits",
	Run: func(cmd *cobra.Command, args []string) {
		f := newFacade()
		if err := f.Controller.Restart(restartGracefulFlag); err != nil {
			reportError(err)
			os.Exit(1)
		}
	},
}

func init() {
	restartCmd.Flags().BoolVarP(&restartGracefulFlag, "graceful", "g", false, "Drain each worker's connections before replacing it")
	rootCmd.AddCommand(restartCmd)
}
