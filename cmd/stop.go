package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var stopGracefulFlag bool

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the master and every worker",
	Run: func(cmd *cobra.Command, args []string) {
		f := newFacade()
		if err := f.Controller.Stop(stopGracefulFlag); err != nil {
			reportError(err)
			os.Exit(1)
		}
	},
}

func init() {
	stopCmd.Flags().BoolVarP(&stopGracefulFlag, "graceful", "g", false, "Wait for in-flight connections to drain before exiting")
	rootCmd.AddCommand(stopCmd)
}
