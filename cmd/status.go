package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sockboss/pkg/codec"
)

var statusInfoFlag bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report master and worker status",
	Run: func(cmd *cobra.Command, args []string) {
		if statusInfoFlag {
			printStatusColumns()
			return
		}

		f := newFacade()
		rows, err := f.Controller.Status()
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		printStatusRows(rows)
	},
}

func init() {
	statusCmd.Flags().BoolVarP(&statusInfoFlag, "info", "i", false, "Show column descriptions instead of querying a live master")
	rootCmd.AddCommand(statusCmd)
}

func printStatusColumns() {
	fmt.Println(`id           decimal worker id, or "M" for the master
listen       address the row's listener is bound to, or "N/A" for the master
name         the listener name, or the configured name for the master
memory       Go heap memory currently allocated, "<MB>.<MB>M"
peak_memory  peak resident memory since start, "<MB>.<MB>M"
start_time   "(<restart_count>) <human uptime>"
connections  "<active>/<total>"
timers       active timer count`)
}

func printStatusRows(rows []codec.StatusRow) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\tlisten\tname\tmemory\tpeak_memory\tstart_time\tconnections\ttimers")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.Listen, r.Name, r.Memory, r.PeakMemory, r.StartTime, r.Connections, r.Timers)
	}
	_ = w.Flush()
}
