// Command sockboss supervises a pool of prefork TCP/UDP/UNIX socket workers,
// re-exec'd from the same binary under SOCKBOSS_ROLE=worker for each child.
package main

import (
	"fmt"
	"os"

	"sockboss/cmd"
	"sockboss/pkg/worker"
)

func main() {
	if os.Getenv(worker.EnvRole) == worker.RoleWorkerValue {
		if err := worker.Main(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cmd.Execute()
}
