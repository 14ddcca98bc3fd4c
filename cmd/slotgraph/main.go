// Command slotgraph runs and inspects graph scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/slotgraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
