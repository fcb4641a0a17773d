// Command semgraph loads, queries and runs inference over quad snapshots.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/semgraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
