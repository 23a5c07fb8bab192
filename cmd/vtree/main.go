// Command vtree indexes, diffs and renders HTML pages, and streams
// live-reload patches for a content directory.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/vtree/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
