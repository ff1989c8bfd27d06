package main

import (
	"errors"
	"fmt"
	"os"

	"grammarls/internal/cli"
)

// Set during the build process using ldflags.
var (
	version = "(dev) v0.0.0"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := cli.NewRootCommand(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cli.ErrIssuesFound) {
			fmt.Fprintln(os.Stderr, "grammarls:", err)
		}
		return 1
	}
	return 0
}
