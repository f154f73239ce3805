package main

import (
	"fmt"
	"os"

	"github.com/oddjob-dev/oddjob/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "oddjob: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
