// Package main provides the CLI for scoreprep.
package main

import (
	"os"

	"github.com/leapstack-labs/scoreprep/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
