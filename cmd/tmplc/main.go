// Package main provides the tmplc command.
package main

import (
	"os"

	"github.com/leapstack-labs/tmplc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
