// Package main provides the entry point for the flynchctl command-line client.
package main

import (
	"os"

	"github.com/kxshrx/flynch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
