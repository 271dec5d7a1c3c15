// Package main is the entry point for the rental-insights CLI.
package main

import (
	"fmt"
	"os"

	"rental-insights/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
