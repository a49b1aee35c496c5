// Package main provides the hack CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/hack-cli/hack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
