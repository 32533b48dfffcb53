// Package main provides the entry point for the baheth CLI.
package main

import (
	"os"

	"github.com/baheth/baheth/cmd/baheth/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
