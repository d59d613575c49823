// Package main is the entry point for the crossmarket CLI.
package main

import (
	"os"

	"crossmarket/cmd/cli/cmd"
	"crossmarket/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
