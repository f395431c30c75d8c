package main

import (
	"os"

	"github.com/beetlebugorg/skymap/cmd/skymapconv/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Errors are logged by the root command
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
