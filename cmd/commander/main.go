// Package main is the entry point for the commander CLI.
package main

import (
	"os"

	"github.com/KafClaw/commander/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
