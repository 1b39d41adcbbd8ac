// Package main provides the entry point for the autopilot CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/talentops/autopilot/internal/cli"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
