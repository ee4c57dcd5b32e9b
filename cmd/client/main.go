// Package main provides the entry point for the standalone signalscore CLI client.
//
// Usage:
//
//	signalscore-client health
//	signalscore-client validate <url>
//	signalscore-client analyze <url> --max-wait 5m
//	signalscore-client analyze-batch <url>... --concurrency 4
//	signalscore-client status <company>
//	signalscore-client scores list
//
// Global flags:
//
//	--api-url    API server URL (default: http://localhost:8080)
//	--timeout    Request timeout duration (default: 30s)
//
// All output is JSON-formatted for consumption by scripts and automation tools.
package main

import (
	"os"

	"signalscore/internal/client/commands"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
