// Package main is the entry point of the signalscore server.
//
// Environment variables from a local .env file are loaded before configuration, so
// SIGNALSCORE_* overrides can live there during development.
package main

import (
	"signalscore/cmd"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cmd.Execute()
}
