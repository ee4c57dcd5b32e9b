// Package commands provides the cobra commands of the SignalScore CLI client.
// Every command writes a single JSON envelope to stdout; analysis progress goes to stderr.
package commands

import (
	"signalscore/internal/client"
	"signalscore/internal/version"

	"github.com/spf13/cobra"
)

// Flag names for persistent global flags.
const (
	flagAPIURL   = "api-url"
	flagTimeout  = "timeout"
	flagLogLevel = "log-level"
)

// NewRootCmd creates and returns the root command for the SignalScore CLI client.
//
// Subcommands:
//   - validate: Normalize a company URL without contacting the server
//   - analyze: Submit a company and poll until its assessment is ready
//   - analyze-batch: Analyze several companies concurrently
//   - status: Query the scoring job of one company
//   - scores: List stored scores
//   - health: Check API server health status
//
// Global Flags:
//   - --api-url: API server URL (default: $SIGNALSCORE_CLIENT_API_URL or http://localhost:8080)
//   - --timeout: Per-request timeout (default: $SIGNALSCORE_CLIENT_TIMEOUT or 30s)
//   - --log-level: Diagnostic log level written to stderr (default: error)
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "signalscore-client",
		Short:        "CLI client for the SignalScore API",
		Version:      version.GetVersion().Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String(flagAPIURL, client.DefaultAPIURL, "API server URL")
	cmd.PersistentFlags().Duration(flagTimeout, client.DefaultTimeout, "Request timeout")
	cmd.PersistentFlags().String(flagLogLevel, "error", "Log level (debug, info, warn, error)")

	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewAnalyzeBatchCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewScoresCmd())
	cmd.AddCommand(NewHealthCmd())

	return cmd
}
