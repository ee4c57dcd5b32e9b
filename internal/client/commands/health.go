package commands

import (
	"context"
	"signalscore/internal/client"

	"github.com/spf13/cobra"
)

// NewHealthCmd creates and returns the health check command.
// The command queries the API server's /health endpoint and outputs
// the response in JSON format.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, ok := createClientFromFlags(cmd, cmd.OutOrStdout())
			if !ok {
				return nil
			}

			timeout, _ := cmd.Flags().GetDuration(flagTimeout)
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			health, err := c.Health(ctx)
			if err != nil {
				_ = client.WriteError(cmd.OutOrStdout(), determineErrorCode(err), err.Error(), nil)
				return nil
			}

			return client.WriteSuccess(cmd.OutOrStdout(), health)
		},
	}
}
