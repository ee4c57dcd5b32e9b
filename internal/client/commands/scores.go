package commands

import (
	"signalscore/internal/client"

	"github.com/spf13/cobra"
)

// NewScoresCmd creates the scores parent command.
func NewScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Browse stored company scores",
	}
	cmd.AddCommand(newScoresListCmd())
	return cmd
}

func newScoresListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every scored company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			c, ok := createClientFromFlags(cmd, out)
			if !ok {
				return nil
			}

			list, err := c.ListScores(cmd.Context())
			if err != nil {
				_ = client.WriteError(out, determineErrorCode(err), err.Error(), nil)
				return nil
			}

			return client.WriteSuccess(out, list)
		},
	}
}
