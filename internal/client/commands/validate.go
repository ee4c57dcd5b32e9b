package commands

import (
	"signalscore/internal/client"
	"signalscore/internal/domain/normalization"

	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command, which runs the URL normalizer locally.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <company-url>",
		Short: "Normalize a company URL without contacting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := normalization.Validate(args[0])
			if !result.IsValid {
				_ = client.WriteError(cmd.OutOrStdout(), errCodeValidationError, result.Error,
					map[string]string{"input": args[0]})
				return nil
			}
			return client.WriteSuccessWithWarning(cmd.OutOrStdout(), result, result.Warning)
		},
	}
}
