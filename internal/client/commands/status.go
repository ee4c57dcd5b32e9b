package commands

import (
	"signalscore/internal/client"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command, a single job status query by company name.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <company-name>",
		Short: "Show the scoring status of a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if args[0] == "" {
				_ = client.WriteError(out, errCodeInvalidArgument, "company name cannot be empty", nil)
				return nil
			}

			c, ok := createClientFromFlags(cmd, out)
			if !ok {
				return nil
			}

			result, err := c.GetJobStatus(cmd.Context(), args[0])
			if err != nil {
				_ = client.WriteError(out, determineErrorCode(err), err.Error(), map[string]string{"company_name": args[0]})
				return nil
			}

			return client.WriteSuccess(out, result)
		},
	}
}
