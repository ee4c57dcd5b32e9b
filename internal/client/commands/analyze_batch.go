package commands

import (
	"fmt"
	"os"
	"signalscore/internal/application/acquisition"
	"signalscore/internal/client"
	"signalscore/internal/domain/valueobject"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	flagFile        = "file"
	flagConcurrency = "concurrency"

	defaultBatchConcurrency = 4
)

// BatchFile is the YAML document accepted by analyze-batch:
//
//	targets:
//	  - stripe.com
//	  - careers.target.com
type BatchFile struct {
	Targets []string `yaml:"targets"`
}

// BatchSummary is the data payload written by analyze-batch.
type BatchSummary struct {
	Results   []acquisition.BatchResult `json:"results"`
	Count     int                       `json:"count"`
	Completed int                       `json:"completed"`
	Failed    int                       `json:"failed"`
	Invalid   int                       `json:"invalid"`
}

// NewAnalyzeBatchCmd creates the analyze-batch command. Targets come from --file and from
// positional arguments; each one runs in its own acquisition session.
func NewAnalyzeBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze-batch [company-url...]",
		Short: "Analyze several companies concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			targets, err := batchTargets(cmd, args)
			if err != nil {
				_ = client.WriteError(out, errCodeInvalidArgument, err.Error(), nil)
				return nil
			}

			c, ok := createClientFromFlags(cmd, out)
			if !ok {
				return nil
			}

			cfg, err := acquisitionConfigFromFlags(cmd)
			if err != nil {
				_ = client.WriteError(out, errCodeInvalidArgument, err.Error(), nil)
				return nil
			}
			concurrency, _ := cmd.Flags().GetInt(flagConcurrency)
			if concurrency < 1 {
				_ = client.WriteError(out, errCodeInvalidArgument, "concurrency must be at least 1", nil)
				return nil
			}

			_, logger, err := diagnostics(cmd)
			if err != nil {
				_ = client.WriteError(out, errCodeInvalidArgument, err.Error(), nil)
				return nil
			}

			factory := func() (*acquisition.Machine, error) {
				return acquisition.NewMachine(c,
					acquisition.WithConfig(cfg),
					acquisition.WithLogger(logger),
				)
			}

			results, err := acquisition.RunBatch(cmd.Context(), targets, concurrency, factory)
			if err != nil {
				_ = client.WriteError(out, determineErrorCode(err), err.Error(), summarize(results))
				return nil
			}

			return client.WriteSuccess(out, summarize(results))
		},
	}

	cmd.Flags().String(flagFile, "", "YAML file with a top-level targets list")
	cmd.Flags().Int(flagConcurrency, defaultBatchConcurrency, "Maximum concurrent analyses")
	cmd.Flags().Duration(flagPollInterval, acquisition.DefaultPollInterval, "Time between status polls")
	cmd.Flags().Duration(flagTimeoutBudget, acquisition.DefaultTimeoutBudget,
		"Elapsed time after which a session is flagged as slow")

	return cmd
}

func batchTargets(cmd *cobra.Command, args []string) ([]string, error) {
	targets := append([]string(nil), args...)

	path, _ := cmd.Flags().GetString(flagFile)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read batch file: %w", err)
		}
		var file BatchFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
		}
		targets = append(targets, file.Targets...)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets given: pass company URLs or --%s", flagFile)
	}
	return targets, nil
}

func summarize(results []acquisition.BatchResult) BatchSummary {
	summary := BatchSummary{Results: results, Count: len(results)}
	for _, r := range results {
		switch r.Session.Status {
		case valueobject.SessionStatusCompleted:
			summary.Completed++
		case valueobject.SessionStatusFailed:
			summary.Failed++
		case valueobject.SessionStatusIdle:
			if r.Error != "" {
				summary.Invalid++
			}
		}
	}
	return summary
}
