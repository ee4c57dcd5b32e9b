package commands

import (
	"context"
	"errors"
	"io"
	"signalscore/internal/application/acquisition"
	"signalscore/internal/client"
	"signalscore/internal/domain/valueobject"
	"time"

	"github.com/spf13/cobra"
)

// Flag names for the analyze commands.
const (
	flagPollInterval  = "poll-interval"
	flagTimeoutBudget = "timeout-budget"
	flagMaxWait       = "max-wait"
)

// NewAnalyzeCmd creates the analyze command.
//
// The command submits the company for scoring and polls until the assessment completes or
// fails. Progress lines are written as JSON to stderr; the final session is written to
// stdout. Transport errors while polling are retried indefinitely, so --max-wait (or an
// interrupt) is the only way to stop waiting early.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <company-url>",
		Short: "Analyze a company and wait for its AI readiness score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			c, ok := createClientFromFlags(cmd, out)
			if !ok {
				return nil
			}

			cfg, err := acquisitionConfigFromFlags(cmd)
			if err != nil {
				_ = client.WriteError(out, errCodeInvalidArgument, err.Error(), nil)
				return nil
			}
			maxWait, _ := cmd.Flags().GetDuration(flagMaxWait)

			stderr, logger, err := diagnostics(cmd)
			if err != nil {
				_ = client.WriteError(out, errCodeInvalidArgument, err.Error(), nil)
				return nil
			}

			reporter := client.NewProgressReporter(stderr)
			machine, err := acquisition.NewMachine(c,
				acquisition.WithConfig(cfg),
				acquisition.WithLogger(logger),
				acquisition.WithObserver(reporter.Observe),
			)
			if err != nil {
				_ = client.WriteError(out, errCodeClientError, err.Error(), nil)
				return nil
			}
			defer machine.Close()

			session := machine.Submit(cmd.Context(), args[0])

			waitCtx := cmd.Context()
			if maxWait > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, maxWait)
				defer cancel()
			}
			if session.Status == valueobject.SessionStatusAnalyzing {
				session, err = machine.Wait(waitCtx)
				if err == nil && !session.IsTerminal() && waitCtx.Err() != nil {
					err = waitCtx.Err()
				}
			}

			return writeSessionResult(out, session, err)
		},
	}

	cmd.Flags().Duration(flagPollInterval, acquisition.DefaultPollInterval, "Time between status polls")
	cmd.Flags().Duration(flagTimeoutBudget, acquisition.DefaultTimeoutBudget,
		"Elapsed time after which a slow-analysis advisory is shown (polling continues)")
	cmd.Flags().Duration(flagMaxWait, 0, "Give up waiting after this long (0 waits indefinitely)")

	return cmd
}

func acquisitionConfigFromFlags(cmd *cobra.Command) (acquisition.Config, error) {
	cfg := acquisition.DefaultConfig()
	cfg.PollInterval, _ = cmd.Flags().GetDuration(flagPollInterval)
	cfg.TimeoutBudget, _ = cmd.Flags().GetDuration(flagTimeoutBudget)
	return cfg, cfg.Validate()
}

// writeSessionResult writes the envelope for a finished (or abandoned) session.
// waitErr is the error returned by Machine.Wait, if any.
func writeSessionResult(out io.Writer, session acquisition.Session, waitErr error) error {
	if waitErr != nil {
		code := errCodeTimeoutError
		if errors.Is(waitErr, context.Canceled) {
			code = errCodeCancelled
		}
		_ = client.WriteError(out, code, "stopped waiting for analysis: "+waitErr.Error(), session)
		return nil
	}

	switch session.Status {
	case valueobject.SessionStatusCompleted:
		return client.WriteSuccessWithWarning(out, session, session.Warning)
	case valueobject.SessionStatusFailed:
		code := errCodeAnalysisFailed
		if session.Err != nil {
			code = determineErrorCode(session.Err)
		}
		_ = client.WriteError(out, code, session.ErrorMessage, sessionFailureDetails(session))
		return nil
	default:
		message := session.ErrorMessage
		code := errCodeValidationError
		if message == "" {
			// Discarded before reaching a terminal state.
			message = "analysis was cancelled"
			code = errCodeCancelled
		} else if errors.Is(session.Err, acquisition.ErrMachineClosed) {
			code = errCodeClientError
		}
		_ = client.WriteError(out, code, message, map[string]string{"input": session.Query})
		return nil
	}
}

func sessionFailureDetails(session acquisition.Session) map[string]interface{} {
	details := map[string]interface{}{
		"query":        session.Query,
		"company_name": session.CompanyName,
		"poll_count":   session.PollCount,
	}
	if session.Err != nil {
		details["cause"] = session.Err.Error()
	}
	if session.StartedAt != nil {
		details["elapsed"] = session.Elapsed(time.Now()).Round(time.Millisecond).String()
	}
	return details
}
