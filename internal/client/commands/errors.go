package commands

import (
	"context"
	"errors"
	"io"
	"net/http"
	"signalscore/internal/application/acquisition"
	"signalscore/internal/client"
	"strings"

	"github.com/spf13/cobra"
)

// Error codes written in the error envelope.
const (
	errCodeInvalidConfig   = "INVALID_CONFIG"
	errCodeClientError     = "CLIENT_ERROR"
	errCodeConnectionError = "CONNECTION_ERROR"
	errCodeTimeoutError    = "TIMEOUT_ERROR"
	errCodeServerError     = "SERVER_ERROR"
	errCodeAPIError        = "API_ERROR"
	errCodeInvalidArgument = "INVALID_ARGUMENT"
	errCodeNotFound        = "NOT_FOUND"
	errCodeValidationError = "VALIDATION_ERROR"
	errCodeAnalysisFailed  = "ANALYSIS_FAILED"
	errCodeCancelled       = "CANCELLED"
)

// createClientFromFlags builds a client from the environment, overridden by any flags the
// user set explicitly. Configuration errors are written to out and reported as false.
func createClientFromFlags(cmd *cobra.Command, out io.Writer) (*client.Client, bool) {
	cfg, err := client.LoadConfig()
	if err != nil {
		_ = client.WriteError(out, errCodeInvalidConfig, err.Error(), nil)
		return nil, false
	}

	if cmd.Flags().Changed(flagAPIURL) {
		cfg.APIURL, _ = cmd.Flags().GetString(flagAPIURL)
	}
	if cmd.Flags().Changed(flagTimeout) {
		cfg.Timeout, _ = cmd.Flags().GetDuration(flagTimeout)
	}

	if err := cfg.Validate(); err != nil {
		_ = client.WriteError(out, errCodeInvalidConfig, err.Error(), nil)
		return nil, false
	}

	c, err := client.NewClient(cfg)
	if err != nil {
		_ = client.WriteError(out, errCodeClientError, err.Error(), nil)
		return nil, false
	}

	return c, true
}

// determineErrorCode classifies an error for the error envelope:
//   - NOT_FOUND / VALIDATION_ERROR / SERVER_ERROR / API_ERROR: API responses by status
//   - ANALYSIS_FAILED: the scoring service gave up on the company
//   - CANCELLED: the command was interrupted
//   - CONNECTION_ERROR / TIMEOUT_ERROR: transport failures
func determineErrorCode(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsNotFound():
			return errCodeNotFound
		case apiErr.StatusCode == http.StatusUnprocessableEntity || apiErr.StatusCode == http.StatusBadRequest:
			return errCodeValidationError
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return errCodeServerError
		default:
			return errCodeAPIError
		}
	}

	if errors.Is(err, acquisition.ErrAnalysisFailed) {
		return errCodeAnalysisFailed
	}
	if errors.Is(err, context.Canceled) {
		return errCodeCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errCodeTimeoutError
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return errCodeConnectionError
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return errCodeTimeoutError
	}
	return errCodeAPIError
}
