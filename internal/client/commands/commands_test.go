package commands_test

import (
	"bufio"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"signalscore/internal/application/acquisition"
	"signalscore/internal/application/dto"
	"signalscore/internal/client"
	"signalscore/internal/client/commands"
	"signalscore/internal/domain/normalization"
	"signalscore/internal/domain/valueobject"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findSubcommand(root *cobra.Command, name string) *cobra.Command {
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// TestNewRootCmd verifies the root command metadata, subcommands and global flags.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := commands.NewRootCmd()

	assert.Equal(t, "signalscore-client", cmd.Use)
	assert.True(t, cmd.SilenceUsage, "usage should not be printed on errors")
	for _, name := range []string{"validate", "analyze", "analyze-batch", "status", "scores", "health"} {
		assert.NotNil(t, findSubcommand(cmd, name), "%s should be registered", name)
	}

	apiURL := cmd.PersistentFlags().Lookup("api-url")
	require.NotNil(t, apiURL)
	assert.Equal(t, client.DefaultAPIURL, apiURL.DefValue)

	timeout := cmd.PersistentFlags().Lookup("timeout")
	require.NotNil(t, timeout)
	assert.Equal(t, "duration", timeout.Value.Type())
	assert.Equal(t, client.DefaultTimeout.String(), timeout.DefValue)

	analyze := findSubcommand(cmd, "analyze")
	require.NotNil(t, analyze)
	assert.Equal(t, acquisition.DefaultPollInterval.String(), analyze.Flags().Lookup("poll-interval").DefValue)
	assert.Equal(t, acquisition.DefaultTimeoutBudget.String(), analyze.Flags().Lookup("timeout-budget").DefValue)
}

// TestValidateCmd verifies local normalization output for valid and invalid input.
func TestValidateCmd(t *testing.T) {
	t.Parallel()

	t.Run("stripped subdomain carries a warning", func(t *testing.T) {
		t.Parallel()

		stdout, _ := execute(t, "validate", "careers.target.com")
		env := decodeEnvelope(t, stdout)

		require.True(t, env.Success)
		var result normalization.ValidationResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Equal(t, "https://target.com", result.NormalizedURL)
		assert.Equal(t, result.Warning, env.Warning)
		assert.NotEmpty(t, env.Warning)
	})

	t.Run("bare word is rejected", func(t *testing.T) {
		t.Parallel()

		stdout, _ := execute(t, "validate", "target")
		env := decodeEnvelope(t, stdout)

		require.False(t, env.Success)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Equal(t, normalization.ErrMsgMissingDomain, env.Error.Message)
	})
}

// TestAnalyzeCmd_PollsUntilCompleted verifies the submit and poll loop end to end.
// This test ensures progress goes to stderr and only the final session reaches stdout.
func TestAnalyzeCmd_PollsUntilCompleted(t *testing.T) {
	t.Parallel()

	api, server := newFakeScoringAPI(t, 2)

	stdout, stderr := execute(t, "analyze", "http://target.com", "--api-url", server.URL, "--poll-interval", "5ms")
	env := decodeEnvelope(t, stdout)

	require.True(t, env.Success, "analysis should succeed: %s", stdout.String())
	var session acquisition.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, valueobject.SessionStatusCompleted, session.Status)
	assert.Equal(t, "https://target.com", session.NormalizedURL)
	assert.Equal(t, 3, session.PollCount)
	require.NotNil(t, session.Score)
	assert.InDelta(t, 44, session.Score.Score, 0.001)
	require.NotNil(t, session.Company)
	assert.Equal(t, "target.com", session.Company.Domain)
	assert.Equal(t, 3, api.pollCount("Target"))

	var statuses []string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		if status, ok := line["status"].(string); ok {
			statuses = append(statuses, status)
		}
	}
	assert.Equal(t, []string{"submitted", "polling", "polling"}, statuses)
}

// TestAnalyzeCmd_CachedScore verifies that a cached score completes without polling.
func TestAnalyzeCmd_CachedScore(t *testing.T) {
	t.Parallel()

	api, server := newFakeScoringAPI(t, 0)

	stdout, _ := execute(t, "analyze", "stripe.com", "--api-url", server.URL)
	env := decodeEnvelope(t, stdout)

	require.True(t, env.Success)
	assert.Equal(t, 0, api.pollCount("Stripe"))
}

// TestAnalyzeCmd_Failures verifies error codes for each failure class.
func TestAnalyzeCmd_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		wantCode    string
		wantMessage string
		wantPosts   int
	}{
		{
			name:        "invalid input never reaches the server",
			input:       "target",
			wantCode:    "VALIDATION_ERROR",
			wantMessage: normalization.ErrMsgMissingDomain,
			wantPosts:   0,
		},
		{
			name:        "remote failure",
			input:       "blocked.com",
			wantCode:    "ANALYSIS_FAILED",
			wantMessage: acquisition.ErrMsgAnalysisFailed,
			wantPosts:   1,
		},
		{
			name:        "rejected submission",
			input:       "elsewhere.org",
			wantCode:    "VALIDATION_ERROR",
			wantMessage: acquisition.ErrMsgStartFailed,
			wantPosts:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api, server := newFakeScoringAPI(t, 0)

			stdout, _ := execute(t, "analyze", tt.input, "--api-url", server.URL, "--poll-interval", "5ms")
			env := decodeEnvelope(t, stdout)

			require.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, tt.wantMessage, env.Error.Message)
			assert.Equal(t, tt.wantPosts, api.postCount())
		})
	}
}

// TestAnalyzeCmd_ConnectionError verifies that an unreachable server fails the submission.
func TestAnalyzeCmd_ConnectionError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nil)
	url := server.URL
	server.Close()

	stdout, stderr := execute(t, "analyze", "target.com", "--api-url", url)
	env := decodeEnvelope(t, stdout)

	require.False(t, env.Success)
	assert.Equal(t, "CONNECTION_ERROR", env.Error.Code)
	assert.Equal(t, acquisition.ErrMsgStartFailed, env.Error.Message)
	assert.Contains(t, stderr.String(), "Failed to create scoring job", "errors are logged to stderr")
}

// TestAnalyzeCmd_MaxWait verifies that an endless analysis can be abandoned.
func TestAnalyzeCmd_MaxWait(t *testing.T) {
	t.Parallel()

	_, server := newFakeScoringAPI(t, 1_000_000)

	stdout, stderr := execute(t, "analyze", "target.com", "--api-url", server.URL,
		"--poll-interval", "5ms", "--timeout-budget", "10ms", "--max-wait", "100ms")
	env := decodeEnvelope(t, stdout)

	require.False(t, env.Success)
	assert.Equal(t, "TIMEOUT_ERROR", env.Error.Code)
	assert.Contains(t, stderr.String(), acquisition.TimeoutAdvisory, "advisory should be reported")
}

// TestAnalyzeCmd_InvalidFlags verifies flag validation.
func TestAnalyzeCmd_InvalidFlags(t *testing.T) {
	t.Parallel()

	stdout, _ := execute(t, "analyze", "target.com", "--poll-interval", "0s")
	env := decodeEnvelope(t, stdout)
	require.False(t, env.Success)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)

	stdout, _ = execute(t, "analyze", "target.com", "--api-url", "ftp://nowhere")
	env = decodeEnvelope(t, stdout)
	require.False(t, env.Success)
	assert.Equal(t, "INVALID_CONFIG", env.Error.Code)
}

// TestAnalyzeBatchCmd verifies batch analysis from a YAML file plus arguments.
func TestAnalyzeBatchCmd(t *testing.T) {
	t.Parallel()

	_, server := newFakeScoringAPI(t, 1)

	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets:\n  - stripe.com\n  - blocked.com\n  - nodot\n"), 0o600))

	stdout, _ := execute(t, "analyze-batch", "target.com", "--file", path, "--concurrency", "2",
		"--api-url", server.URL, "--poll-interval", "5ms")
	env := decodeEnvelope(t, stdout)

	require.True(t, env.Success, stdout.String())
	var summary commands.BatchSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, "target.com", summary.Results[0].Query)
	assert.Equal(t, "nodot", summary.Results[3].Query)
}

// TestAnalyzeBatchCmd_BadInput verifies argument errors.
func TestAnalyzeBatchCmd_BadInput(t *testing.T) {
	t.Parallel()

	stdout, _ := execute(t, "analyze-batch")
	env := decodeEnvelope(t, stdout)
	require.False(t, env.Success)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets: [unterminated"), 0o600))
	stdout, _ = execute(t, "analyze-batch", "--file", path)
	env = decodeEnvelope(t, stdout)
	require.False(t, env.Success)
	assert.Contains(t, env.Error.Message, "failed to parse batch file")

	stdout, _ = execute(t, "analyze-batch", "a.com", "--concurrency", "0")
	env = decodeEnvelope(t, stdout)
	require.False(t, env.Success)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
}

// TestStatusCmd verifies single status queries, including the not-found mapping.
func TestStatusCmd(t *testing.T) {
	t.Parallel()

	_, server := newFakeScoringAPI(t, 5)

	stdout, _ := execute(t, "status", "Target", "--api-url", server.URL)
	env := decodeEnvelope(t, stdout)
	require.True(t, env.Success)
	var result dto.JobResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, valueobject.JobStatusProcessing, result.Status)

	stdout, _ = execute(t, "status", "Unknown", "--api-url", server.URL)
	env = decodeEnvelope(t, stdout)
	require.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Contains(t, env.Error.Message, "Company 'Unknown' not found")
}

// TestScoresListCmd verifies the score listing.
func TestScoresListCmd(t *testing.T) {
	t.Parallel()

	_, server := newFakeScoringAPI(t, 0)

	stdout, _ := execute(t, "scores", "list", "--api-url", server.URL)
	env := decodeEnvelope(t, stdout)

	require.True(t, env.Success)
	var list dto.ScoreListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Count)
}

// TestHealthCmd verifies health output and connection error classification.
func TestHealthCmd(t *testing.T) {
	t.Parallel()

	_, server := newFakeScoringAPI(t, 0)

	stdout, _ := execute(t, "health", "--api-url", server.URL)
	env := decodeEnvelope(t, stdout)
	require.True(t, env.Success)
	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "healthy", health.Status)

	down := httptest.NewServer(nil)
	url := down.URL
	down.Close()

	stdout, _ = execute(t, "health", "--api-url", url)
	env = decodeEnvelope(t, stdout)
	require.False(t, env.Success)
	assert.Equal(t, "CONNECTION_ERROR", env.Error.Code)
	assert.True(t, strings.Contains(env.Error.Message, "connection refused"))
}
