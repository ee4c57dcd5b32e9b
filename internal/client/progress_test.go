package client

import (
	"bytes"
	"encoding/json"
	"signalscore/internal/application/acquisition"
	"signalscore/internal/domain/valueobject"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestProgressReporter_ReportsPollsOnce(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	reporter := NewProgressReporter(&buf)
	reporter.now = func() time.Time { return started.Add(8 * time.Second) }

	base := acquisition.Session{
		ID:          "s-1",
		Status:      valueobject.SessionStatusAnalyzing,
		CompanyName: "Target",
		StartedAt:   &started,
	}

	// submission, in-flight poll, rescheduled poll, duplicate snapshot, completion
	analyzing := base
	reporter.Observe(analyzing)
	pending := base
	pending.PollPending = true
	reporter.Observe(pending)
	inFlight := base
	inFlight.PollCount = 1
	reporter.Observe(inFlight)
	rescheduled := inFlight
	rescheduled.PollPending = true
	reporter.Observe(rescheduled)
	reporter.Observe(rescheduled)
	done := inFlight
	done.Status = valueobject.SessionStatusCompleted
	reporter.Observe(done)

	lines := progressLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "submitted", lines[0]["status"])
	assert.Equal(t, "polling", lines[1]["status"])
	assert.Equal(t, "Target", lines[1]["company_name"])
	assert.Equal(t, "analyzing", lines[1]["current_status"])
	assert.Equal(t, "8s", lines[1]["elapsed"])
	assert.InDelta(t, 1, lines[1]["poll_count"], 0)
}

func TestProgressReporter_AdvisoryOnce(t *testing.T) {
	t.Parallel()

	started := time.Now().Add(-5 * time.Minute)
	var buf bytes.Buffer
	reporter := NewProgressReporter(&buf)

	s := acquisition.Session{
		ID:          "s-1",
		Status:      valueobject.SessionStatusAnalyzing,
		StartedAt:   &started,
		IsTimedOut:  true,
		PollCount:   61,
		PollPending: false,
	}
	reporter.Observe(s)
	reporter.Observe(s)

	lines := progressLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "timed_out", lines[0]["status"])
	assert.Equal(t, acquisition.TimeoutAdvisory, lines[0]["advisory"])
	assert.Equal(t, true, lines[0]["is_timed_out"])
}

func TestProgressReporter_NewSessionResets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	reporter := NewProgressReporter(&buf)

	first := acquisition.Session{ID: "a", Status: valueobject.SessionStatusAnalyzing, PollPending: true, PollCount: 3}
	second := acquisition.Session{ID: "b", Status: valueobject.SessionStatusAnalyzing, PollPending: true, PollCount: 1}
	reporter.Observe(first)
	reporter.Observe(second)

	lines := progressLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0]["session_id"])
	assert.Equal(t, "b", lines[1]["session_id"])
}
