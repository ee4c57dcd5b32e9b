package client

import (
	"encoding/json"
	"io"
	"signalscore/internal/application/acquisition"
	"sync"
	"time"
)

// Progress status constants for JSON output.
const (
	progressStatusSubmitted = "submitted"
	progressStatusPolling   = "polling"
	progressStatusTimedOut  = "timed_out"
)

// ProgressReporter writes one JSON line per observed poll of an acquisition session.
// Register Observe with acquisition.WithObserver.
type ProgressReporter struct {
	w   io.Writer
	now func() time.Time

	mu            sync.Mutex
	sessionID     string
	lastPollCount int
	submitted     bool
	advised       bool
}

// NewProgressReporter creates a reporter writing to w.
func NewProgressReporter(w io.Writer) *ProgressReporter {
	return &ProgressReporter{w: w, now: time.Now}
}

// Observe records a session snapshot. Lines are written when a session starts polling,
// after each completed poll, and once when the timeout advisory first appears.
func (p *ProgressReporter) Observe(s acquisition.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.ID != p.sessionID {
		p.sessionID = s.ID
		p.lastPollCount = 0
		p.submitted = false
		p.advised = false
	}

	if s.Advisory() != "" && !p.advised {
		p.advised = true
		p.write(progressStatusTimedOut, s, map[string]interface{}{"advisory": s.Advisory()})
	}

	if !s.PollPending {
		return
	}

	switch {
	case !p.submitted && s.PollCount == 0:
		p.submitted = true
		p.write(progressStatusSubmitted, s, nil)
	case s.PollCount > p.lastPollCount:
		p.lastPollCount = s.PollCount
		p.write(progressStatusPolling, s, nil)
	}
}

func (p *ProgressReporter) write(status string, s acquisition.Session, extra map[string]interface{}) {
	progress := map[string]interface{}{
		"status":         status,
		"session_id":     s.ID,
		"company_name":   s.CompanyName,
		"current_status": s.Status,
		"elapsed":        s.Elapsed(p.now()).Round(time.Millisecond).String(),
		"poll_count":     s.PollCount,
		"is_timed_out":   s.IsTimedOut,
	}
	for k, v := range extra {
		progress[k] = v
	}
	_ = json.NewEncoder(p.w).Encode(progress)
}
