package valueobject

import "fmt"

// SessionStatus is the lifecycle state of one acquisition session.
type SessionStatus string

// Session status constants.
const (
	SessionStatusIdle      SessionStatus = "idle"
	SessionStatusAnalyzing SessionStatus = "analyzing"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusIdle:      {SessionStatusIdle, SessionStatusAnalyzing},
	SessionStatusAnalyzing: {SessionStatusAnalyzing, SessionStatusCompleted, SessionStatusFailed, SessionStatusIdle},
	SessionStatusCompleted: {SessionStatusIdle},
	SessionStatusFailed:    {SessionStatusIdle},
}

// NewSessionStatus creates a new SessionStatus with validation.
func NewSessionStatus(status string) (SessionStatus, error) {
	s := SessionStatus(status)
	if _, ok := sessionTransitions[s]; !ok {
		return "", fmt.Errorf("invalid session status: %s", status)
	}
	return s, nil
}

// String returns the string representation of the status.
func (s SessionStatus) String() string {
	return string(s)
}

// IsTerminal reports whether polling for the session has stopped for good.
// Terminal sessions still return to idle when a new search starts.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// CanTransitionTo returns true if a session in this status may move to target.
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
