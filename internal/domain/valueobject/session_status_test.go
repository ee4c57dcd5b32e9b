package valueobject

import "testing"

func TestNewSessionStatus(t *testing.T) {
	for _, input := range []string{"idle", "analyzing", "completed", "failed"} {
		status, err := NewSessionStatus(input)
		if err != nil {
			t.Fatalf("Expected no error for %s, got: %v", input, err)
		}
		if status.String() != input {
			t.Errorf("Expected %s, got %s", input, status)
		}
	}

	if _, err := NewSessionStatus("processing"); err == nil {
		t.Error("Expected error for job status used as session status")
	}
}

func TestSessionStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		allowed  bool
	}{
		{SessionStatusIdle, SessionStatusAnalyzing, true},
		{SessionStatusIdle, SessionStatusIdle, true},
		{SessionStatusIdle, SessionStatusCompleted, false},
		{SessionStatusAnalyzing, SessionStatusCompleted, true},
		{SessionStatusAnalyzing, SessionStatusFailed, true},
		{SessionStatusAnalyzing, SessionStatusAnalyzing, true},
		{SessionStatusAnalyzing, SessionStatusIdle, true},
		{SessionStatusCompleted, SessionStatusIdle, true},
		{SessionStatusCompleted, SessionStatusAnalyzing, false},
		{SessionStatusFailed, SessionStatusIdle, true},
		{SessionStatusFailed, SessionStatusCompleted, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	if SessionStatusIdle.IsTerminal() || SessionStatusAnalyzing.IsTerminal() {
		t.Error("idle and analyzing are not terminal")
	}
	if !SessionStatusCompleted.IsTerminal() || !SessionStatusFailed.IsTerminal() {
		t.Error("completed and failed are terminal")
	}
}
