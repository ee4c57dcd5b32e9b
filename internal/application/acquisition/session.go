package acquisition

import (
	"time"

	"signalscore/internal/application/dto"
	"signalscore/internal/domain/normalization"
	"signalscore/internal/domain/valueobject"
)

// Session is a read-only snapshot of one user-initiated search.
type Session struct {
	ID            string                    `json:"id"`
	Status        valueobject.SessionStatus `json:"status"`
	Query         string                    `json:"query"`
	NormalizedURL string                    `json:"normalized_url,omitempty"`
	Warning       string                    `json:"warning,omitempty"`
	CompanyName   string                    `json:"company_name,omitempty"`
	StartedAt     *time.Time                `json:"started_at,omitempty"`
	IsTimedOut    bool                      `json:"is_timed_out"`
	PollPending   bool                      `json:"poll_pending"`
	PollCount     int                       `json:"poll_count"`
	ErrorMessage  string                    `json:"error_message,omitempty"`
	Score         *dto.ScoreResponse        `json:"score,omitempty"`
	Company       *dto.Company              `json:"company,omitempty"`

	// Err is the underlying cause behind ErrorMessage, if any.
	Err error `json:"-"`
}

// IsTerminal reports whether the session reached Completed or Failed.
func (s Session) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// Advisory returns the timeout advisory while a timed out session is still analyzing.
func (s Session) Advisory() string {
	if s.IsTimedOut && s.Status == valueobject.SessionStatusAnalyzing {
		return TimeoutAdvisory
	}
	return ""
}

// Elapsed returns how long the session has been running at now.
func (s Session) Elapsed(now time.Time) time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	return now.Sub(*s.StartedAt)
}

// companyFor derives the company record presented for a completed session.
func companyFor(s Session, score *dto.ScoreResponse) *dto.Company {
	company := &dto.Company{Name: s.CompanyName, URL: s.NormalizedURL}
	if score != nil {
		if score.CompanyName != "" {
			company.Name = score.CompanyName
		}
		if score.CareersURL != "" {
			company.URL = score.CareersURL
		}
	}

	if domain, ok := normalization.ExtractRootDomain(company.URL); ok {
		company.Domain = domain
	} else if domain, ok := normalization.ExtractRootDomain(s.NormalizedURL); ok {
		company.Domain = domain
	}
	return company
}
