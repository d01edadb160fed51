package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResearchSession is one research job and its lineage position. A session with
// a non-nil ParentID is a follow-up thread continuing an earlier session; the
// parent reference is non-owning (the parent may be deleted, in which case the
// child becomes root-like).
type ResearchSession struct {
	ID uuid.UUID `json:"id"`

	// UserID is the owner of the session.
	UserID string `json:"user_id"`

	// ParentID references an earlier session of the same owner, if this is a
	// continuation. Nil for root sessions.
	ParentID *uuid.UUID `json:"parent_id,omitempty"`

	// OriginalQuery is the user's research question, verbatim.
	OriginalQuery string `json:"original_query"`

	// Status is the lifecycle state. Only the orchestrator workflow moves a
	// session out of PENDING.
	Status SessionStatus `json:"status"`

	// TraceID is the opaque correlation id of the most recent run. Empty until
	// a run starts.
	TraceID string `json:"trace_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive returns true if the session has not reached a terminal state.
func (s *ResearchSession) IsActive() bool {
	return !s.Status.IsTerminal()
}

// Source is one structured citation attached to a report.
type Source struct {
	// ID is the numeric citation marker from the report text.
	ID int `json:"id"`

	// Citation is the full citation line (title, venue, and so on).
	Citation string `json:"citation"`

	// URL is the first http(s) link found in the citation, or empty.
	URL string `json:"url"`
}

// ResearchReport is the generated report and its citation list. One-to-one with
// a session; replaced wholesale when a run is retried.
type ResearchReport struct {
	SessionID uuid.UUID `json:"session_id"`
	Report    string    `json:"report"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}

// ResearchSummary is the bounded bullet-point summary of a report. One-to-one
// with a session.
type ResearchSummary struct {
	SessionID uuid.UUID `json:"session_id"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// ResearchReasoning is the short, structured narrative of how a run went:
// which workflow, which search mode, how many sources were kept. Never raw
// chain-of-thought.
type ResearchReasoning struct {
	SessionID uuid.UUID `json:"session_id"`
	Reasoning string    `json:"reasoning"`
	CreatedAt time.Time `json:"created_at"`
}

// ResearchCost is the token and monetary accounting of one run. One-to-one
// with a session. EstimatedCostUSD uses exact decimal arithmetic.
type ResearchCost struct {
	SessionID        uuid.UUID       `json:"session_id"`
	InputTokens      int             `json:"input_tokens"`
	OutputTokens     int             `json:"output_tokens"`
	TotalTokens      int             `json:"total_tokens"`
	EstimatedCostUSD decimal.Decimal `json:"estimated_cost_usd"`
	ModelName        string          `json:"model_name"`
	CreatedAt        time.Time       `json:"created_at"`
}
