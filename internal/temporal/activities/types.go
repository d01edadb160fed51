// Package activities provides Temporal activity implementations for the
// deep research pipeline.
//
// Activity inputs and outputs are defined as serializable structs that cross
// the Temporal serialization boundary. Each activity receives an input struct
// and returns an output struct (or error). All fields must be exported for
// JSON serialization by the Temporal SDK's default data converter.
package activities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// GetSessionInput contains the parameters for the session load activity.
type GetSessionInput struct {
	// SessionID is the session to load.
	SessionID uuid.UUID
}

// GetSessionOutput contains the loaded session. Found is false when the
// session does not exist, which the workflow treats as a no-op rather than
// an error.
type GetSessionOutput struct {
	// Session is the loaded session, nil when Found is false.
	Session *domain.ResearchSession

	// Found reports whether the session exists.
	Found bool
}

// ListDocumentsInput contains the parameters for the document listing
// activity feeding the readiness gate.
type ListDocumentsInput struct {
	// SessionID is the owning session.
	SessionID uuid.UUID

	// WaitWindow, when positive, is the gate's wait window. The activity
	// records the gate decision metric against it; the workflow itself
	// re-evaluates the gate on its own clock.
	WaitWindow time.Duration
}

// ListDocumentsOutput contains the session's documents, oldest first.
type ListDocumentsOutput struct {
	// Documents are all documents of the session, processed or not.
	Documents []*domain.Document
}

// MarkRunningInput contains the parameters for the RUNNING transition
// activity.
type MarkRunningInput struct {
	// SessionID is the session to transition.
	SessionID uuid.UUID
}

// BuildContextInput contains the parameters for the context assembly
// activity.
type BuildContextInput struct {
	// SessionID is the session whose generation input is assembled.
	SessionID uuid.UUID
}

// BuildContextOutput contains the assembled generation input and the facts
// about it that feed the reasoning narrative.
type BuildContextOutput struct {
	// Input is the full generation input: query plus context blocks.
	Input string

	// UsedParentContext reports whether a parent summary was included.
	UsedParentContext bool

	// DocumentSummaries is how many document summaries were included.
	DocumentSummaries int
}

// RunGenerationInput contains the parameters for the single generation
// invocation of a run.
type RunGenerationInput struct {
	// SessionID is the session being researched.
	SessionID uuid.UUID

	// Input is the assembled generation input.
	Input string

	// TraceID is the run's correlation identifier.
	TraceID string

	// UsedParentContext feeds the reasoning narrative.
	UsedParentContext bool

	// DocumentSummaries feeds the reasoning narrative.
	DocumentSummaries int
}

// RunGenerationOutput contains every derived record of a successful
// generation: the report and its sources, the bounded summary, the reasoning
// narrative, and the usage/cost accounting.
type RunGenerationOutput struct {
	// Report is the generated report text.
	Report string

	// Sources is the structured citation list.
	Sources []domain.Source

	// Summary is the bounded report summary.
	Summary string

	// Reasoning is the bounded run narrative.
	Reasoning string

	// InputTokens is the run's total input token count.
	InputTokens int

	// OutputTokens is the run's total output token count.
	OutputTokens int

	// CostModel is the model identifier the cost estimate was computed for.
	CostModel string

	// EstimatedCostUSD is the exact-decimal cost estimate.
	EstimatedCostUSD decimal.Decimal
}

// CommitResultsInput contains the parameters for the atomic result commit
// activity.
type CommitResultsInput struct {
	// SessionID is the session to complete.
	SessionID uuid.UUID

	// TraceID is stored on the session alongside the COMPLETED transition.
	TraceID string

	// Results carries the derived records to upsert.
	Results RunGenerationOutput
}

// FailRunInput contains the parameters for the failure commit activity.
type FailRunInput struct {
	// SessionID is the session to fail.
	SessionID uuid.UUID

	// TraceID is stored on the session alongside the FAILED transition.
	TraceID string

	// Kind is the short error classification.
	Kind string

	// Message is the error message. Never a stack trace.
	Message string
}

// ProcessDocumentInput contains the parameters for the document ingestion
// activity.
type ProcessDocumentInput struct {
	// DocumentID is the uploaded document to process.
	DocumentID uuid.UUID
}

// ProcessDocumentOutput contains the outcome of the ingestion activity.
type ProcessDocumentOutput struct {
	// Result is the terminal outcome code. Re-running on an already processed
	// document reports processed without touching the row.
	Result domain.DocumentResult
}
