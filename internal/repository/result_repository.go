package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// ResultRepository handles the derived result records of a research run: the
// report, its summary, the run reasoning, and the cost accounting. Each record
// is one-to-one with its session and is replaced wholesale when a run is
// retried, so all writes are upserts keyed on session ID.
//
// The result commit is atomic: callers wrap the four upserts plus the session
// status transition in one transaction via database.DB.WithTransaction,
// constructing a transactional repository over the pgx.Tx.
type ResultRepository interface {
	// UpsertReport inserts or replaces the session's report and source list.
	UpsertReport(ctx context.Context, report *domain.ResearchReport) error

	// UpsertSummary inserts or replaces the session's report summary.
	UpsertSummary(ctx context.Context, summary *domain.ResearchSummary) error

	// UpsertReasoning inserts or replaces the session's run narrative.
	UpsertReasoning(ctx context.Context, reasoning *domain.ResearchReasoning) error

	// UpsertCost inserts or replaces the session's usage and cost record.
	UpsertCost(ctx context.Context, cost *domain.ResearchCost) error

	// GetReport retrieves the session's report.
	// Returns domain.ErrNotFound if the session has no committed report.
	GetReport(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchReport, error)

	// GetSummary retrieves the session's report summary.
	// Returns domain.ErrNotFound if absent.
	GetSummary(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchSummary, error)

	// GetReasoning retrieves the session's run narrative.
	// Returns domain.ErrNotFound if absent.
	GetReasoning(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchReasoning, error)

	// GetCost retrieves the session's usage and cost record.
	// Returns domain.ErrNotFound if absent.
	GetCost(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchCost, error)
}
