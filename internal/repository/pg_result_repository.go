package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// Compile-time interface verification.
var _ ResultRepository = (*PgResultRepository)(nil)

// PgResultRepository is a PostgreSQL implementation of ResultRepository.
// All writes are upserts keyed on session_id, matching the one-row-per-session
// uniqueness of the result tables.
type PgResultRepository struct {
	db DBTX
}

// NewPgResultRepository creates a new PostgreSQL result repository.
func NewPgResultRepository(db DBTX) *PgResultRepository {
	return &PgResultRepository{db: db}
}

// UpsertReport inserts or replaces the session's report and source list.
func (r *PgResultRepository) UpsertReport(ctx context.Context, report *domain.ResearchReport) error {
	if report == nil {
		return domain.NewValidationError("report", "report cannot be nil")
	}
	if report.SessionID == uuid.Nil {
		return domain.NewValidationError("session_id", "session ID is required")
	}

	// Sources serialize as an array even when empty, so readers never see NULL.
	sources := report.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	query := `
		INSERT INTO research_reports (session_id, report, sources, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET report = EXCLUDED.report,
			sources = EXCLUDED.sources,
			created_at = EXCLUDED.created_at`

	if _, err := r.db.Exec(ctx, query,
		report.SessionID, report.Report, sourcesJSON, report.CreatedAt,
	); err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("session", report.SessionID.String())
		}
		return fmt.Errorf("failed to upsert report: %w", err)
	}

	return nil
}

// UpsertSummary inserts or replaces the session's report summary.
func (r *PgResultRepository) UpsertSummary(ctx context.Context, summary *domain.ResearchSummary) error {
	if summary == nil {
		return domain.NewValidationError("summary", "summary cannot be nil")
	}
	if summary.SessionID == uuid.Nil {
		return domain.NewValidationError("session_id", "session ID is required")
	}

	query := `
		INSERT INTO research_summaries (session_id, summary, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE
		SET summary = EXCLUDED.summary,
			created_at = EXCLUDED.created_at`

	if _, err := r.db.Exec(ctx, query,
		summary.SessionID, summary.Summary, summary.CreatedAt,
	); err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("session", summary.SessionID.String())
		}
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	return nil
}

// UpsertReasoning inserts or replaces the session's run narrative.
func (r *PgResultRepository) UpsertReasoning(ctx context.Context, reasoning *domain.ResearchReasoning) error {
	if reasoning == nil {
		return domain.NewValidationError("reasoning", "reasoning cannot be nil")
	}
	if reasoning.SessionID == uuid.Nil {
		return domain.NewValidationError("session_id", "session ID is required")
	}

	query := `
		INSERT INTO research_reasonings (session_id, reasoning, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE
		SET reasoning = EXCLUDED.reasoning,
			created_at = EXCLUDED.created_at`

	if _, err := r.db.Exec(ctx, query,
		reasoning.SessionID, reasoning.Reasoning, reasoning.CreatedAt,
	); err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("session", reasoning.SessionID.String())
		}
		return fmt.Errorf("failed to upsert reasoning: %w", err)
	}

	return nil
}

// UpsertCost inserts or replaces the session's usage and cost record.
// The cost is stored as NUMERIC; decimal.Decimal round-trips exactly.
func (r *PgResultRepository) UpsertCost(ctx context.Context, cost *domain.ResearchCost) error {
	if cost == nil {
		return domain.NewValidationError("cost", "cost cannot be nil")
	}
	if cost.SessionID == uuid.Nil {
		return domain.NewValidationError("session_id", "session ID is required")
	}

	query := `
		INSERT INTO research_costs (
			session_id, input_tokens, output_tokens, total_tokens,
			estimated_cost_usd, model_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE
		SET input_tokens = EXCLUDED.input_tokens,
			output_tokens = EXCLUDED.output_tokens,
			total_tokens = EXCLUDED.total_tokens,
			estimated_cost_usd = EXCLUDED.estimated_cost_usd,
			model_name = EXCLUDED.model_name,
			created_at = EXCLUDED.created_at`

	if _, err := r.db.Exec(ctx, query,
		cost.SessionID, cost.InputTokens, cost.OutputTokens, cost.TotalTokens,
		cost.EstimatedCostUSD, cost.ModelName, cost.CreatedAt,
	); err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("session", cost.SessionID.String())
		}
		return fmt.Errorf("failed to upsert cost: %w", err)
	}

	return nil
}

// GetReport retrieves the session's report.
func (r *PgResultRepository) GetReport(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchReport, error) {
	query := `
		SELECT session_id, report, sources, created_at
		FROM research_reports
		WHERE session_id = $1`

	var report domain.ResearchReport
	var sourcesJSON []byte
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&report.SessionID, &report.Report, &sourcesJSON, &report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("report", sessionID.String())
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &report.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
	}

	return &report, nil
}

// GetSummary retrieves the session's report summary.
func (r *PgResultRepository) GetSummary(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchSummary, error) {
	query := `
		SELECT session_id, summary, created_at
		FROM research_summaries
		WHERE session_id = $1`

	var summary domain.ResearchSummary
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&summary.SessionID, &summary.Summary, &summary.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("summary", sessionID.String())
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	return &summary, nil
}

// GetReasoning retrieves the session's run narrative.
func (r *PgResultRepository) GetReasoning(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchReasoning, error) {
	query := `
		SELECT session_id, reasoning, created_at
		FROM research_reasonings
		WHERE session_id = $1`

	var reasoning domain.ResearchReasoning
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&reasoning.SessionID, &reasoning.Reasoning, &reasoning.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("reasoning", sessionID.String())
		}
		return nil, fmt.Errorf("failed to get reasoning: %w", err)
	}

	return &reasoning, nil
}

// GetCost retrieves the session's usage and cost record.
func (r *PgResultRepository) GetCost(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchCost, error) {
	query := `
		SELECT session_id, input_tokens, output_tokens, total_tokens,
			estimated_cost_usd, model_name, created_at
		FROM research_costs
		WHERE session_id = $1`

	var cost domain.ResearchCost
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&cost.SessionID, &cost.InputTokens, &cost.OutputTokens, &cost.TotalTokens,
		&cost.EstimatedCostUSD, &cost.ModelName, &cost.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("cost", sessionID.String())
		}
		return nil, fmt.Errorf("failed to get cost: %w", err)
	}

	return &cost, nil
}
