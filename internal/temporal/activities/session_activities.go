package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.temporal.io/sdk/activity"

	"github.com/Amn-7/open-deep-research/internal/domain"
	"github.com/Amn-7/open-deep-research/internal/events"
	"github.com/Amn-7/open-deep-research/internal/observability"
	"github.com/Amn-7/open-deep-research/internal/repository"
	"github.com/Amn-7/open-deep-research/internal/research"
)

// Transactor runs a function inside one database transaction.
// *database.DB implements it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// SessionActivities provides Temporal activities for session lifecycle
// management: loading, the readiness-gate data, status transitions, context
// assembly, and the terminal commits. Methods on this struct are registered
// as Temporal activities via the worker.
type SessionActivities struct {
	db        Transactor
	sessions  repository.SessionRepository
	documents repository.DocumentRepository
	results   repository.ResultRepository
	publisher events.Publisher
	metrics   *observability.Metrics
}

// NewSessionActivities creates a new SessionActivities instance. The metrics
// parameter may be nil (metrics recording is skipped); publisher may be nil
// (no lifecycle events are emitted).
func NewSessionActivities(
	db Transactor,
	sessions repository.SessionRepository,
	documents repository.DocumentRepository,
	results repository.ResultRepository,
	publisher events.Publisher,
	metrics *observability.Metrics,
) *SessionActivities {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &SessionActivities{
		db:        db,
		sessions:  sessions,
		documents: documents,
		results:   results,
		publisher: publisher,
		metrics:   metrics,
	}
}

// GetSession loads a session by ID. A missing session is reported through
// Found rather than an error so the workflow can no-op instead of retrying.
func (a *SessionActivities) GetSession(ctx context.Context, input GetSessionInput) (*GetSessionOutput, error) {
	logger := activity.GetLogger(ctx)

	session, err := a.sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("session not found", "sessionID", input.SessionID)
			return &GetSessionOutput{Found: false}, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &GetSessionOutput{Session: session, Found: true}, nil
}

// ListDocuments returns the session's documents for the readiness gate.
func (a *SessionActivities) ListDocuments(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	docs, err := a.documents.ListBySession(ctx, input.SessionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	if a.metrics != nil && input.WaitWindow > 0 {
		decision := research.EvaluateGate(docs, time.Now(), input.WaitWindow)
		a.metrics.RecordDocumentWait(string(decision))
	}

	return &ListDocumentsOutput{Documents: docs}, nil
}

// MarkRunning transitions the session to RUNNING. The transition is a no-op
// when the session is already RUNNING, so activity retries are safe.
func (a *SessionActivities) MarkRunning(ctx context.Context, input MarkRunningInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("marking session running", "sessionID", input.SessionID)

	if err := a.sessions.UpdateStatus(ctx, input.SessionID, domain.SessionStatusRunning, ""); err != nil {
		return fmt.Errorf("mark session running: %w", err)
	}
	return nil
}

// BuildContext assembles the generation input for a session: the parent's
// summary (when one exists) as do-not-repeat context, the non-empty document
// summaries, and the original query.
func (a *SessionActivities) BuildContext(ctx context.Context, input BuildContextInput) (*BuildContextOutput, error) {
	session, err := a.sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var parentSummary string
	if session.ParentID != nil {
		summary, err := a.results.GetSummary(ctx, *session.ParentID)
		switch {
		case err == nil:
			parentSummary = summary.Summary
		case errors.Is(err, domain.ErrNotFound):
			// A parent without a committed summary contributes nothing.
		default:
			return nil, fmt.Errorf("get parent summary: %w", err)
		}
	}

	docs, err := a.documents.ListBySession(ctx, input.SessionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var docSummaries []string
	for _, doc := range docs {
		if doc.ExtractedSummary != "" {
			docSummaries = append(docSummaries, doc.ExtractedSummary)
		}
	}

	return &BuildContextOutput{
		Input:             research.AssembleInput(session.OriginalQuery, parentSummary, docSummaries),
		UsedParentContext: parentSummary != "",
		DocumentSummaries: len(docSummaries),
	}, nil
}

// CommitResults commits a successful run in one transaction: the COMPLETED
// transition with the trace id, plus the Report, Summary, Reasoning, and
// Cost upserts. All five writes succeed together or none do. The upserts
// make re-commit idempotent: running the commit twice leaves one record per
// table with the latest values.
func (a *SessionActivities) CommitResults(ctx context.Context, input CommitResultsInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("committing run results",
		"sessionID", input.SessionID,
		"traceID", input.TraceID,
		"sourceCount", len(input.Results.Sources),
	)

	now := time.Now().UTC()
	err := a.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		sessions := repository.NewPgSessionRepository(tx)
		results := repository.NewPgResultRepository(tx)

		if err := sessions.UpdateStatus(ctx, input.SessionID, domain.SessionStatusCompleted, input.TraceID); err != nil {
			return fmt.Errorf("mark session completed: %w", err)
		}
		if err := results.UpsertReport(ctx, &domain.ResearchReport{
			SessionID: input.SessionID,
			Report:    input.Results.Report,
			Sources:   input.Results.Sources,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("upsert report: %w", err)
		}
		if err := results.UpsertSummary(ctx, &domain.ResearchSummary{
			SessionID: input.SessionID,
			Summary:   input.Results.Summary,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("upsert summary: %w", err)
		}
		if err := results.UpsertReasoning(ctx, &domain.ResearchReasoning{
			SessionID: input.SessionID,
			Reasoning: input.Results.Reasoning,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("upsert reasoning: %w", err)
		}
		if err := results.UpsertCost(ctx, &domain.ResearchCost{
			SessionID:        input.SessionID,
			InputTokens:      input.Results.InputTokens,
			OutputTokens:     input.Results.OutputTokens,
			TotalTokens:      input.Results.InputTokens + input.Results.OutputTokens,
			EstimatedCostUSD: input.Results.EstimatedCostUSD,
			ModelName:        input.Results.CostModel,
			CreatedAt:        now,
		}); err != nil {
			return fmt.Errorf("upsert cost: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.publisher.Publish(ctx, events.SessionEvent{
		Type:      events.EventSessionCompleted,
		SessionID: input.SessionID.String(),
		TraceID:   input.TraceID,
	})

	return nil
}

// FailRun commits a failed run in one transaction: the FAILED transition
// with the trace id, plus a Reasoning record naming the error kind and
// message. Stack traces and chain-of-thought never reach the database.
func (a *SessionActivities) FailRun(ctx context.Context, input FailRunInput) error {
	logger := activity.GetLogger(ctx)
	logger.Warn("failing run",
		"sessionID", input.SessionID,
		"kind", input.Kind,
	)

	err := a.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		sessions := repository.NewPgSessionRepository(tx)
		results := repository.NewPgResultRepository(tx)

		if err := sessions.UpdateStatus(ctx, input.SessionID, domain.SessionStatusFailed, input.TraceID); err != nil {
			return fmt.Errorf("mark session failed: %w", err)
		}
		if err := results.UpsertReasoning(ctx, &domain.ResearchReasoning{
			SessionID: input.SessionID,
			Reasoning: research.FailureReasoning(input.Kind, input.Message),
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("upsert failure reasoning: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.publisher.Publish(ctx, events.SessionEvent{
		Type:      events.EventSessionFailed,
		SessionID: input.SessionID.String(),
		TraceID:   input.TraceID,
	})

	return nil
}
