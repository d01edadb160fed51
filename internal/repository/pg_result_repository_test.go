package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

func TestPgResultRepository_UpsertReport(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts report with sources", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		report := &domain.ResearchReport{
			SessionID: uuid.New(),
			Report:    "## Findings\n...\nSources:\n[1] A. Author, Title. https://example.org/a",
			Sources: []domain.Source{
				{ID: 1, Citation: "A. Author, Title. https://example.org/a", URL: "https://example.org/a"},
			},
			CreatedAt: time.Now().UTC(),
		}

		mock.ExpectExec("INSERT INTO research_reports").
			WithArgs(report.SessionID, report.Report, pgxmock.AnyArg(), report.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.UpsertReport(ctx, report)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil sources serialize as empty array", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		report := &domain.ResearchReport{
			SessionID: uuid.New(),
			Report:    "no citations here",
			CreatedAt: time.Now().UTC(),
		}

		mock.ExpectExec("INSERT INTO research_reports").
			WithArgs(report.SessionID, report.Report, []byte("[]"), report.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.UpsertReport(ctx, report)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps foreign key violation to session not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		report := &domain.ResearchReport{SessionID: uuid.New(), Report: "r"}

		mock.ExpectExec("INSERT INTO research_reports").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		err = repo.UpsertReport(ctx, report)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("rejects nil report", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		err = repo.UpsertReport(ctx, nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgResultRepository_UpsertSummaryReasoning(t *testing.T) {
	ctx := context.Background()
	sessionID := uuid.New()
	now := time.Now().UTC()

	t.Run("upserts summary", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		mock.ExpectExec("INSERT INTO research_summaries").
			WithArgs(sessionID, "- point one\n- point two", now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.UpsertSummary(ctx, &domain.ResearchSummary{
			SessionID: sessionID, Summary: "- point one\n- point two", CreatedAt: now,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("upserts reasoning", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		mock.ExpectExec("INSERT INTO research_reasonings").
			WithArgs(sessionID, "Completed deep research workflow.", now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.UpsertReasoning(ctx, &domain.ResearchReasoning{
			SessionID: sessionID, Reasoning: "Completed deep research workflow.", CreatedAt: now,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgResultRepository_UpsertCost(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts cost with exact decimal", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		cost := &domain.ResearchCost{
			SessionID:        uuid.New(),
			InputTokens:      1200,
			OutputTokens:     450,
			TotalTokens:      1650,
			EstimatedCostUSD: decimal.RequireFromString("0.01275"),
			ModelName:        "gpt-4o",
			CreatedAt:        time.Now().UTC(),
		}

		mock.ExpectExec("INSERT INTO research_costs").
			WithArgs(cost.SessionID, cost.InputTokens, cost.OutputTokens, cost.TotalTokens,
				cost.EstimatedCostUSD, cost.ModelName, cost.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.UpsertCost(ctx, cost)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects missing session id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		err = repo.UpsertCost(ctx, &domain.ResearchCost{})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgResultRepository_Getters(t *testing.T) {
	ctx := context.Background()
	sessionID := uuid.New()
	now := time.Now().UTC()

	t.Run("GetReport round-trips sources", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		sourcesJSON := []byte(`[{"id":1,"citation":"A. Author, Title. https://example.org/a","url":"https://example.org/a"}]`)

		mock.ExpectQuery("SELECT session_id, report, sources, created_at FROM research_reports").
			WithArgs(sessionID).
			WillReturnRows(pgxmock.NewRows([]string{"session_id", "report", "sources", "created_at"}).
				AddRow(sessionID, "report body", sourcesJSON, now))

		report, err := repo.GetReport(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "report body", report.Report)
		require.Len(t, report.Sources, 1)
		assert.Equal(t, 1, report.Sources[0].ID)
		assert.Equal(t, "https://example.org/a", report.Sources[0].URL)
	})

	t.Run("GetReport returns not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		mock.ExpectQuery("SELECT session_id, report, sources, created_at FROM research_reports").
			WithArgs(sessionID).
			WillReturnRows(pgxmock.NewRows([]string{"session_id", "report", "sources", "created_at"}))

		_, err = repo.GetReport(ctx, sessionID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("GetCost scans decimal exactly", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)
		want := decimal.RequireFromString("0.03125")

		mock.ExpectQuery("SELECT session_id, input_tokens, output_tokens, total_tokens").
			WithArgs(sessionID).
			WillReturnRows(pgxmock.NewRows([]string{
				"session_id", "input_tokens", "output_tokens", "total_tokens",
				"estimated_cost_usd", "model_name", "created_at",
			}).AddRow(sessionID, 1000, 500, 1500, want, "claude-sonnet-4-20250514", now))

		cost, err := repo.GetCost(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, want.Equal(cost.EstimatedCostUSD))
		assert.Equal(t, 1500, cost.TotalTokens)
	})

	t.Run("GetSummary and GetReasoning return not found when absent", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResultRepository(mock)

		mock.ExpectQuery("SELECT session_id, summary, created_at FROM research_summaries").
			WithArgs(sessionID).
			WillReturnRows(pgxmock.NewRows([]string{"session_id", "summary", "created_at"}))
		_, err = repo.GetSummary(ctx, sessionID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		mock.ExpectQuery("SELECT session_id, reasoning, created_at FROM research_reasonings").
			WithArgs(sessionID).
			WillReturnRows(pgxmock.NewRows([]string{"session_id", "reasoning", "created_at"}))
		_, err = repo.GetReasoning(ctx, sessionID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}
