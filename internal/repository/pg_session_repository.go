package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// txBeginner is an interface for types that can begin a transaction (e.g., *pgxpool.Pool, *database.DB).
// Used by UpdateStatus to automatically wrap SELECT FOR UPDATE + UPDATE in a transaction
// when the underlying DBTX is a pool rather than an existing transaction.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation     = "23505" // unique_violation
	pgForeignKeyViolation = "23503" // foreign_key_violation
)

// Compile-time interface verification.
var _ SessionRepository = (*PgSessionRepository)(nil)

// PgSessionRepository is a PostgreSQL implementation of SessionRepository.
type PgSessionRepository struct {
	db DBTX
}

// NewPgSessionRepository creates a new PostgreSQL session repository.
func NewPgSessionRepository(db DBTX) *PgSessionRepository {
	return &PgSessionRepository{db: db}
}

const sessionColumns = `id, user_id, parent_id, original_query, status, trace_id, created_at, updated_at`

// Create inserts a new research session.
func (r *PgSessionRepository) Create(ctx context.Context, session *domain.ResearchSession) error {
	if session == nil {
		return domain.NewValidationError("session", "session cannot be nil")
	}
	if session.ID == uuid.Nil {
		return domain.NewValidationError("id", "session ID is required")
	}
	if session.UserID == "" {
		return domain.NewValidationError("user_id", "user ID is required")
	}
	if strings.TrimSpace(session.OriginalQuery) == "" {
		return domain.NewValidationError("original_query", "query is required")
	}

	// A follow-up must continue a session of the same owner.
	if session.ParentID != nil {
		var parentUser string
		err := r.db.QueryRow(ctx,
			`SELECT user_id FROM research_sessions WHERE id = $1`,
			*session.ParentID,
		).Scan(&parentUser)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NewNotFoundError("session", session.ParentID.String())
			}
			return fmt.Errorf("failed to check parent session: %w", err)
		}
		if parentUser != session.UserID {
			return domain.NewNotFoundError("session", session.ParentID.String())
		}
	}

	query := `
		INSERT INTO research_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		session.ID, session.UserID, session.ParentID, session.OriginalQuery,
		session.Status, nullString(session.TraceID),
		session.CreatedAt, session.UpdatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("session", session.ID.String())
		}
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("session", session.ParentID.String())
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// Get retrieves a research session by ID scoped to its owner.
func (r *PgSessionRepository) Get(ctx context.Context, userID string, id uuid.UUID) (*domain.ResearchSession, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM research_sessions
		WHERE id = $1 AND user_id = $2`

	session, err := scanSession(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("session", id.String())
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// GetByID retrieves a research session by ID without user scoping.
func (r *PgSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ResearchSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM research_sessions
		WHERE id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("session", id.String())
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// List retrieves research sessions matching the filter criteria.
func (r *PgSessionRepository) List(ctx context.Context, filter SessionFilter) ([]*domain.ResearchSession, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	// Build dynamic WHERE clause
	conditions := []string{"user_id = $1"}
	args := []interface{}{filter.UserID}
	argIndex := 2

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, s)
			argIndex++
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", argIndex))
		args = append(args, *filter.CreatedAfter)
		argIndex++
	}

	if filter.CreatedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIndex))
		args = append(args, *filter.CreatedBefore)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// Count total matching records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM research_sessions WHERE %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	// Query with pagination
	selectQuery := fmt.Sprintf(`
		SELECT `+sessionColumns+`
		FROM research_sessions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*domain.ResearchSession, 0, filter.Limit)
	for rows.Next() {
		session, err := scanSessionFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, totalCount, nil
}

// UpdateStatus transitions the session to the given status under a row lock.
//
// Transaction Management:
// This method uses SELECT FOR UPDATE which requires a transaction for correct locking.
// If the underlying DBTX is a connection pool (supports Begin), the method automatically
// wraps the SELECT FOR UPDATE + UPDATE in an explicit transaction. If the underlying
// DBTX is already a transaction, it executes within that existing transaction.
func (r *PgSessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus, traceID string) error {
	if beginner, ok := r.db.(txBeginner); ok {
		tx, err := beginner.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for status update: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		txRepo := &PgSessionRepository{db: tx}
		if err := txRepo.updateStatusInTx(ctx, id, status, traceID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	// Already running within a transaction.
	return r.updateStatusInTx(ctx, id, status, traceID)
}

// updateStatusInTx performs the actual SELECT FOR UPDATE + UPDATE within the current DBTX.
// This must be called within a transaction for correct row-level locking.
func (r *PgSessionRepository) updateStatusInTx(ctx context.Context, id uuid.UUID, status domain.SessionStatus, traceID string) error {
	rows, err := r.db.Query(ctx,
		`SELECT status FROM research_sessions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return fmt.Errorf("failed to lock session for status update: %w", err)
	}

	current, err := scanStatusRows(rows)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("session", id.String())
		}
		return fmt.Errorf("failed to scan session status: %w", err)
	}

	// Re-applying the current status is a no-op: workflow activities retry, and
	// a replayed transition must not fail the run.
	if current == status {
		return nil
	}

	if !current.CanTransitionTo(status) {
		return &domain.TransitionError{From: current, To: status}
	}

	query := `
		UPDATE research_sessions
		SET status = $1,
			trace_id = COALESCE($2, trace_id),
			updated_at = $3
		WHERE id = $4`

	_, err = r.db.Exec(ctx, query, status, nullString(traceID), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	return nil
}

// Delete removes a session and its dependent rows via cascade.
func (r *PgSessionRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "user ID is required")
	}

	result, err := r.db.Exec(ctx,
		`DELETE FROM research_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("session", id.String())
	}

	return nil
}

// isPgUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// isPgForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func isPgForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return false
}

// sessionScanDest holds the destination pointers for scanning a ResearchSession row.
// This eliminates code duplication between pgx.Row and pgx.Rows scanning.
type sessionScanDest struct {
	session domain.ResearchSession
	traceID *string
}

// destinations returns the slice of pointers for Scan operations.
func (d *sessionScanDest) destinations() []interface{} {
	return []interface{}{
		&d.session.ID, &d.session.UserID, &d.session.ParentID, &d.session.OriginalQuery,
		&d.session.Status, &d.traceID,
		&d.session.CreatedAt, &d.session.UpdatedAt,
	}
}

// finalize performs post-scan processing: sets nullable string fields.
func (d *sessionScanDest) finalize() *domain.ResearchSession {
	if d.traceID != nil {
		d.session.TraceID = *d.traceID
	}
	return &d.session
}

// scanSession scans a single row into a ResearchSession.
func scanSession(row pgx.Row) (*domain.ResearchSession, error) {
	var dest sessionScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize(), nil
}

// scanSessionFromRows scans the current row from pgx.Rows into a ResearchSession.
func scanSessionFromRows(rows pgx.Rows) (*domain.ResearchSession, error) {
	var dest sessionScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize(), nil
}

// scanStatusRows scans a single status value from pgx.Rows.
// This is used with SELECT FOR UPDATE which returns Rows instead of Row.
func scanStatusRows(rows pgx.Rows) (domain.SessionStatus, error) {
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", pgx.ErrNoRows
	}

	var status domain.SessionStatus
	if err := rows.Scan(&status); err != nil {
		return "", err
	}
	return status, nil
}

// nullString returns a pointer to the string if non-empty, otherwise nil.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
