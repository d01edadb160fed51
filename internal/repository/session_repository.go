package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// SessionRepository handles research session persistence and lifecycle management.
// Read methods that carry a userID enforce per-user isolation; methods without one
// are reserved for the orchestration workers, which operate on sessions they were
// handed by ID.
type SessionRepository interface {
	// Create inserts a new research session.
	// The session must have a valid ID, UserID, and non-empty OriginalQuery.
	// If ParentID is set, the referenced session must exist and belong to the
	// same user; domain.ErrNotFound is returned otherwise.
	// Returns domain.ErrAlreadyExists if a session with the same ID already exists.
	Create(ctx context.Context, session *domain.ResearchSession) error

	// Get retrieves a research session by ID scoped to its owner.
	// Returns domain.ErrNotFound if no matching session exists or it belongs
	// to a different user.
	Get(ctx context.Context, userID string, id uuid.UUID) (*domain.ResearchSession, error)

	// GetByID retrieves a research session by ID without user scoping.
	// Intended for workflow activities that already hold a trusted session ID.
	// Returns domain.ErrNotFound if no matching session exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ResearchSession, error)

	// List retrieves the sessions matching the filter, newest first, along with
	// the total count for pagination.
	List(ctx context.Context, filter SessionFilter) ([]*domain.ResearchSession, int64, error)

	// UpdateStatus transitions the session to the given status under a row lock.
	// traceID, when non-empty, replaces the session's trace correlation ID in
	// the same update.
	// Returns domain.ErrNotFound if the session does not exist and
	// domain.ErrInvalidTransition if the move is not legal from the current
	// status. A transition to the status the session already holds is a no-op
	// and returns nil.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus, traceID string) error

	// Delete removes a session and, via cascade, its documents and results.
	// Scoped to the owner. Returns domain.ErrNotFound if no matching session
	// exists.
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

// SessionFilter specifies criteria for listing research sessions.
type SessionFilter struct {
	// UserID filters by owner (required).
	UserID string

	// Status filters by one or more session statuses (optional).
	// When multiple statuses are provided, sessions matching any status are returned.
	Status []domain.SessionStatus

	// CreatedAfter filters to sessions created after this timestamp (optional).
	CreatedAfter *time.Time

	// CreatedBefore filters to sessions created before this timestamp (optional).
	CreatedBefore *time.Time

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
// Returns domain.ErrInvalidInput if UserID is empty.
func (f *SessionFilter) Validate() error {
	if f.UserID == "" {
		return domain.NewValidationError("user_id", "user ID is required")
	}

	applyPaginationDefaults(&f.Limit, &f.Offset)

	return nil
}
