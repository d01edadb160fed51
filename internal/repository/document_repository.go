package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// DocumentRepository handles uploaded document persistence. Documents are
// created with both extracted fields blank and receive exactly one terminal
// update from the ingestion worker.
type DocumentRepository interface {
	// Create inserts a new uploaded document with blank extraction fields.
	// The owning session must exist; domain.ErrNotFound is returned otherwise.
	// Returns domain.ErrAlreadyExists if a document with the same ID already exists.
	Create(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID.
	// Returns domain.ErrNotFound if no matching document exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Document, error)

	// ListBySession retrieves all documents of a session, oldest first.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Document, error)

	// CountUnprocessed returns how many of the session's documents have not
	// yet received their terminal ingestion update.
	CountUnprocessed(ctx context.Context, sessionID uuid.UUID) (int, error)

	// SetExtraction writes the ingestion worker's terminal update: the bounded
	// text excerpt and summary (or a diagnostic tag on failure).
	// Returns domain.ErrNotFound if the document no longer exists.
	SetExtraction(ctx context.Context, id uuid.UUID, extractedText, extractedSummary string) error
}
