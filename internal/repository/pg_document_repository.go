package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// Compile-time interface verification.
var _ DocumentRepository = (*PgDocumentRepository)(nil)

// PgDocumentRepository is a PostgreSQL implementation of DocumentRepository.
type PgDocumentRepository struct {
	db DBTX
}

// NewPgDocumentRepository creates a new PostgreSQL document repository.
func NewPgDocumentRepository(db DBTX) *PgDocumentRepository {
	return &PgDocumentRepository{db: db}
}

const documentColumns = `id, session_id, storage_path, filename, extracted_text, extracted_summary, created_at`

// Create inserts a new uploaded document with blank extraction fields.
func (r *PgDocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.NewValidationError("document", "document cannot be nil")
	}
	if doc.ID == uuid.Nil {
		return domain.NewValidationError("id", "document ID is required")
	}
	if doc.SessionID == uuid.Nil {
		return domain.NewValidationError("session_id", "session ID is required")
	}
	if doc.StoragePath == "" {
		return domain.NewValidationError("storage_path", "storage path is required")
	}

	query := `
		INSERT INTO uploaded_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		doc.ID, doc.SessionID, doc.StoragePath, doc.Filename,
		doc.ExtractedText, doc.ExtractedSummary, doc.CreatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("document", doc.ID.String())
		}
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("session", doc.SessionID.String())
		}
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// Get retrieves a document by ID.
func (r *PgDocumentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM uploaded_documents
		WHERE id = $1`

	var doc domain.Document
	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.SessionID, &doc.StoragePath, &doc.Filename,
		&doc.ExtractedText, &doc.ExtractedSummary, &doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("document", id.String())
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// ListBySession retrieves all documents of a session, oldest first.
func (r *PgDocumentRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM uploaded_documents
		WHERE session_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(
			&doc.ID, &doc.SessionID, &doc.StoragePath, &doc.Filename,
			&doc.ExtractedText, &doc.ExtractedSummary, &doc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// CountUnprocessed returns how many of the session's documents have not yet
// received their terminal ingestion update. A document counts as unprocessed
// while both extracted fields are blank.
func (r *PgDocumentRepository) CountUnprocessed(ctx context.Context, sessionID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM uploaded_documents
		WHERE session_id = $1
		  AND extracted_text = ''
		  AND extracted_summary = ''`

	var count int
	if err := r.db.QueryRow(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unprocessed documents: %w", err)
	}

	return count, nil
}

// SetExtraction writes the ingestion worker's terminal update.
func (r *PgDocumentRepository) SetExtraction(ctx context.Context, id uuid.UUID, extractedText, extractedSummary string) error {
	query := `
		UPDATE uploaded_documents
		SET extracted_text = $1,
			extracted_summary = $2
		WHERE id = $3`

	result, err := r.db.Exec(ctx, query, extractedText, extractedSummary, id)
	if err != nil {
		return fmt.Errorf("failed to set document extraction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("document", id.String())
	}

	return nil
}
