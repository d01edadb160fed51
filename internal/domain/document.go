package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document is one user-uploaded reference file attached to a session. It is
// created with both extracted fields blank and receives exactly one terminal
// update from the ingestion worker; it is never reprocessed afterwards.
type Document struct {
	ID uuid.UUID `json:"id"`

	// SessionID is the owning session. Documents are cascade-deleted with it.
	SessionID uuid.UUID `json:"session_id"`

	// StoragePath is the opaque file-store reference for the uploaded bytes.
	StoragePath string `json:"storage_path"`

	// Filename is the original upload name, used for extension resolution.
	Filename string `json:"filename"`

	// ExtractedText is the bounded excerpt of the extracted text. Blank until
	// ingestion, and blank forever for empty or failed extractions.
	ExtractedText string `json:"extracted_text"`

	// ExtractedSummary is the bounded summary of the extracted text. On
	// extraction failure it carries a short diagnostic tag instead.
	ExtractedSummary string `json:"extracted_summary"`

	CreatedAt time.Time `json:"created_at"`
}

// IsProcessed reports whether the ingestion worker has written its terminal
// update. Unprocessed documents have both extracted fields blank.
func (d *Document) IsProcessed() bool {
	return d.ExtractedText != "" || d.ExtractedSummary != ""
}
