// Package research holds the pure decision logic of the research pipeline:
// the document-readiness gate, generation input assembly, result extraction,
// and the reasoning narrative. Everything here is side-effect free so the
// workflow and activities stay thin.
package research

import (
	"time"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// GateDecision is the outcome of the document-readiness check.
type GateDecision string

const (
	// GateProceed means every document is processed (or there are none).
	GateProceed GateDecision = "proceed"
	// GateRequeue means unprocessed documents are still young enough to
	// wait for; the run should re-check after the requeue delay.
	GateRequeue GateDecision = "requeue"
	// GateWindowExpired means unprocessed documents remain but the wait
	// window has elapsed; the run proceeds without their summaries.
	GateWindowExpired GateDecision = "window_expired"
)

// EvaluateGate decides whether a run may start given the session's documents.
// The wait is bounded by the age of the oldest unprocessed document: once
// that document has been pending longer than window, waiting stops even if
// ingestion never finishes.
func EvaluateGate(docs []*domain.Document, now time.Time, window time.Duration) GateDecision {
	var oldest *domain.Document
	for _, doc := range docs {
		if doc.IsProcessed() {
			continue
		}
		if oldest == nil || doc.CreatedAt.Before(oldest.CreatedAt) {
			oldest = doc
		}
	}
	if oldest == nil {
		return GateProceed
	}
	if now.Sub(oldest.CreatedAt) < window {
		return GateRequeue
	}
	return GateWindowExpired
}
