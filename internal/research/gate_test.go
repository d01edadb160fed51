package research

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

func doc(createdAt time.Time, processed bool) *domain.Document {
	d := &domain.Document{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Filename:  "notes.txt",
		CreatedAt: createdAt,
	}
	if processed {
		d.ExtractedText = "text"
		d.ExtractedSummary = "summary"
	}
	return d
}

func TestEvaluateGateNoDocuments(t *testing.T) {
	now := time.Now()
	assert.Equal(t, GateProceed, EvaluateGate(nil, now, 2*time.Minute))
}

func TestEvaluateGateAllProcessed(t *testing.T) {
	now := time.Now()
	docs := []*domain.Document{
		doc(now.Add(-10*time.Second), true),
		doc(now.Add(-5*time.Minute), true),
	}
	assert.Equal(t, GateProceed, EvaluateGate(docs, now, 2*time.Minute))
}

func TestEvaluateGateYoungUnprocessedRequeues(t *testing.T) {
	now := time.Now()
	docs := []*domain.Document{
		doc(now.Add(-30*time.Second), false),
	}
	assert.Equal(t, GateRequeue, EvaluateGate(docs, now, 2*time.Minute))
}

func TestEvaluateGateOldestDrivesDecision(t *testing.T) {
	now := time.Now()
	docs := []*domain.Document{
		doc(now.Add(-10*time.Second), false),
		doc(now.Add(-3*time.Minute), false),
	}
	// The oldest unprocessed document is past the window, so waiting stops
	// even though a younger one is still pending.
	assert.Equal(t, GateWindowExpired, EvaluateGate(docs, now, 2*time.Minute))
}

func TestEvaluateGateIgnoresProcessedAge(t *testing.T) {
	now := time.Now()
	docs := []*domain.Document{
		doc(now.Add(-10*time.Minute), true),
		doc(now.Add(-20*time.Second), false),
	}
	assert.Equal(t, GateRequeue, EvaluateGate(docs, now, 2*time.Minute))
}

func TestEvaluateGateWindowBoundary(t *testing.T) {
	now := time.Now()
	window := 2 * time.Minute
	// Exactly at the window the wait is over.
	docs := []*domain.Document{doc(now.Add(-window), false)}
	assert.Equal(t, GateWindowExpired, EvaluateGate(docs, now, window))
}

func TestEvaluateGateFailedExtractionCountsProcessed(t *testing.T) {
	now := time.Now()
	failed := doc(now.Add(-5*time.Second), false)
	failed.ExtractedSummary = "Extraction failed: pdf"
	assert.Equal(t, GateProceed, EvaluateGate([]*domain.Document{failed}, now, 2*time.Minute))
}
