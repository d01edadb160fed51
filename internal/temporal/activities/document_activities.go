package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/Amn-7/open-deep-research/internal/config"
	"github.com/Amn-7/open-deep-research/internal/domain"
	"github.com/Amn-7/open-deep-research/internal/events"
	"github.com/Amn-7/open-deep-research/internal/extract"
	"github.com/Amn-7/open-deep-research/internal/generation"
	"github.com/Amn-7/open-deep-research/internal/observability"
	"github.com/Amn-7/open-deep-research/internal/repository"
	"github.com/Amn-7/open-deep-research/internal/research"
	"github.com/Amn-7/open-deep-research/internal/storage"
)

// DocumentActivities provides the document ingestion activity: extract text
// from the stored upload, summarize it, and write the document's single
// terminal update.
type DocumentActivities struct {
	documents repository.DocumentRepository
	store     *storage.FileStore
	generator generation.Generator
	cfg       config.ResearchConfig
	publisher events.Publisher
	metrics   *observability.Metrics
}

// NewDocumentActivities creates a new DocumentActivities instance. The
// metrics parameter may be nil; publisher may be nil.
func NewDocumentActivities(
	documents repository.DocumentRepository,
	store *storage.FileStore,
	generator generation.Generator,
	cfg config.ResearchConfig,
	publisher events.Publisher,
	metrics *observability.Metrics,
) *DocumentActivities {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &DocumentActivities{
		documents: documents,
		store:     store,
		generator: generator,
		cfg:       cfg,
		publisher: publisher,
		metrics:   metrics,
	}
}

// ProcessDocument runs one document through extraction and summarization and
// writes exactly one terminal update to the row.
//
// Extraction failure is not an activity failure: the document is marked with
// a short diagnostic summary and the activity completes normally, so one bad
// upload never poisons its session's run. Already-processed documents are
// never reprocessed.
func (a *DocumentActivities) ProcessDocument(ctx context.Context, input ProcessDocumentInput) (*ProcessDocumentOutput, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	doc, err := a.documents.Get(ctx, input.DocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("document not found", "documentID", input.DocumentID)
			return &ProcessDocumentOutput{Result: domain.DocumentResultNotFound}, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	if doc.IsProcessed() {
		logger.Info("document already processed", "documentID", doc.ID)
		return &ProcessDocumentOutput{Result: domain.DocumentResultUnchanged}, nil
	}

	text, err := extract.Text(a.store.Path(doc.StoragePath), doc.Filename)
	if err != nil {
		return a.finish(ctx, doc, "", extractionFailureTag(err), domain.DocumentResultFailed, start)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return a.finish(ctx, doc, "", "", domain.DocumentResultEmpty, start)
	}

	stored := research.Truncate(text, a.cfg.Document.StoreMaxChars)
	summary := a.summarize(ctx, text)
	if summary == "" {
		summary = strings.TrimSpace(research.Truncate(stored, a.cfg.Document.SummaryFallbackChars))
	}

	return a.finish(ctx, doc, stored, summary, domain.DocumentResultProcessed, start)
}

// summarize runs the stored excerpt through the generation capability under
// the document budgets. Errors degrade to an empty summary; the caller
// applies the prefix fallback.
func (a *DocumentActivities) summarize(ctx context.Context, text string) string {
	bounded := research.Truncate(text, a.cfg.Document.SummaryMaxChars)

	summary, err := a.generator.Summarize(ctx, generation.SummarizeRequest{
		Text:      bounded,
		Prompt:    research.DocumentSummaryPrompt,
		Model:     a.cfg.Models.SummarizationModel(),
		MaxTokens: a.cfg.Document.SummaryMaxTokens,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(summary)
}

// finish writes the document's terminal update and records the outcome.
func (a *DocumentActivities) finish(ctx context.Context, doc *domain.Document, text, summary string, result domain.DocumentResult, start time.Time) (*ProcessDocumentOutput, error) {
	if err := a.documents.SetExtraction(ctx, doc.ID, text, summary); err != nil {
		return nil, fmt.Errorf("set extraction: %w", err)
	}

	if a.metrics != nil {
		a.metrics.RecordDocumentProcessed(string(result), time.Since(start).Seconds())
	}

	a.publisher.Publish(ctx, events.SessionEvent{
		Type:       events.EventDocumentProcessed,
		SessionID:  doc.SessionID.String(),
		DocumentID: doc.ID.String(),
		Result:     string(result),
	})

	return &ProcessDocumentOutput{Result: result}, nil
}

// extractionFailureTag renders the diagnostic summary stored on a failed
// extraction, naming only the failure kind.
func extractionFailureTag(err error) string {
	var extractErr *extract.Error
	if errors.As(err, &extractErr) {
		return fmt.Sprintf("Extraction failed: %s", extractErr.Kind)
	}
	return "Extraction failed: error"
}
