package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the deep research service.
// Metrics are organized by subsystem: sessions, documents, generation, and
// cost accounting. All counters and histograms are registered via promauto
// for automatic registration with the default Prometheus registry.
type Metrics struct {
	// SessionsStarted counts the total number of research sessions initiated.
	SessionsStarted prometheus.Counter

	// SessionsCompleted counts the total number of sessions that finished successfully.
	SessionsCompleted prometheus.Counter

	// SessionsFailed counts the total number of sessions that ended in failure.
	SessionsFailed prometheus.Counter

	// SessionDuration observes the end-to-end duration of sessions in seconds.
	SessionDuration prometheus.Histogram

	// SessionFollowUps counts sessions started as follow-ups to an earlier session.
	SessionFollowUps prometheus.Counter

	// DocumentsUploaded counts documents accepted for ingestion.
	DocumentsUploaded prometheus.Counter

	// DocumentsProcessed counts ingestion outcomes, labeled by result
	// ("processed", "empty", "failed").
	DocumentsProcessed *prometheus.CounterVec

	// DocumentIngestDuration observes per-document ingestion duration in seconds.
	DocumentIngestDuration prometheus.Histogram

	// DocumentWaits counts readiness-gate outcomes, labeled by decision
	// ("proceed", "requeue", "window_expired").
	DocumentWaits *prometheus.CounterVec

	// GenerationRequestsTotal counts generation API requests, labeled by stage and model.
	GenerationRequestsTotal *prometheus.CounterVec

	// GenerationRequestsFailed counts failed generation API requests, labeled by stage, model, and error type.
	GenerationRequestsFailed *prometheus.CounterVec

	// GenerationRequestDuration observes generation API request duration in seconds, labeled by stage and model.
	GenerationRequestDuration *prometheus.HistogramVec

	// GenerationTokensUsed counts tokens consumed, labeled by stage, model, and direction
	// ("input", "output").
	GenerationTokensUsed *prometheus.CounterVec

	// SourcesExtracted observes the number of sources extracted per completed report.
	SourcesExtracted prometheus.Histogram

	// EstimatedCostUSD accumulates estimated generation spend in USD, labeled by model.
	EstimatedCostUSD *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Sessions
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of research sessions started",
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of research sessions completed successfully",
		}),
		SessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Total number of research sessions that failed",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of research sessions in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),
		SessionFollowUps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_follow_ups_total",
			Help:      "Total number of follow-up research sessions started",
		}),

		// Documents
		DocumentsUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_uploaded_total",
			Help:      "Total number of documents accepted for ingestion",
		}),
		DocumentsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Total number of document ingestion outcomes by result",
		}, []string{"result"}),
		DocumentIngestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_ingest_duration_seconds",
			Help:      "Duration of document ingestion in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		DocumentWaits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_waits_total",
			Help:      "Total number of document readiness gate decisions",
		}, []string{"decision"}),

		// Generation
		GenerationRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests by stage",
		}, []string{"stage", "model"}),
		GenerationRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_failed_total",
			Help:      "Total number of failed generation requests by stage",
		}, []string{"stage", "model", "error_type"}),
		GenerationRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_request_duration_seconds",
			Help:      "Duration of generation requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300, 900},
		}, []string{"stage", "model"}),
		GenerationTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_used_total",
			Help:      "Total number of tokens used by generation stages",
		}, []string{"stage", "model", "direction"}),

		// Results
		SourcesExtracted: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sources_extracted",
			Help:      "Number of sources extracted per completed report",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		EstimatedCostUSD: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimated_cost_usd_total",
			Help:      "Estimated generation spend in USD by model",
		}, []string{"model"}),
	}
}

// RecordSessionStarted records that a session has started.
func (m *Metrics) RecordSessionStarted(followUp bool) {
	m.SessionsStarted.Inc()
	if followUp {
		m.SessionFollowUps.Inc()
	}
}

// RecordSessionCompleted records that a session has completed.
func (m *Metrics) RecordSessionCompleted(durationSeconds float64) {
	m.SessionsCompleted.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionFailed records that a session has failed.
func (m *Metrics) RecordSessionFailed(durationSeconds float64) {
	m.SessionsFailed.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordDocumentUploaded records a document accepted for ingestion.
func (m *Metrics) RecordDocumentUploaded() {
	m.DocumentsUploaded.Inc()
}

// RecordDocumentProcessed records a document ingestion outcome.
func (m *Metrics) RecordDocumentProcessed(result string, durationSeconds float64) {
	m.DocumentsProcessed.WithLabelValues(result).Inc()
	m.DocumentIngestDuration.Observe(durationSeconds)
}

// RecordDocumentWait records a readiness gate decision.
func (m *Metrics) RecordDocumentWait(decision string) {
	m.DocumentWaits.WithLabelValues(decision).Inc()
}

// RecordGenerationRequest records a generation request.
func (m *Metrics) RecordGenerationRequest(stage, model string, durationSeconds float64, inputTokens, outputTokens int) {
	m.GenerationRequestsTotal.WithLabelValues(stage, model).Inc()
	m.GenerationRequestDuration.WithLabelValues(stage, model).Observe(durationSeconds)
	m.GenerationTokensUsed.WithLabelValues(stage, model, "input").Add(float64(inputTokens))
	m.GenerationTokensUsed.WithLabelValues(stage, model, "output").Add(float64(outputTokens))
}

// RecordGenerationRequestFailed records a failed generation request.
func (m *Metrics) RecordGenerationRequestFailed(stage, model, errorType string) {
	m.GenerationRequestsFailed.WithLabelValues(stage, model, errorType).Inc()
}

// RecordSourcesExtracted records the source count of a completed report.
func (m *Metrics) RecordSourcesExtracted(count int) {
	m.SourcesExtracted.Observe(float64(count))
}

// RecordEstimatedCost records estimated generation spend.
func (m *Metrics) RecordEstimatedCost(model string, usd float64) {
	m.EstimatedCostUSD.WithLabelValues(model).Add(usd)
}
