// Package observability carries the service's logging, metrics, and
// request-context plumbing.
//
// Logging is zerolog throughout. Build the process logger once from config
// and pass it down:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info().Str("session_id", id).Msg("research started")
//
// Temporal SDK logs route through the same stream via NewTemporalLogger.
//
// Metrics are Prometheus counters and histograms covering the session
// lifecycle, document ingestion, the readiness gate, and generation usage:
//
//	metrics := observability.NewMetrics("deepresearch")
//	metrics.RecordSessionStarted(false)
//	metrics.RecordDocumentWait("proceed")
//	metrics.RecordGenerationRequest("report", "gpt-4o", 2.5, 1200, 640)
//
// Context helpers thread request_id, user_id, session_id, and trace_id from
// the HTTP middleware through to repository and activity logs, so one
// research run can be followed across server and worker processes.
//
// Everything here is safe for concurrent use.
package observability
