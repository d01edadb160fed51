// Package workflows defines Temporal workflow implementations for the deep
// research pipeline.
package workflows

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Amn-7/open-deep-research/internal/research"
	drtemporal "github.com/Amn-7/open-deep-research/internal/temporal"
	"github.com/Amn-7/open-deep-research/internal/temporal/activities"
)

// Re-export query name constants from the parent temporal package for
// convenience. These are defined in the parent package so the server layer
// can reference them without depending on the workflows package.
const (
	QueryProgress = drtemporal.QueryProgress
)

// Activity timeout constants.
const (
	dbActivityTimeout = 30 * time.Second

	// generationActivityTimeout is the hard ceiling on the single generation
	// invocation. The invocation is never retried, so this is also the bound
	// on how long a run can hang on the provider.
	generationActivityTimeout = 30 * time.Minute
)

// Gate defaults applied when the workflow input leaves them unset.
const (
	defaultWaitWindow   = 120 * time.Second
	defaultRequeueDelay = 15 * time.Second
)

// ResearchWorkflowInput is an alias for the shared input type defined in the
// parent temporal package.
type ResearchWorkflowInput = drtemporal.ResearchWorkflowInput

// Research workflow outcome codes.
const (
	OutcomeCompleted       = "completed"
	OutcomeFailed          = "failed"
	OutcomeSessionNotFound = "session_not_found"
	OutcomeAlreadyTerminal = "already_terminal"
)

// ResearchWorkflowResult contains the final outcome of a research workflow.
type ResearchWorkflowResult struct {
	// SessionID is the session the workflow drove.
	SessionID uuid.UUID

	// Outcome is one of the outcome codes. A failed run still reports
	// OutcomeFailed through a normal workflow completion; the workflow
	// itself never fails over a generation error.
	Outcome string

	// SourceCount is the number of sources committed with the report.
	SourceCount int

	// GateChecks is how many times the document-readiness gate was
	// evaluated before the run proceeded.
	GateChecks int

	// Duration is the total workflow execution time in seconds.
	Duration float64
}

// workflowProgress tracks the internal state of the workflow, exposed via
// the QueryProgress query handler.
type workflowProgress struct {
	Phase       string
	TraceID     string
	GateChecks  int
	SourceCount int
}

// ResearchWorkflow drives a research session from PENDING to a terminal
// state with at most one successful commit of derived records.
//
// The workflow proceeds through the following phases:
//  1. Load the session (absent or already terminal means no-op)
//  2. Document-readiness gate: while unprocessed documents are younger than
//     the wait window, sleep on a durable timer and re-check; once the
//     window elapses the run proceeds regardless
//  3. Transition the session to RUNNING
//  4. Assemble the generation input from parent summary, document
//     summaries, and the query
//  5. Invoke the generation capability exactly once under a fresh trace id
//  6. Commit the report, summary, reasoning, and cost atomically with the
//     COMPLETED transition
//
// Any failure after the gate is caught and committed as a FAILED transition
// with a bounded failure narrative; the workflow completes normally so the
// queue runtime never sees a crash to retry.
func ResearchWorkflow(ctx workflow.Context, input ResearchWorkflowInput) (*ResearchWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	waitWindow := input.WaitWindow
	if waitWindow <= 0 {
		waitWindow = defaultWaitWindow
	}
	requeueDelay := input.RequeueDelay
	if requeueDelay <= 0 {
		requeueDelay = defaultRequeueDelay
	}

	progress := &workflowProgress{Phase: "loading"}
	if err := workflow.SetQueryHandler(ctx, QueryProgress, func() (*workflowProgress, error) {
		return progress, nil
	}); err != nil {
		logger.Error("failed to register progress query handler", "error", err)
		return nil, err
	}

	result := &ResearchWorkflowResult{SessionID: input.SessionID}
	finish := func(outcome string) (*ResearchWorkflowResult, error) {
		result.Outcome = outcome
		result.GateChecks = progress.GateChecks
		result.Duration = workflow.Now(ctx).Sub(startTime).Seconds()
		progress.Phase = outcome
		return result, nil
	}

	// Activity nil-pointer variables for method references.
	var sessionAct *activities.SessionActivities
	var generationAct *activities.GenerationActivities

	dbCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: dbActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	})

	// The generation invocation runs at most once. Retrying it would mean a
	// second full (and paid) research run hidden from the accounting.
	generationCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: generationActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	// Phase 1: load the session.
	var loaded activities.GetSessionOutput
	err := workflow.ExecuteActivity(dbCtx, sessionAct.GetSession, activities.GetSessionInput{
		SessionID: input.SessionID,
	}).Get(ctx, &loaded)
	if err != nil {
		return nil, err
	}
	if !loaded.Found {
		logger.Warn("session not found, nothing to do", "sessionID", input.SessionID)
		return finish(OutcomeSessionNotFound)
	}
	if loaded.Session.Status.IsTerminal() {
		logger.Info("session already terminal, nothing to do",
			"sessionID", input.SessionID,
			"status", loaded.Session.Status,
		)
		return finish(OutcomeAlreadyTerminal)
	}

	// Phase 2: document-readiness gate. The durable timer bounds worker
	// occupancy: between checks the workflow holds no worker slot.
	progress.Phase = "waiting_for_documents"
	for {
		var docs activities.ListDocumentsOutput
		err := workflow.ExecuteActivity(dbCtx, sessionAct.ListDocuments, activities.ListDocumentsInput{
			SessionID:  input.SessionID,
			WaitWindow: waitWindow,
		}).Get(ctx, &docs)
		if err != nil {
			return nil, err
		}
		progress.GateChecks++

		decision := research.EvaluateGate(docs.Documents, workflow.Now(ctx), waitWindow)
		if decision != research.GateRequeue {
			if decision == research.GateWindowExpired {
				logger.Warn("document wait window expired, proceeding without pending documents",
					"sessionID", input.SessionID,
				)
			}
			break
		}

		logger.Info("documents still processing, deferring run",
			"sessionID", input.SessionID,
			"requeueDelay", requeueDelay,
		)
		if err := workflow.Sleep(ctx, requeueDelay); err != nil {
			return nil, err
		}
	}

	// Phase 3: mark the session running.
	progress.Phase = "running"
	err = workflow.ExecuteActivity(dbCtx, sessionAct.MarkRunning, activities.MarkRunningInput{
		SessionID: input.SessionID,
	}).Get(ctx, nil)
	if err != nil {
		// A losing race with another terminal transition is a no-op, not a
		// failure to commit.
		logger.Error("failed to mark session running", "sessionID", input.SessionID, "error", err)
		return finish(OutcomeAlreadyTerminal)
	}

	// A fresh opaque trace id correlates this run's provider calls and is
	// stored with either terminal transition.
	var traceID string
	if err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
		return uuid.New().String()
	}).Get(&traceID); err != nil {
		return nil, err
	}
	progress.TraceID = traceID

	// failRun commits the FAILED transition with the failure narrative and
	// completes the workflow normally.
	failRun := func(cause error) (*ResearchWorkflowResult, error) {
		kind, message := classifyFailure(cause)
		logger.Error("run failed",
			"sessionID", input.SessionID,
			"kind", kind,
			"error", cause,
		)
		err := workflow.ExecuteActivity(dbCtx, sessionAct.FailRun, activities.FailRunInput{
			SessionID: input.SessionID,
			TraceID:   traceID,
			Kind:      kind,
			Message:   message,
		}).Get(ctx, nil)
		if err != nil {
			// The failure commit itself failed; surface the original cause
			// to the queue so the run is visible as broken.
			return nil, cause
		}
		return finish(OutcomeFailed)
	}

	// Phase 4: assemble the generation input.
	progress.Phase = "assembling_context"
	var assembled activities.BuildContextOutput
	err = workflow.ExecuteActivity(dbCtx, sessionAct.BuildContext, activities.BuildContextInput{
		SessionID: input.SessionID,
	}).Get(ctx, &assembled)
	if err != nil {
		return failRun(err)
	}

	// Phase 5: the single generation invocation.
	progress.Phase = "generating"
	var generated activities.RunGenerationOutput
	err = workflow.ExecuteActivity(generationCtx, generationAct.RunGeneration, activities.RunGenerationInput{
		SessionID:         input.SessionID,
		Input:             assembled.Input,
		TraceID:           traceID,
		UsedParentContext: assembled.UsedParentContext,
		DocumentSummaries: assembled.DocumentSummaries,
	}).Get(ctx, &generated)
	if err != nil {
		return failRun(err)
	}
	progress.SourceCount = len(generated.Sources)

	// Phase 6: atomic commit.
	progress.Phase = "committing"
	err = workflow.ExecuteActivity(dbCtx, sessionAct.CommitResults, activities.CommitResultsInput{
		SessionID: input.SessionID,
		TraceID:   traceID,
		Results:   generated,
	}).Get(ctx, nil)
	if err != nil {
		return failRun(err)
	}

	result.SourceCount = len(generated.Sources)
	logger.Info("research run committed",
		"sessionID", input.SessionID,
		"traceID", traceID,
		"sourceCount", result.SourceCount,
	)
	return finish(OutcomeCompleted)
}

// classifyFailure reduces an activity error to the short kind and message
// persisted in the failure narrative.
func classifyFailure(err error) (kind, message string) {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		kind = appErr.Type()
		if kind == "" {
			kind = "ApplicationError"
		}
		return kind, appErr.Message()
	}

	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return "TimeoutError", timeoutErr.Error()
	}

	var canceledErr *temporal.CanceledError
	if errors.As(err, &canceledErr) {
		return "CanceledError", canceledErr.Error()
	}

	return "Error", err.Error()
}
