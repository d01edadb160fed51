package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	drtemporal "github.com/Amn-7/open-deep-research/internal/temporal"
	"github.com/Amn-7/open-deep-research/internal/temporal/activities"
)

// DocumentWorkflowInput is an alias for the shared input type defined in the
// parent temporal package.
type DocumentWorkflowInput = drtemporal.DocumentWorkflowInput

// DocumentWorkflowResult contains the outcome of processing one uploaded
// document.
type DocumentWorkflowResult struct {
	Result string
}

const documentActivityTimeout = 5 * time.Minute

// DocumentWorkflow extracts and summarizes a single uploaded document. The
// activity is idempotent (an already-processed document is left untouched),
// so a short retry policy covers transient extraction and summarization
// failures without risking double writes.
func DocumentWorkflow(ctx workflow.Context, input DocumentWorkflowInput) (*DocumentWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	var documentAct *activities.DocumentActivities

	actCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: documentActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	})

	var out activities.ProcessDocumentOutput
	err := workflow.ExecuteActivity(actCtx, documentAct.ProcessDocument, activities.ProcessDocumentInput{
		DocumentID: input.DocumentID,
	}).Get(ctx, &out)
	if err != nil {
		return nil, err
	}

	logger.Info("document processed",
		"documentID", input.DocumentID,
		"result", out.Result,
	)
	return &DocumentWorkflowResult{Result: string(out.Result)}, nil
}
