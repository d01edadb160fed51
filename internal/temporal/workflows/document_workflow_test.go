package workflows

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/Amn-7/open-deep-research/internal/domain"
	"github.com/Amn-7/open-deep-research/internal/temporal/activities"
)

func TestDocumentWorkflow_Success(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	documentID := uuid.New()
	var documentAct *activities.DocumentActivities

	env.OnActivity(documentAct.ProcessDocument, mock.Anything, activities.ProcessDocumentInput{DocumentID: documentID}).Return(
		&activities.ProcessDocumentOutput{Result: domain.DocumentResultProcessed}, nil,
	)

	env.ExecuteWorkflow(DocumentWorkflow, DocumentWorkflowInput{DocumentID: documentID})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result DocumentWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, string(domain.DocumentResultProcessed), result.Result)
}

func TestDocumentWorkflow_RetriesTransientFailure(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	documentID := uuid.New()
	var documentAct *activities.DocumentActivities

	env.OnActivity(documentAct.ProcessDocument, mock.Anything, mock.Anything).Return(
		nil, temporal.NewApplicationError("summarization timed out", "TransientError"),
	).Once()
	env.OnActivity(documentAct.ProcessDocument, mock.Anything, mock.Anything).Return(
		&activities.ProcessDocumentOutput{Result: domain.DocumentResultProcessed}, nil,
	).Once()

	env.ExecuteWorkflow(DocumentWorkflow, DocumentWorkflowInput{DocumentID: documentID})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result DocumentWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, string(domain.DocumentResultProcessed), result.Result)
}

func TestDocumentWorkflow_MissingDocumentCompletes(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	documentID := uuid.New()
	var documentAct *activities.DocumentActivities

	// A deleted document is a terminal outcome, not a retryable error.
	env.OnActivity(documentAct.ProcessDocument, mock.Anything, mock.Anything).Return(
		&activities.ProcessDocumentOutput{Result: domain.DocumentResultNotFound}, nil,
	)

	env.ExecuteWorkflow(DocumentWorkflow, DocumentWorkflowInput{DocumentID: documentID})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result DocumentWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, string(domain.DocumentResultNotFound), result.Result)
}
