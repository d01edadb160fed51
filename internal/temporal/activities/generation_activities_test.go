package activities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/Amn-7/open-deep-research/internal/config"
	"github.com/Amn-7/open-deep-research/internal/domain"
	"github.com/Amn-7/open-deep-research/internal/generation"
	"github.com/Amn-7/open-deep-research/internal/research"
	"github.com/Amn-7/open-deep-research/internal/usage"
)

func testResearchConfig() config.ResearchConfig {
	return config.ResearchConfig{
		SearchAPI:     "tavily",
		BriefMaxChars: 500,
		Report: config.ReportBudget{
			SummaryMaxChars:      12000,
			SummaryMaxTokens:     350,
			SummaryFallbackChars: 1200,
		},
		Models: config.StageModels{
			Research:    "gpt-4o",
			Compression: "gpt-4o-mini",
		},
		ModelCostsJSON: `{"gpt-4o": {"input": 2.5, "output": 10}}`,
	}
}

const testReport = `Solid-state batteries moved closer to production this year.

Sources
[1] Battery Progress Review https://example.com/battery-review
[2] Manufacturing Update https://example.com/manufacturing`

func TestRunGeneration(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	gen := new(mockGenerator)

	// The invocation reports usage through the per-run listener.
	var invocation generation.Invocation
	gen.On("Generate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		invocation = args.Get(1).(generation.Invocation)
		invocation.Listener.OnUsage(usage.Event{PromptTokens: 900, CompletionTokens: 600, Model: "gpt-4o"})
	}).Return(&generation.Result{State: map[string]any{
		"final_report":   testReport,
		"research_brief": "Survey solid-state battery production readiness.",
	}}, nil)

	var summarizeReq generation.SummarizeRequest
	gen.On("Summarize", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		summarizeReq = args.Get(1).(generation.SummarizeRequest)
		summarizeReq.Listener.OnUsage(usage.Event{PromptTokens: 100, CompletionTokens: 50, Model: "gpt-4o-mini"})
	}).Return("- Batteries closer to production.", nil)

	act := NewGenerationActivities(gen, testResearchConfig(), nil)
	env.RegisterActivity(act.RunGeneration)

	val, err := env.ExecuteActivity(act.RunGeneration, RunGenerationInput{
		SessionID:         uuid.New(),
		Input:             "solid-state batteries\n\n",
		TraceID:           "trace-1",
		DocumentSummaries: 1,
	})
	require.NoError(t, err)

	var out RunGenerationOutput
	require.NoError(t, val.Get(&out))

	assert.Equal(t, testReport, out.Report)

	// No structured sources in the state, so they come from the report's
	// trailing Sources section.
	require.Len(t, out.Sources, 2)
	assert.Equal(t, 1, out.Sources[0].ID)
	assert.Equal(t, "Battery Progress Review https://example.com/battery-review", out.Sources[0].Citation)
	assert.Equal(t, "https://example.com/battery-review", out.Sources[0].URL)
	assert.Equal(t, "Manufacturing Update https://example.com/manufacturing", out.Sources[1].Citation)

	assert.Equal(t, "- Batteries closer to production.", out.Summary)

	assert.Contains(t, out.Reasoning, "High-level reasoning:")
	assert.Contains(t, out.Reasoning, "- Search API: tavily.")
	assert.Contains(t, out.Reasoning, "kept 2 sources for citations")
	assert.Contains(t, out.Reasoning, "incorporated 1 uploaded summaries")
	assert.NotContains(t, out.Reasoning, "prior summary")

	// Usage sums both calls; cost is exact decimal under the configured
	// per-1K rates.
	assert.Equal(t, 1000, out.InputTokens)
	assert.Equal(t, 650, out.OutputTokens)
	assert.Equal(t, "gpt-4o", out.CostModel)
	assert.True(t, decimal.RequireFromString("9").Equal(out.EstimatedCostUSD),
		"estimated cost %s", out.EstimatedCostUSD)

	// The invocation carries the run config and trace id.
	assert.Equal(t, "tavily", invocation.Config.SearchAPI)
	assert.Equal(t, "gpt-4o", invocation.Config.ResearchModel)
	assert.Equal(t, "gpt-4o-mini", invocation.Config.SummarizationModel)
	assert.Equal(t, "trace-1", invocation.Config.TraceID)

	// Summarization runs under the report budgets.
	assert.Equal(t, research.ReportSummaryPrompt, summarizeReq.Prompt)
	assert.Equal(t, 350, summarizeReq.MaxTokens)
	assert.Equal(t, "gpt-4o-mini", summarizeReq.Model)
}

func TestRunGeneration_StructuredSourcesWin(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&generation.Result{State: map[string]any{
		"final_report": testReport,
		"sources": []domain.Source{
			{ID: 1, Citation: "Primary Source", URL: "https://example.com/primary"},
		},
	}}, nil)
	gen.On("Summarize", mock.Anything, mock.Anything).Return("- Summary.", nil)

	act := NewGenerationActivities(gen, testResearchConfig(), nil)
	env.RegisterActivity(act.RunGeneration)

	val, err := env.ExecuteActivity(act.RunGeneration, RunGenerationInput{SessionID: uuid.New()})
	require.NoError(t, err)

	var out RunGenerationOutput
	require.NoError(t, val.Get(&out))

	// The state's own source list takes precedence over report parsing.
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "Primary Source", out.Sources[0].Citation)
}

func TestRunGeneration_SummarizeFailureFallsBackToPrefix(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&generation.Result{State: map[string]any{
		"final_report": testReport,
	}}, nil)
	gen.On("Summarize", mock.Anything, mock.Anything).Return("", assert.AnError)

	act := NewGenerationActivities(gen, testResearchConfig(), nil)
	env.RegisterActivity(act.RunGeneration)

	val, err := env.ExecuteActivity(act.RunGeneration, RunGenerationInput{SessionID: uuid.New()})
	require.NoError(t, err)

	var out RunGenerationOutput
	require.NoError(t, val.Get(&out))

	// A failed summarization degrades to a bounded report prefix, never an
	// activity failure.
	assert.Equal(t, testReport, out.Summary)
}

func TestRunGeneration_InvocationFailure(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, &generation.APIError{
		Provider:   "openai",
		StatusCode: 500,
		Message:    "internal error",
	})

	act := NewGenerationActivities(gen, testResearchConfig(), nil)
	env.RegisterActivity(act.RunGeneration)

	_, err := env.ExecuteActivity(act.RunGeneration, RunGenerationInput{SessionID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation invocation")
}

func TestRunGeneration_UnparseablePricingCostsZero(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(generation.Invocation).Listener.OnUsage(usage.Event{PromptTokens: 500, CompletionTokens: 200})
	}).Return(&generation.Result{State: map[string]any{
		"final_report": testReport,
	}}, nil)
	gen.On("Summarize", mock.Anything, mock.Anything).Return("- Summary.", nil)

	cfg := testResearchConfig()
	cfg.ModelCostsJSON = "{not valid json"

	act := NewGenerationActivities(gen, cfg, nil)
	env.RegisterActivity(act.RunGeneration)

	val, err := env.ExecuteActivity(act.RunGeneration, RunGenerationInput{SessionID: uuid.New()})
	require.NoError(t, err)

	var out RunGenerationOutput
	require.NoError(t, val.Get(&out))

	// Tokens are still accounted; only the dollar estimate degrades.
	assert.Equal(t, 500, out.InputTokens)
	assert.Equal(t, 200, out.OutputTokens)
	assert.True(t, out.EstimatedCostUSD.IsZero())
}
