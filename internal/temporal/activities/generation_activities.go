package activities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/Amn-7/open-deep-research/internal/citations"
	"github.com/Amn-7/open-deep-research/internal/config"
	"github.com/Amn-7/open-deep-research/internal/generation"
	"github.com/Amn-7/open-deep-research/internal/observability"
	"github.com/Amn-7/open-deep-research/internal/pricing"
	"github.com/Amn-7/open-deep-research/internal/research"
	"github.com/Amn-7/open-deep-research/internal/usage"
)

// GenerationActivities provides the single external generation invocation of
// a research run and everything derived from it: report extraction, the
// citation fallback, report summarization, the reasoning narrative, and the
// usage/cost accounting.
type GenerationActivities struct {
	generator generation.Generator
	cfg       config.ResearchConfig
	pricing   *pricing.Table
	metrics   *observability.Metrics
}

// NewGenerationActivities creates a new GenerationActivities instance. The
// pricing table is parsed once from the configured JSON; an unparseable
// table degrades to an empty one, so cost estimates are zero rather than
// the run failing.
func NewGenerationActivities(
	generator generation.Generator,
	cfg config.ResearchConfig,
	metrics *observability.Metrics,
) *GenerationActivities {
	table, err := pricing.ParseTable(cfg.ModelCostsJSON)
	if err != nil {
		table, _ = pricing.ParseTable("")
	}
	return &GenerationActivities{
		generator: generator,
		cfg:       cfg,
		pricing:   table,
		metrics:   metrics,
	}
}

// RunGeneration invokes the generation capability exactly once and derives
// every run record from its result. The workflow registers this activity
// with MaximumAttempts of one: the invocation is expensive and not
// idempotent, so a failure commits the run as FAILED instead of retrying.
func (a *GenerationActivities) RunGeneration(ctx context.Context, input RunGenerationInput) (*RunGenerationOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("invoking generation capability",
		"sessionID", input.SessionID,
		"traceID", input.TraceID,
	)

	acc := usage.NewAccumulator()
	start := time.Now()

	result, err := a.generator.Generate(ctx, generation.Invocation{
		Input: input.Input,
		Config: generation.InvocationConfig{
			SearchAPI:          a.cfg.SearchAPI,
			ResearchModel:      a.cfg.Models.Research,
			CompressionModel:   a.cfg.Models.Compression,
			FinalReportModel:   a.cfg.Models.FinalReport,
			SummarizationModel: a.cfg.Models.SummarizationModel(),
			TraceID:            input.TraceID,
		},
		Listener: acc,
	})
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordGenerationRequestFailed("research", research.CostModel(a.cfg.Models), "invocation_error")
		}
		return nil, fmt.Errorf("generation invocation: %w", err)
	}

	report := research.ReportText(result.State)
	sources := research.Sources(result.State)
	if sources == nil {
		sources = citations.Extract(report)
	}

	summary := a.summarizeReport(ctx, report, acc)

	brief := research.TruncateBrief(research.Brief(result.State), a.cfg.BriefMaxChars)
	reasoning := research.ComposeReasoning(research.RunFacts{
		SearchAPI:         a.cfg.SearchAPI,
		Brief:             brief,
		SourceCount:       len(sources),
		UsedParentContext: input.UsedParentContext,
		DocumentSummaries: input.DocumentSummaries,
	})

	totals := acc.Totals()
	costModel := research.CostModel(a.cfg.Models)
	estimated := a.pricing.Estimate(costModel, totals)

	if a.metrics != nil {
		a.metrics.RecordGenerationRequest("research", costModel, time.Since(start).Seconds(), totals.InputTokens, totals.OutputTokens)
		a.metrics.RecordSourcesExtracted(len(sources))
		cost, _ := estimated.Float64()
		a.metrics.RecordEstimatedCost(costModel, cost)
	}

	logger.Info("generation complete",
		"sessionID", input.SessionID,
		"sourceCount", len(sources),
		"inputTokens", totals.InputTokens,
		"outputTokens", totals.OutputTokens,
	)

	return &RunGenerationOutput{
		Report:           report,
		Sources:          sources,
		Summary:          summary,
		Reasoning:        reasoning,
		InputTokens:      totals.InputTokens,
		OutputTokens:     totals.OutputTokens,
		CostModel:        costModel,
		EstimatedCostUSD: estimated,
	}, nil
}

// summarizeReport summarizes the report under the configured budgets. A
// failed or empty summarization falls back to a report prefix; the run never
// fails over its summary.
func (a *GenerationActivities) summarizeReport(ctx context.Context, report string, acc *usage.Accumulator) string {
	bounded := research.Truncate(report, a.cfg.Report.SummaryMaxChars)

	summary, err := a.generator.Summarize(ctx, generation.SummarizeRequest{
		Text:      bounded,
		Prompt:    research.ReportSummaryPrompt,
		Model:     a.cfg.Models.SummarizationModel(),
		MaxTokens: a.cfg.Report.SummaryMaxTokens,
		Listener:  acc,
	})
	if err != nil || summary == "" {
		return strings.TrimSpace(research.Truncate(report, a.cfg.Report.SummaryFallbackChars))
	}
	return summary
}
