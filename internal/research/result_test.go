package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amn-7/open-deep-research/internal/config"
	"github.com/Amn-7/open-deep-research/internal/domain"
)

func TestReportTextKeyOrder(t *testing.T) {
	state := map[string]any{
		"final_report": "the final report",
		"report":       "the lesser report",
		"output":       "raw output",
	}
	assert.Equal(t, "the final report", ReportText(state))

	delete(state, "final_report")
	assert.Equal(t, "the lesser report", ReportText(state))

	delete(state, "report")
	assert.Equal(t, "raw output", ReportText(state))
}

func TestReportTextSkipsEmptyAndWrongTypes(t *testing.T) {
	state := map[string]any{
		"final_report": "",
		"report":       42,
		"output":       "fallback",
	}
	assert.Equal(t, "fallback", ReportText(state))
	assert.Equal(t, "", ReportText(map[string]any{}))
}

func TestBrief(t *testing.T) {
	assert.Equal(t, "focused brief", Brief(map[string]any{"research_brief": "  focused brief \n"}))
	assert.Equal(t, "", Brief(map[string]any{}))
}

func TestSourcesTypedList(t *testing.T) {
	want := []domain.Source{{ID: 1, Citation: "Title", URL: "https://a.example"}}
	state := map[string]any{"sources": want}

	assert.Equal(t, want, Sources(state))
}

func TestSourcesDecodedJSONList(t *testing.T) {
	state := map[string]any{
		"citations": []any{
			map[string]any{"id": float64(1), "citation": "Title A", "url": "https://a.example"},
			map[string]any{"id": float64(2), "citation": "Title B"},
		},
	}

	sources := Sources(state)

	require.Len(t, sources, 2)
	assert.Equal(t, domain.Source{ID: 1, Citation: "Title A", URL: "https://a.example"}, sources[0])
	assert.Equal(t, domain.Source{ID: 2, Citation: "Title B"}, sources[1])
}

func TestSourcesMissing(t *testing.T) {
	assert.Nil(t, Sources(map[string]any{}))
	assert.Nil(t, Sources(map[string]any{"sources": []any{}}))
	assert.Nil(t, Sources(map[string]any{"sources": "not a list"}))
}

func TestCostModelResolution(t *testing.T) {
	assert.Equal(t, "override", CostModel(config.StageModels{
		Cost: "override", FinalReport: "fr", Research: "r", Compression: "c",
	}))
	assert.Equal(t, "fr", CostModel(config.StageModels{FinalReport: "fr", Research: "r", Compression: "c"}))
	assert.Equal(t, "r", CostModel(config.StageModels{Research: "r", Compression: "c"}))
	assert.Equal(t, "c", CostModel(config.StageModels{Compression: "c"}))
	assert.Equal(t, "", CostModel(config.StageModels{}))
}
