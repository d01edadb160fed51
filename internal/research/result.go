package research

import (
	"encoding/json"
	"strings"

	"github.com/Amn-7/open-deep-research/internal/config"
	"github.com/Amn-7/open-deep-research/internal/domain"
)

// Result-key candidates, in preference order. Generation backends disagree on
// the name of the final state entry, so extraction tries each in turn.
var (
	reportKeys = []string{"final_report", "report", "output"}
	sourceKeys = []string{"sources", "citations"}
)

// ReportText pulls the report body out of a generation state map, trying the
// known key names in order and returning the first non-empty string.
func ReportText(state map[string]any) string {
	for _, key := range reportKeys {
		if text, ok := state[key].(string); ok && text != "" {
			return text
		}
	}
	return ""
}

// Brief pulls the trimmed research brief out of a generation state map.
func Brief(state map[string]any) string {
	brief, _ := state["research_brief"].(string)
	return strings.TrimSpace(brief)
}

// Sources pulls the structured source list out of a generation state map,
// trying the known key names in order. Entries may arrive as typed values or
// as decoded JSON objects; anything unrecognized is dropped. A nil return
// means no structured list was present and the citation-parser fallback
// should run over the report text.
func Sources(state map[string]any) []domain.Source {
	for _, key := range sourceKeys {
		parsed := parseSources(state[key])
		if len(parsed) > 0 {
			return parsed
		}
	}
	return nil
}

func parseSources(value any) []domain.Source {
	switch v := value.(type) {
	case []domain.Source:
		return v
	case []any:
		var sources []domain.Source
		for _, entry := range v {
			switch e := entry.(type) {
			case domain.Source:
				sources = append(sources, e)
			case map[string]any:
				// Round-trip through JSON rather than hand-coercing each
				// field's possible numeric types.
				raw, err := json.Marshal(e)
				if err != nil {
					continue
				}
				var s domain.Source
				if err := json.Unmarshal(raw, &s); err != nil {
					continue
				}
				sources = append(sources, s)
			}
		}
		return sources
	default:
		return nil
	}
}

// CostModel resolves the model identifier used for cost estimation from the
// configured stage models: explicit cost override, else final-report, else
// research, else compression.
func CostModel(m config.StageModels) string {
	for _, candidate := range []string{m.Cost, m.FinalReport, m.Research, m.Compression} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
