package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

func TestExtractBracketedWithURLs(t *testing.T) {
	report := "Findings body text.\n\nSources\n[1] Title A https://a.example\n[2] Title B"

	sources := Extract(report)

	require.Len(t, sources, 2)
	assert.Equal(t, domain.Source{ID: 1, Citation: "Title A https://a.example", URL: "https://a.example"}, sources[0])
	assert.Equal(t, domain.Source{ID: 2, Citation: "Title B", URL: ""}, sources[1])
}

func TestExtractNoSpaceAfterMarker(t *testing.T) {
	report := "Sources\n[1]https://tight.example/paper\n2)Paren tight"

	sources := Extract(report)

	require.Len(t, sources, 2)
	assert.Equal(t, domain.Source{ID: 1, Citation: "https://tight.example/paper", URL: "https://tight.example/paper"}, sources[0])
	assert.Equal(t, domain.Source{ID: 2, Citation: "Paren tight", URL: ""}, sources[1])
}

func TestExtractNumberedFormats(t *testing.T) {
	report := "Sources\n1. Dot style https://dot.example/paper\n2) Paren style http://paren.example"

	sources := Extract(report)

	require.Len(t, sources, 2)
	assert.Equal(t, 1, sources[0].ID)
	assert.Equal(t, "https://dot.example/paper", sources[0].URL)
	assert.Equal(t, 2, sources[1].ID)
	assert.Equal(t, "http://paren.example", sources[1].URL)
}

func TestExtractStripsBulletMarkers(t *testing.T) {
	report := "Sources\n- [1] Bulleted https://b.example\n* [2] Starred\n• [3] Dotted"

	sources := Extract(report)

	require.Len(t, sources, 3)
	assert.Equal(t, "Bulleted https://b.example", sources[0].Citation)
	assert.Equal(t, "Starred", sources[1].Citation)
	assert.Equal(t, "Dotted", sources[2].Citation)
}

func TestExtractUsesLastSourcesToken(t *testing.T) {
	report := "Early mention of sources in prose.\n[1] Not a citation yet\n\nSources\n[1] Real citation"

	sources := Extract(report)

	require.Len(t, sources, 1)
	assert.Equal(t, "Real citation", sources[0].Citation)
}

func TestExtractTrimsTrailingPunctuationFromURL(t *testing.T) {
	report := "Sources\n[1] See (https://t.example/page)."

	sources := Extract(report)

	require.Len(t, sources, 1)
	assert.Equal(t, "https://t.example/page", sources[0].URL)
}

func TestExtractSkipsNonMatchingLines(t *testing.T) {
	report := "Sources\nA heading line\n[1] Kept https://k.example\nstray commentary\n[2] Also kept"

	sources := Extract(report)

	require.Len(t, sources, 2)
	assert.Equal(t, 1, sources[0].ID)
	assert.Equal(t, 2, sources[1].ID)
}

func TestExtractMissingSection(t *testing.T) {
	assert.Empty(t, Extract("A report with no citation section at all."))
	assert.Empty(t, Extract(""))
}

func TestExtractEmptySection(t *testing.T) {
	assert.Empty(t, Extract("Body.\n\nSources\n"))
}
