// Package citations recovers a structured source list from unstructured
// report text. It is the fallback path used when the generation capability
// does not return structured citations itself.
package citations

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// citationLine matches the numbered formats a report's sources section uses:
// "[1] rest", "1. rest", and "1) rest". Whitespace after the marker is
// optional; models sometimes emit "[1]https://..." with no separator.
var citationLine = regexp.MustCompile(`^(?:\[(\d+)\]|(\d+)[.)])\s*(.+)$`)

// urlToken finds the first http(s) URL token in a citation line.
var urlToken = regexp.MustCompile(`https?://\S+`)

// trailingPunct is trimmed from the end of an extracted URL; citation lines
// often close with punctuation that is not part of the link.
const trailingPunct = ").,]>"

// Extract parses the report's sources section into an ordered citation list.
//
// The candidate section starts at the last case-insensitive occurrence of the
// token "sources" and runs to the end of the text. Each non-blank line in it
// is stripped of leading bullet markers and matched against the numbered
// citation formats; lines matching none are skipped. Missing or empty
// sections yield an empty list, never an error.
func Extract(report string) []domain.Source {
	section := sourcesSection(report)
	if section == "" {
		return nil
	}

	var sources []domain.Source
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		if line == "" {
			continue
		}

		m := citationLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		num := m[1]
		if num == "" {
			num = m[2]
		}
		id, err := strconv.Atoi(num)
		if err != nil {
			continue
		}

		citation := strings.TrimSpace(m[3])
		sources = append(sources, domain.Source{
			ID:       id,
			Citation: citation,
			URL:      firstURL(citation),
		})
	}

	return sources
}

// sourcesSection returns the text from the last case-insensitive "sources"
// token to the end, or empty if the token never appears.
func sourcesSection(report string) string {
	idx := strings.LastIndex(strings.ToLower(report), "sources")
	if idx < 0 {
		return ""
	}
	return report[idx:]
}

// firstURL extracts the first http(s) URL from the citation, trimming
// trailing punctuation. Returns empty when the citation carries no link.
func firstURL(citation string) string {
	url := urlToken.FindString(citation)
	return strings.TrimRight(url, trailingPunct)
}
