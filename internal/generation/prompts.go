package generation

import "fmt"

const (
	// briefMaxTokens bounds the planning stage output.
	briefMaxTokens = 512

	// defaultSummaryMaxTokens bounds summarization calls that did not set a
	// budget.
	defaultSummaryMaxTokens = 400
)

// briefSystemPrompt drives the planning stage of a run.
const briefSystemPrompt = "You are a research planner. Given a research request, " +
	"write a short, focused research brief (2-4 sentences) describing what the " +
	"report should cover and in what order. Respond with the brief only."

// reportSystemPrompt drives the report-writing stage of a run. When the run
// is offline the model is told not to pretend it searched the web.
func reportSystemPrompt(searchAPI string) string {
	prompt := "You are a deep research assistant. Write a thorough, well-structured " +
		"research report answering the request. End the report with a \"Sources\" " +
		"section listing numbered citations, one per line, in the form \"[n] Title URL\"."
	if searchAPI == "" || searchAPI == "none" {
		prompt += " Work only from the request and any provided context; do not " +
			"claim to have searched the web."
	}
	return prompt
}

// buildReportInput combines the derived brief with the original input for the
// report-writing stage.
func buildReportInput(brief, input string) string {
	if brief == "" {
		return input
	}
	return fmt.Sprintf("Research brief:\n%s\n\nRequest:\n%s", brief, input)
}
