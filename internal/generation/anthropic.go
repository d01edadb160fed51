package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Amn-7/open-deep-research/internal/usage"
)

const (
	// anthropicAPIVersion is the Anthropic API version header value.
	anthropicAPIVersion = "2023-06-01"

	// defaultAnthropicBaseURL is the Anthropic API base URL.
	defaultAnthropicBaseURL = "https://api.anthropic.com"

	// defaultAnthropicModel is used for stages without an explicit override.
	defaultAnthropicModel = "claude-sonnet-4-20250514"

	// defaultAnthropicMaxTokens is the default max tokens for the Messages
	// API response.
	defaultAnthropicMaxTokens = 4096
)

// messagesRequest is the request body for the Anthropic Messages API.
type messagesRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

// anthropicMessage represents a single message in the Anthropic Messages API.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// contentBlock represents a content block in the Messages API response.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// messagesResponse is the response body from the Anthropic Messages API.
type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      anthropicUsage `json:"usage"`
}

// anthropicUsage contains token usage information from the Anthropic API.
type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// anthropicAPIErrorDetail represents the nested error object in an Anthropic
// API error response.
type anthropicAPIErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// anthropicErrorResponse wraps the error payload from the Anthropic API.
type anthropicErrorResponse struct {
	Type  string                  `json:"type"`
	Error anthropicAPIErrorDetail `json:"error"`
}

// AnthropicProvider implements Generator using the Anthropic Messages API.
type AnthropicProvider struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

// AnthropicConfig holds the parameters needed to create an Anthropic
// provider. This is defined in the generation package to avoid importing the
// config package.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key.
	APIKey string
	// Model is the default model identifier, used for stages without an
	// explicit override.
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// NewAnthropicProvider creates a new Anthropic generation provider. Transient
// HTTP errors (status 429 and 5xx) are retried up to maxRetries times with
// exponential backoff.
func NewAnthropicProvider(cfg AnthropicConfig, temperature float64, timeout time.Duration, maxRetries int) *AnthropicProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	return &AnthropicProvider{
		httpClient:  newAPIClient(timeout),
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxRetries:  maxRetries,
		retryDelay:  time.Second,
	}
}

// Generate runs the deep-research flow: derive a research brief, then write
// the report. Both calls emit usage events to the invocation's listener.
func (p *AnthropicProvider) Generate(ctx context.Context, inv Invocation) (*Result, error) {
	briefModel := p.resolveModel(inv.Config.ResearchModel)
	brief, err := p.message(ctx, briefModel, briefSystemPrompt, inv.Input, briefMaxTokens, inv.Listener)
	if err != nil {
		return nil, err
	}

	reportModel := p.resolveModel(inv.Config.FinalReportModel)
	reportInput := buildReportInput(brief, inv.Input)
	report, err := p.message(ctx, reportModel, reportSystemPrompt(inv.Config.SearchAPI), reportInput, defaultAnthropicMaxTokens, inv.Listener)
	if err != nil {
		return nil, err
	}

	return &Result{State: map[string]any{
		"final_report":   report,
		"research_brief": brief,
	}}, nil
}

// Summarize produces a bounded summary of req.Text.
func (p *AnthropicProvider) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	if req.Text == "" {
		return "", nil
	}
	model := p.resolveModel(req.Model)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultSummaryMaxTokens
	}
	return p.message(ctx, model, "", req.Prompt+req.Text, maxTokens, req.Listener)
}

// Provider returns the provider name.
func (p *AnthropicProvider) Provider() string {
	return "anthropic"
}

func (p *AnthropicProvider) resolveModel(override string) string {
	if override != "" {
		return override
	}
	return p.model
}

// message performs one Messages API call with retry on transient errors.
func (p *AnthropicProvider) message(ctx context.Context, model, system, user string, maxTokens int, listener usage.Listener) (string, error) {
	apiReq := messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: user},
		},
		Temperature: p.temperature,
	}

	var resp *messagesResponse
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("anthropic: context cancelled during retry: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, lastErr = p.sendRequest(ctx, apiReq)
		if lastErr == nil {
			break
		}

		// Only retry on transient errors.
		if !isTransientError(lastErr) {
			return "", lastErr
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("anthropic: all %d retries exhausted: %w", p.maxRetries, lastErr)
	}

	emit(listener, usage.Event{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Model:        model,
	})

	return textContent(resp)
}

// sendRequest sends a single request to the Anthropic Messages API and
// returns the parsed response or an error.
func (p *AnthropicProvider) sendRequest(ctx context.Context, apiReq messagesRequest) (*messagesResponse, error) {
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}

	status, respBody, err := postJSON(ctx, p.httpClient, p.baseURL+"/v1/messages", headers, apiReq)
	if err != nil {
		// Network failures are transient and eligible for retry.
		return nil, &APIError{
			Provider: "anthropic",
			Message:  fmt.Sprintf("request failed: %v", err),
			Type:     "network_error",
		}
	}

	if status != http.StatusOK {
		return nil, parseAnthropicAPIError(status, respBody)
	}

	var resp messagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("anthropic: unmarshal response: %w", err)
	}

	return &resp, nil
}

// textContent extracts the first text content block of the response.
func textContent(resp *messagesResponse) (string, error) {
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: response contains no text content blocks")
}

// parseAnthropicAPIError parses an Anthropic API error from the response
// status code and body.
func parseAnthropicAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "anthropic",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp anthropicErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
	}

	return apiErr
}
