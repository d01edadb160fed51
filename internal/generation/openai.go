package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Amn-7/open-deep-research/internal/usage"
)

// Default values for the OpenAI provider.
const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o"
	defaultOpenAIMaxTokens  = 4096
	defaultOpenAIRetryDelay = 2 * time.Second
)

// chatRequest represents the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage represents a single message in the chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the OpenAI Chat Completions API response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice represents a single completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage contains token usage information.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// openAIErrorResponse represents an error response from the OpenAI API.
type openAIErrorResponse struct {
	Error openAIErrorDetail `json:"error"`
}

// openAIErrorDetail contains error details from the OpenAI API.
type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// OpenAIProvider implements Generator using the OpenAI Chat Completions API.
type OpenAIProvider struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

// OpenAIConfig holds the parameters needed to create an OpenAI provider.
// This is defined in the generation package to avoid importing the config
// package.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the default model identifier, used for stages without an
	// explicit override.
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// NewOpenAIProvider creates a new OpenAI generation provider. Transient API
// errors are retried up to maxRetries times with backoff.
func NewOpenAIProvider(cfg OpenAIConfig, temperature float64, timeout time.Duration, maxRetries int) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	return &OpenAIProvider{
		httpClient:  newAPIClient(timeout),
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxRetries:  maxRetries,
		retryDelay:  defaultOpenAIRetryDelay,
	}
}

// Generate runs the deep-research flow: derive a research brief with the
// research-stage model, then write the report with the final-report model.
// Both calls emit usage events to the invocation's listener.
func (p *OpenAIProvider) Generate(ctx context.Context, inv Invocation) (*Result, error) {
	briefModel := p.resolveModel(inv.Config.ResearchModel)
	brief, err := p.chat(ctx, briefModel, briefSystemPrompt, inv.Input, briefMaxTokens, inv.Listener)
	if err != nil {
		return nil, err
	}

	reportModel := p.resolveModel(inv.Config.FinalReportModel)
	reportInput := buildReportInput(brief, inv.Input)
	report, err := p.chat(ctx, reportModel, reportSystemPrompt(inv.Config.SearchAPI), reportInput, defaultOpenAIMaxTokens, inv.Listener)
	if err != nil {
		return nil, err
	}

	return &Result{State: map[string]any{
		"final_report":   report,
		"research_brief": brief,
	}}, nil
}

// Summarize produces a bounded summary of req.Text. Empty text or no usable
// model yields an empty summary without a provider call.
func (p *OpenAIProvider) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	if req.Text == "" {
		return "", nil
	}
	model := p.resolveModel(req.Model)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultSummaryMaxTokens
	}
	return p.chat(ctx, model, "", req.Prompt+req.Text, maxTokens, req.Listener)
}

// Provider returns the name of the provider.
func (p *OpenAIProvider) Provider() string {
	return "openai"
}

func (p *OpenAIProvider) resolveModel(override string) string {
	if override != "" {
		return override
	}
	return p.model
}

// chat performs one Chat Completions call with retry on transient errors.
func (p *OpenAIProvider) chat(ctx context.Context, model, system, user string, maxTokens int, listener usage.Listener) (string, error) {
	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	chatReq := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: p.temperature,
		MaxTokens:   maxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("openai: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		content, err := p.doRequest(ctx, chatReq, listener)
		if err == nil {
			return content, nil
		}

		// Only retry on transient errors (5xx, 429).
		if !isTransientError(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("openai: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// doRequest performs a single API request to the Chat Completions endpoint.
func (p *OpenAIProvider) doRequest(ctx context.Context, chatReq chatRequest, listener usage.Listener) (string, error) {
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	status, respBody, err := postJSON(ctx, p.httpClient, p.baseURL+"/chat/completions", headers, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}

	if status != http.StatusOK {
		return "", parseOpenAIAPIError(status, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("openai: unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}

	emit(listener, usage.Event{
		PromptTokens:     chatResp.Usage.PromptTokens,
		CompletionTokens: chatResp.Usage.CompletionTokens,
		Model:            chatReq.Model,
	})

	return chatResp.Choices[0].Message.Content, nil
}

// parseOpenAIAPIError parses an OpenAI API error from the response status
// code and body.
func parseOpenAIAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "openai",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}
