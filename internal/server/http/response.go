package httpserver

import (
	"time"

	"github.com/Amn-7/open-deep-research/internal/domain"
)

// Response types for JSON serialization.

type startResearchResponse struct {
	SessionID  string    `json:"session_id"`
	WorkflowID string    `json:"workflow_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type sessionSummaryResponse struct {
	SessionID string    `json:"session_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listResearchResponse struct {
	Sessions      []sessionSummaryResponse `json:"sessions"`
	NextPageToken string                   `json:"next_page_token,omitempty"`
	TotalCount    int                      `json:"total_count"`
}

type sourceResponse struct {
	ID       int    `json:"id"`
	Citation string `json:"citation"`
	URL      string `json:"url,omitempty"`
}

type usageResponse struct {
	InputTokens      int    `json:"input_tokens"`
	OutputTokens     int    `json:"output_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	EstimatedCostUSD string `json:"estimated_cost_usd"`
	Model            string `json:"model,omitempty"`
}

type documentResponse struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Processed  bool      `json:"processed"`
	CreatedAt  time.Time `json:"created_at"`
}

type sessionDetailResponse struct {
	SessionID string    `json:"session_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	TraceID   string    `json:"trace_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Report    string             `json:"report,omitempty"`
	Sources   []sourceResponse   `json:"sources,omitempty"`
	Summary   string             `json:"summary,omitempty"`
	Reasoning string             `json:"reasoning,omitempty"`
	Usage     *usageResponse     `json:"usage,omitempty"`
	Documents []documentResponse `json:"documents"`
}

type uploadDocumentResponse struct {
	DocumentID string `json:"document_id"`
	SessionID  string `json:"session_id"`
	Filename   string `json:"filename"`
	WorkflowID string `json:"workflow_id"`
}

// Converter functions

func sessionToSummary(s *domain.ResearchSession) sessionSummaryResponse {
	resp := sessionSummaryResponse{
		SessionID: s.ID.String(),
		Query:     s.OriginalQuery,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.ParentID != nil {
		resp.ParentID = s.ParentID.String()
	}
	return resp
}

func sessionToDetail(s *domain.ResearchSession) sessionDetailResponse {
	resp := sessionDetailResponse{
		SessionID: s.ID.String(),
		Query:     s.OriginalQuery,
		Status:    string(s.Status),
		TraceID:   s.TraceID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.ParentID != nil {
		resp.ParentID = s.ParentID.String()
	}
	return resp
}

func sourcesToResponse(sources []domain.Source) []sourceResponse {
	out := make([]sourceResponse, len(sources))
	for i, src := range sources {
		out[i] = sourceResponse{
			ID:       src.ID,
			Citation: src.Citation,
			URL:      src.URL,
		}
	}
	return out
}

func documentToResponse(d *domain.Document) documentResponse {
	return documentResponse{
		DocumentID: d.ID.String(),
		Filename:   d.Filename,
		Processed:  d.IsProcessed(),
		CreatedAt:  d.CreatedAt,
	}
}
