package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Amn-7/open-deep-research/internal/domain"
	"github.com/Amn-7/open-deep-research/internal/events"
	"github.com/Amn-7/open-deep-research/internal/repository"
	"github.com/Amn-7/open-deep-research/internal/storage"
	"github.com/Amn-7/open-deep-research/internal/temporal"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxRequestBodySize = 1 << 20 // 1 MB limit for JSON request bodies
	uploadFormField    = "file"
)

// startResearchRequest is the JSON request body for starting a research
// session. Query bounds match the persistence layer's column limits.
type startResearchRequest struct {
	Query    string `json:"query" validate:"required,min=3,max=10000"`
	ParentID string `json:"parent_id,omitempty" validate:"omitempty,uuid"`
}

// continueResearchRequest is the JSON request body for continuing a session.
// The parent comes from the URL instead of the body.
type continueResearchRequest struct {
	Query string `json:"query" validate:"required,min=3,max=10000"`
}

// startResearch handles POST /api/v1/research. It creates a new PENDING
// session and starts the research workflow.
func (s *Server) startResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)

	var req startResearchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if !s.validateStruct(w, &req) {
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != "" {
		id, err := uuid.Parse(req.ParentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parent_id must be a valid UUID")
			return
		}
		// The parent must exist and belong to the same user.
		if _, err := s.sessions.Get(ctx, userID, id); err != nil {
			writeDomainError(w, err)
			return
		}
		parentID = &id
	}

	s.createAndStart(w, r, userID, strings.TrimSpace(req.Query), parentID)
}

// continueResearch handles POST /api/v1/research/{sessionID}/continue. It
// creates a child session threaded onto the given parent and starts its
// workflow. The child inherits nothing except the lineage reference: its
// parent's summary is pulled in at run time as do-not-repeat context.
func (s *Server) continueResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)

	parentID, ok := parseUUID(w, chi.URLParam(r, "sessionID"), "session_id")
	if !ok {
		return
	}

	var req continueResearchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if !s.validateStruct(w, &req) {
		return
	}

	if _, err := s.sessions.Get(ctx, userID, parentID); err != nil {
		writeDomainError(w, err)
		return
	}

	s.createAndStart(w, r, userID, strings.TrimSpace(req.Query), &parentID)
}

// createAndStart inserts the session row and starts its workflow.
func (s *Server) createAndStart(w http.ResponseWriter, r *http.Request, userID, query string, parentID *uuid.UUID) {
	ctx := r.Context()

	now := time.Now()
	session := &domain.ResearchSession{
		ID:            uuid.New(),
		UserID:        userID,
		ParentID:      parentID,
		OriginalQuery: query,
		Status:        domain.SessionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		writeDomainError(w, err)
		return
	}

	workflowID, _, err := s.workflowClient.StartResearchWorkflow(ctx, temporal.ResearchWorkflowInput{
		SessionID:    session.ID,
		WaitWindow:   s.cfg.WaitWindow,
		RequeueDelay: s.cfg.RequeueDelay,
	}, s.researchWorkflow)
	if err != nil {
		s.requestLogger(ctx).Error().Err(err).Stringer("session_id", session.ID).Msg("failed to start research workflow")
		writeDomainError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordSessionStarted(parentID != nil)
	}
	s.publisher.Publish(ctx, events.SessionEvent{
		Type:      events.EventSessionStarted,
		SessionID: session.ID.String(),
		UserID:    userID,
	})

	s.requestLogger(ctx).Info().
		Stringer("session_id", session.ID).
		Str("workflow_id", workflowID).
		Bool("follow_up", parentID != nil).
		Msg("research session started")

	writeJSON(w, http.StatusCreated, startResearchResponse{
		SessionID:  session.ID.String(),
		WorkflowID: workflowID,
		Status:     string(session.Status),
		CreatedAt:  now,
	})
}

// listResearch handles GET /api/v1/research. It returns a paginated list of
// the caller's sessions, newest first.
func (s *Server) listResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)

	limit, offset := parsePaginationParams(r)

	filter := repository.SessionFilter{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	}

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		filter.Status = []domain.SessionStatus{domain.SessionStatus(strings.ToUpper(statusParam))}
	}
	if createdAfter := r.URL.Query().Get("created_after"); createdAfter != "" {
		t, parseErr := time.Parse(time.RFC3339, createdAfter)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid created_after format: expected RFC3339")
			return
		}
		filter.CreatedAfter = &t
	}
	if createdBefore := r.URL.Query().Get("created_before"); createdBefore != "" {
		t, parseErr := time.Parse(time.RFC3339, createdBefore)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid created_before format: expected RFC3339")
			return
		}
		filter.CreatedBefore = &t
	}

	sessions, totalCount, err := s.sessions.List(ctx, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summaries := make([]sessionSummaryResponse, len(sessions))
	for i, session := range sessions {
		summaries[i] = sessionToSummary(session)
	}

	writeJSON(w, http.StatusOK, listResearchResponse{
		Sessions:      summaries,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// getResearch handles GET /api/v1/research/{sessionID}. It returns the
// session plus whatever result records its runs have committed.
func (s *Server) getResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)

	sessionID, ok := parseUUID(w, chi.URLParam(r, "sessionID"), "session_id")
	if !ok {
		return
	}

	session, err := s.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := sessionToDetail(session)

	// Result records exist only after a successful run; their absence is
	// part of the session's normal lifecycle, not an error.
	if report, err := s.results.GetReport(ctx, sessionID); err == nil {
		resp.Report = report.Report
		resp.Sources = sourcesToResponse(report.Sources)
	} else if !errors.Is(err, domain.ErrNotFound) {
		writeDomainError(w, err)
		return
	}
	if summary, err := s.results.GetSummary(ctx, sessionID); err == nil {
		resp.Summary = summary.Summary
	} else if !errors.Is(err, domain.ErrNotFound) {
		writeDomainError(w, err)
		return
	}
	if reasoning, err := s.results.GetReasoning(ctx, sessionID); err == nil {
		resp.Reasoning = reasoning.Reasoning
	} else if !errors.Is(err, domain.ErrNotFound) {
		writeDomainError(w, err)
		return
	}
	if cost, err := s.results.GetCost(ctx, sessionID); err == nil {
		resp.Usage = &usageResponse{
			InputTokens:      cost.InputTokens,
			OutputTokens:     cost.OutputTokens,
			TotalTokens:      cost.TotalTokens,
			EstimatedCostUSD: cost.EstimatedCostUSD.String(),
			Model:            cost.ModelName,
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		writeDomainError(w, err)
		return
	}

	docs, err := s.documents.ListBySession(ctx, sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp.Documents = make([]documentResponse, len(docs))
	for i, doc := range docs {
		resp.Documents[i] = documentToResponse(doc)
	}

	writeJSON(w, http.StatusOK, resp)
}

// uploadDocument handles POST /api/v1/research/{sessionID}/documents. The
// file lands in the content-addressed store, the row is created with blank
// extraction fields, and the ingestion workflow is started.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)

	sessionID, ok := parseUUID(w, chi.URLParam(r, "sessionID"), "session_id")
	if !ok {
		return
	}

	session, err := s.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if session.Status.IsTerminal() {
		writeError(w, http.StatusConflict, "session is already in a terminal state")
		return
	}

	// The multipart envelope adds overhead on top of the file itself; the
	// store enforces the exact cap.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+maxRequestBodySize)

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("multipart file field %q is required", uploadFormField))
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !allowedUploadExt(filename) {
		writeError(w, http.StatusBadRequest, "only .pdf and .txt uploads are supported")
		return
	}

	relPath, err := s.store.Save(filename, file)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "uploaded file exceeds the size limit")
			return
		}
		s.requestLogger(ctx).Error().Err(err).Msg("failed to store uploaded file")
		writeError(w, http.StatusInternalServerError, "failed to store uploaded file")
		return
	}

	doc := &domain.Document{
		ID:          uuid.New(),
		SessionID:   sessionID,
		StoragePath: relPath,
		Filename:    filename,
		CreatedAt:   time.Now(),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		writeDomainError(w, err)
		return
	}

	workflowID, _, err := s.workflowClient.StartDocumentWorkflow(ctx, temporal.DocumentWorkflowInput{
		DocumentID: doc.ID,
	}, s.documentWorkflow)
	if err != nil {
		s.requestLogger(ctx).Error().Err(err).Stringer("document_id", doc.ID).Msg("failed to start document workflow")
		writeDomainError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordDocumentUploaded()
	}

	s.requestLogger(ctx).Info().
		Stringer("session_id", sessionID).
		Stringer("document_id", doc.ID).
		Str("filename", filename).
		Str("workflow_id", workflowID).
		Msg("document uploaded")

	writeJSON(w, http.StatusCreated, uploadDocumentResponse{
		DocumentID: doc.ID.String(),
		SessionID:  sessionID.String(),
		Filename:   filename,
		WorkflowID: workflowID,
	})
}

// decodeJSON reads a bounded JSON body into dst, writing a 400 response on
// failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// validateStruct runs struct validation, writing a 400 response on failure.
func (s *Server) validateStruct(w http.ResponseWriter, dst interface{}) bool {
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders the first validation failure as a client-facing
// message without echoing the offending value.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", field)
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "uuid":
			return fmt.Sprintf("%s must be a valid UUID", field)
		}
		return fmt.Sprintf("%s is invalid", field)
	}
	return "invalid request body"
}

// allowedUploadExt reports whether the upload's extension is supported.
func allowedUploadExt(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// writeDomainError maps domain and temporal errors to HTTP status codes.
// Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "illegal session state transition")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, temporal.ErrWorkflowAlreadyStarted):
		writeError(w, http.StatusConflict, "a run is already in progress for this session")
	case errors.Is(err, temporal.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, temporal.ErrConnectionFailed), errors.Is(err, temporal.ErrClientClosed):
		writeError(w, http.StatusServiceUnavailable, "orchestration unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if
// invalid. The parse error details are not included to avoid echoing
// potentially malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query
// parameters, applying default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodePageToken encodes the next offset as a base64 page token. Returns an
// empty string if there are no more results.
func encodePageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
