package activities

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Amn-7/open-deep-research/internal/domain"
	"github.com/Amn-7/open-deep-research/internal/events"
	"github.com/Amn-7/open-deep-research/internal/generation"
	"github.com/Amn-7/open-deep-research/internal/repository"
)

// ---------------------------------------------------------------------------
// Mock: SessionRepository
// ---------------------------------------------------------------------------

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.ResearchSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepository) Get(ctx context.Context, userID string, id uuid.UUID) (*domain.ResearchSession, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResearchSession), args.Error(1)
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ResearchSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResearchSession), args.Error(1)
}

func (m *mockSessionRepository) List(ctx context.Context, filter repository.SessionFilter) ([]*domain.ResearchSession, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.ResearchSession), args.Get(1).(int64), args.Error(2)
}

func (m *mockSessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus, traceID string) error {
	args := m.Called(ctx, id, status, traceID)
	return args.Error(0)
}

func (m *mockSessionRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// Mock: DocumentRepository
// ---------------------------------------------------------------------------

type mockDocumentRepository struct {
	mock.Mock
}

func (m *mockDocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockDocumentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *mockDocumentRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Document, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *mockDocumentRepository) CountUnprocessed(ctx context.Context, sessionID uuid.UUID) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *mockDocumentRepository) SetExtraction(ctx context.Context, id uuid.UUID, extractedText, extractedSummary string) error {
	args := m.Called(ctx, id, extractedText, extractedSummary)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// Mock: ResultRepository
// ---------------------------------------------------------------------------

type mockResultRepository struct {
	mock.Mock
}

func (m *mockResultRepository) UpsertReport(ctx context.Context, report *domain.ResearchReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *mockResultRepository) UpsertSummary(ctx context.Context, summary *domain.ResearchSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *mockResultRepository) UpsertReasoning(ctx context.Context, reasoning *domain.ResearchReasoning) error {
	args := m.Called(ctx, reasoning)
	return args.Error(0)
}

func (m *mockResultRepository) UpsertCost(ctx context.Context, cost *domain.ResearchCost) error {
	args := m.Called(ctx, cost)
	return args.Error(0)
}

func (m *mockResultRepository) GetReport(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchReport, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResearchReport), args.Error(1)
}

func (m *mockResultRepository) GetSummary(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchSummary, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResearchSummary), args.Error(1)
}

func (m *mockResultRepository) GetReasoning(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchReasoning, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResearchReasoning), args.Error(1)
}

func (m *mockResultRepository) GetCost(ctx context.Context, sessionID uuid.UUID) (*domain.ResearchCost, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResearchCost), args.Error(1)
}

// ---------------------------------------------------------------------------
// Mock: generation.Generator
// ---------------------------------------------------------------------------

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, inv generation.Invocation) (*generation.Result, error) {
	args := m.Called(ctx, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generation.Result), args.Error(1)
}

func (m *mockGenerator) Summarize(ctx context.Context, req generation.SummarizeRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Provider() string {
	return "mock"
}

// ---------------------------------------------------------------------------
// Capture publisher
// ---------------------------------------------------------------------------

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.SessionEvent
}

func (p *capturePublisher) Publish(_ context.Context, event events.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) published() []events.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.SessionEvent(nil), p.events...)
}
