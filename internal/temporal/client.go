package temporal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"
)

// QueryProgress names the query that reports a research workflow's current
// phase. It lives here rather than in the workflows package so the server
// can reference it without importing workflow code.
const QueryProgress = "progress"

const (
	// DefaultWorkflowExecutionTimeout caps one research orchestration,
	// readiness-gate waiting included.
	DefaultWorkflowExecutionTimeout = 2 * time.Hour

	// documentWorkflowTimeout caps one document ingestion run.
	documentWorkflowTimeout = 30 * time.Minute

	// DefaultHealthCheckTimeout bounds Temporal health probes.
	DefaultHealthCheckTimeout = 5 * time.Second
)

// Sentinel errors the HTTP layer translates into status codes.
var (
	ErrWorkflowNotFound       = errors.New("workflow not found")
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")
	ErrClientClosed           = errors.New("temporal client closed")
	ErrConnectionFailed       = errors.New("temporal connection failed")
)

// TemporalError carries the failed operation and its sentinel category
// alongside the SDK error.
type TemporalError struct {
	Op         string
	Kind       error
	WorkflowID string
	Err        error
}

func (e *TemporalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.WorkflowID != "" {
		msg += fmt.Sprintf(" [workflowID=%s]", e.WorkflowID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *TemporalError) Unwrap() error { return e.Err }

func (e *TemporalError) Is(target error) bool { return errors.Is(e.Kind, target) }

// classify maps an SDK error onto our sentinels. Anything we have no
// specific handling for counts as a connection problem.
func classify(op string, err error, workflowID string) error {
	if err == nil {
		return nil
	}

	te := &TemporalError{Op: op, WorkflowID: workflowID, Err: err}

	var notFound *serviceerror.NotFound
	var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case errors.As(err, &notFound):
		te.Kind = ErrWorkflowNotFound
	case errors.As(err, &alreadyStarted):
		te.Kind = ErrWorkflowAlreadyStarted
	case errors.Is(err, context.Canceled):
		te.Kind = ErrClientClosed
	default:
		te.Kind = ErrConnectionFailed
	}

	return te
}

// TLSConfig describes mutual TLS to the Temporal frontend. Zero value means
// a plaintext connection.
type TLSConfig struct {
	Enabled            bool
	CertPath           string
	KeyPath            string
	CACertPath         string
	ServerName         string
	InsecureSkipVerify bool
}

func (t *TLSConfig) build() (*tls.Config, error) {
	if !t.Enabled {
		return nil, nil
	}

	cfg := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify,
		ServerName:         t.ServerName,
		MinVersion:         tls.VersionTLS12,
	}

	if t.CertPath != "" && t.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(t.CertPath, t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if t.CACertPath != "" {
		pem, err := os.ReadFile(t.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// ClientConfig is what it takes to dial the Temporal server.
type ClientConfig struct {
	HostPort  string
	Namespace string
	TLS       *TLSConfig
}

// NewClient dials the Temporal server. SDK logs go through the given
// logger; pass observability.NewTemporalLogger to keep them structured.
func NewClient(cfg ClientConfig, logger sdklog.Logger) (client.Client, error) {
	options := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    logger,
	}

	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsCfg, err := cfg.TLS.build()
		if err != nil {
			return nil, fmt.Errorf("configure TLS: %w", err)
		}
		options.ConnectionOptions = client.ConnectionOptions{TLS: tlsCfg}
	}

	c, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("dial temporal: %w", err)
	}

	return c, nil
}

// ResearchWorkflowInput starts one research orchestration. Defined here so
// the server can build it without importing the workflows package.
type ResearchWorkflowInput struct {
	// SessionID is the research session to drive to a terminal state.
	SessionID uuid.UUID

	// WaitWindow bounds how long the workflow defers to document ingestion.
	WaitWindow time.Duration

	// RequeueDelay is the pause between document-readiness checks.
	RequeueDelay time.Duration
}

// DocumentWorkflowInput starts one document ingestion run.
type DocumentWorkflowInput struct {
	// DocumentID is the uploaded document to process.
	DocumentID uuid.UUID
}

// ResearchWorkflowClient starts and health-checks the service's workflows.
type ResearchWorkflowClient struct {
	mu        sync.RWMutex
	client    client.Client
	taskQueue string
	closed    bool
}

// NewResearchWorkflowClient wraps an already-dialed Temporal client.
func NewResearchWorkflowClient(c client.Client, taskQueue string) *ResearchWorkflowClient {
	return &ResearchWorkflowClient{client: c, taskQueue: taskQueue}
}

// Close releases the underlying connection. Further calls on the wrapper
// return ErrClientClosed.
func (c *ResearchWorkflowClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
		c.closed = true
	}
}

func (c *ResearchWorkflowClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Health probes the Temporal frontend under a short timeout.
func (c *ResearchWorkflowClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &TemporalError{Op: "Health", Kind: ErrClientClosed}
	}

	checkCtx, cancel := context.WithTimeout(ctx, DefaultHealthCheckTimeout)
	defer cancel()

	if _, err := c.client.CheckHealth(checkCtx, &client.CheckHealthRequest{}); err != nil {
		return classify("Health", err, "")
	}

	return nil
}

// StartResearchWorkflow starts the research workflow for a session. The
// workflow ID is derived from the session ID so a session can only have one
// running orchestration at a time; re-submitting while one runs surfaces
// ErrWorkflowAlreadyStarted.
func (c *ResearchWorkflowClient) StartResearchWorkflow(ctx context.Context, input ResearchWorkflowInput, workflowFunc interface{}) (workflowID, runID string, err error) {
	if c.isClosed() {
		return "", "", &TemporalError{Op: "StartResearchWorkflow", Kind: ErrClientClosed}
	}

	workflowID = fmt.Sprintf("research-%s", input.SessionID)
	options := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: DefaultWorkflowExecutionTimeout,
	}

	run, err := c.client.ExecuteWorkflow(ctx, options, workflowFunc, input)
	if err != nil {
		return "", "", classify("StartResearchWorkflow", err, workflowID)
	}

	return workflowID, run.GetRunID(), nil
}

// StartDocumentWorkflow starts the ingestion workflow for an uploaded
// document. The workflow ID is derived from the document ID.
func (c *ResearchWorkflowClient) StartDocumentWorkflow(ctx context.Context, input DocumentWorkflowInput, workflowFunc interface{}) (workflowID, runID string, err error) {
	if c.isClosed() {
		return "", "", &TemporalError{Op: "StartDocumentWorkflow", Kind: ErrClientClosed}
	}

	workflowID = fmt.Sprintf("document-%s", input.DocumentID)
	options := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: documentWorkflowTimeout,
	}

	run, err := c.client.ExecuteWorkflow(ctx, options, workflowFunc, input)
	if err != nil {
		return "", "", classify("StartDocumentWorkflow", err, workflowID)
	}

	return workflowID, run.GetRunID(), nil
}

// TaskQueue returns the queue new workflows are started on.
func (c *ResearchWorkflowClient) TaskQueue() string {
	return c.taskQueue
}
