package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// Concurrency defaults for the research worker. Generation activities spend
// most of their time waiting on model calls, so activity slots outnumber
// workflow task slots.
const (
	defaultActivitySlots   = 100
	defaultWorkflowSlots   = 50
	defaultActivityPollers = 4
	defaultWorkflowPollers = 2
)

// WorkerConfig sizes one Temporal worker. Zero fields fall back to the
// package defaults.
type WorkerConfig struct {
	TaskQueue string

	MaxConcurrentActivityExecutionSize     int
	MaxConcurrentWorkflowTaskExecutionSize int
	MaxConcurrentActivityTaskPollers       int
	MaxConcurrentWorkflowTaskPollers       int
}

// DefaultWorkerConfig returns the standard sizing for the given task queue.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	return WorkerConfig{
		TaskQueue:                              taskQueue,
		MaxConcurrentActivityExecutionSize:     defaultActivitySlots,
		MaxConcurrentWorkflowTaskExecutionSize: defaultWorkflowSlots,
		MaxConcurrentActivityTaskPollers:       defaultActivityPollers,
		MaxConcurrentWorkflowTaskPollers:       defaultWorkflowPollers,
	}
}

func (c WorkerConfig) options() worker.Options {
	opts := worker.Options{
		MaxConcurrentActivityExecutionSize:     c.MaxConcurrentActivityExecutionSize,
		MaxConcurrentWorkflowTaskExecutionSize: c.MaxConcurrentWorkflowTaskExecutionSize,
		MaxConcurrentActivityTaskPollers:       c.MaxConcurrentActivityTaskPollers,
		MaxConcurrentWorkflowTaskPollers:       c.MaxConcurrentWorkflowTaskPollers,
	}
	if opts.MaxConcurrentActivityExecutionSize == 0 {
		opts.MaxConcurrentActivityExecutionSize = defaultActivitySlots
	}
	if opts.MaxConcurrentWorkflowTaskExecutionSize == 0 {
		opts.MaxConcurrentWorkflowTaskExecutionSize = defaultWorkflowSlots
	}
	if opts.MaxConcurrentActivityTaskPollers == 0 {
		opts.MaxConcurrentActivityTaskPollers = defaultActivityPollers
	}
	if opts.MaxConcurrentWorkflowTaskPollers == 0 {
		opts.MaxConcurrentWorkflowTaskPollers = defaultWorkflowPollers
	}
	return opts
}

// WorkerManager runs the research and document workflows plus their
// activities on one task queue.
type WorkerManager struct {
	worker    worker.Worker
	taskQueue string
}

// NewWorkerManager builds a worker on the given client and task queue.
func NewWorkerManager(c client.Client, config WorkerConfig) (*WorkerManager, error) {
	if config.TaskQueue == "" {
		return nil, fmt.Errorf("task queue is required")
	}

	return &WorkerManager{
		worker:    worker.New(c, config.TaskQueue, config.options()),
		taskQueue: config.TaskQueue,
	}, nil
}

// RegisterWorkflow registers a workflow function with the worker.
func (m *WorkerManager) RegisterWorkflow(workflow interface{}) {
	m.worker.RegisterWorkflow(workflow)
}

// RegisterActivity registers an activity function or struct with the worker.
func (m *WorkerManager) RegisterActivity(activity interface{}) {
	m.worker.RegisterActivity(activity)
}

// TaskQueue returns the queue this worker polls.
func (m *WorkerManager) TaskQueue() string {
	return m.taskQueue
}

// Start runs the worker until the context is cancelled or the worker fails.
func (m *WorkerManager) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.worker.Run(worker.InterruptCh())
	}()

	select {
	case <-ctx.Done():
		m.worker.Stop()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Stop shuts the worker down gracefully.
func (m *WorkerManager) Stop() {
	m.worker.Stop()
}
