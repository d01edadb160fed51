// Package temporal connects the research service to its Temporal cluster:
// dialing the frontend, starting research and document workflows, and
// running the worker that executes them.
//
// Dial once at startup and share the client:
//
//	c, err := temporal.NewClient(temporal.ClientConfig{
//	    HostPort:  "localhost:7233",
//	    Namespace: "deep-research",
//	}, observability.NewTemporalLogger(logger))
//
// The HTTP layer starts workflows through ResearchWorkflowClient. Workflow
// IDs derive from session and document IDs, so starting a second
// orchestration for the same session surfaces ErrWorkflowAlreadyStarted:
//
//	wc := temporal.NewResearchWorkflowClient(c, taskQueue)
//	workflowID, runID, err := wc.StartResearchWorkflow(ctx, temporal.ResearchWorkflowInput{
//	    SessionID:    sessionID,
//	    WaitWindow:   2 * time.Minute,
//	    RequeueDelay: 15 * time.Second,
//	}, workflows.ResearchWorkflow)
//	if errors.Is(err, temporal.ErrWorkflowAlreadyStarted) {
//	    // a run for this session is already in flight
//	}
//
// The worker binary registers both workflows and all activity structs on one
// task queue via WorkerManager; see cmd/worker.
//
// Subpackages: workflows holds the two workflow definitions, activities the
// session, generation, and document activity implementations.
package temporal
