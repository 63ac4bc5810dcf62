package core

import "context"

// Agent defines the lifecycle contract every FlowMesh work unit must implement.
//
// Agents are the primary processing units in the framework. The orchestrator
// treats them as opaque: it calls Initialize once before first use, Execute
// for each dispatched step, and Cleanup when the owning registry releases the
// instance. Concrete behavior (extraction, validation, retrieval, LLM calls)
// lives entirely inside the implementation.
//
// Implementations must:
//   - Respect context cancellation in Execute for cooperative shutdown
//   - Treat Execute as reentrant when registered as a singleton, since
//     singleton instances are shared across concurrent workflow runs
//   - Release all held resources in Cleanup, which may be called after a
//     failed Execute
type Agent interface {
	// Initialize prepares the agent for use (connections, model handles,
	// caches). It is called exactly once per instance before Execute.
	Initialize(ctx context.Context) error

	// Execute processes a single request and returns a response. A non-nil
	// error indicates the agent faulted; a nil error with Success=false on
	// the response indicates a domain-level failure. Both feed the step's
	// retry policy identically.
	Execute(ctx context.Context, req Request) (Response, error)

	// Cleanup releases agent resources. It must be safe to call after a
	// failed Initialize or Execute.
	Cleanup(ctx context.Context) error
}

// AgentFactory produces a fresh Agent instance. Registries hold factories so
// that non-singleton registrations can mint an isolated instance per resolve.
type AgentFactory func() Agent

// AgentInfo carries identifying details about an agent used in logs & events.
// Name is the registry identifier; Type categorizes the implementation
// (e.g. "func", "llm", "custom").
type AgentInfo struct{ Name, Type string }
