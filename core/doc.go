// Package core defines the fundamental contracts of the FlowMesh framework:
// the Agent lifecycle interface, the immutable Request/Response payloads
// exchanged with agents, and the Hook callback points the orchestrator fires
// around every step dispatch.
//
// The package is intentionally dependency-light so that agent implementations
// and observability sinks can depend on it without pulling in the orchestration
// engine itself.
package core
