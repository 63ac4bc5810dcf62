// Package workflow implements the FlowMesh orchestration engine: workflow
// definitions (steps, input bindings, retry policies, conditions), dependency
// graph validation, topological scheduling with sequential or parallel
// dispatch, failure propagation, and aggregate run results.
//
// A workflow is data: a named list of steps whose input bindings reference
// literals or prior step outputs. The Orchestrator validates the definition
// (rejecting cycles and unknown references before any step runs), resolves
// agents through a registry, threads outputs through a per-run context store
// scope, applies per-step retry/timeout policy, and returns a Result
// enumerating every step's terminal status.
package workflow
