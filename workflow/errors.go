package workflow

import "fmt"

// ErrorKind categorizes workflow errors so callers can react to the class of
// failure without string matching.
type ErrorKind string

const (
	// KindValidation covers malformed definitions (duplicate or empty step
	// names, unknown condition operators) rejected before execution.
	KindValidation ErrorKind = "validation"

	// KindCyclicDependency marks a dependency cycle in the step graph.
	KindCyclicDependency ErrorKind = "cyclic_dependency"

	// KindUnknownReference marks a binding or ordering edge pointing at a
	// step that does not exist in the definition.
	KindUnknownReference ErrorKind = "unknown_reference"

	// KindNotRegistered marks an unknown agent name at resolve time.
	KindNotRegistered ErrorKind = "not_registered"

	// KindMissingInput marks a required non-defaulted binding that resolved
	// to absent at dispatch time.
	KindMissingInput ErrorKind = "missing_input"

	// KindExecution marks an agent-reported failure or fault.
	KindExecution ErrorKind = "agent_execution"

	// KindTimeout marks a per-attempt timeout.
	KindTimeout ErrorKind = "timeout"

	// KindCancelled marks run-level cancellation observed by a step.
	KindCancelled ErrorKind = "cancelled"
)

// ValidationError reports a definition problem detected before any step runs.
// Validation is fail-fast and side-effect free: a run whose definition fails
// validation never touches the context store.
type ValidationError struct {
	Kind   ErrorKind `json:"kind"`
	Step   string    `json:"step,omitempty"`
	Detail string    `json:"detail"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("workflow validation failed [%s] at step %s: %s", e.Kind, e.Step, e.Detail)
	}
	return fmt.Sprintf("workflow validation failed [%s]: %s", e.Kind, e.Detail)
}

// StepError reports the terminal failure of a single step after all retry
// attempts were exhausted. It is recorded on the step's Result entry; callers
// never receive a bare error without step attribution.
type StepError struct {
	Step     string    `json:"step"`
	Kind     ErrorKind `json:"kind"`
	Attempts int       `json:"attempts"`
	Err      error     `json:"-"`
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed [%s] after %d attempt(s): %v", e.Step, e.Kind, e.Attempts, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *StepError) Unwrap() error { return e.Err }
