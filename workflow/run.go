package workflow

import (
	"time"

	"github.com/hupe1980/flowmesh/core"
)

// RunStatus is the terminal (or in-flight) state of a workflow run.
type RunStatus string

const (
	// RunPending marks an accepted run that has not started dispatching.
	RunPending RunStatus = "pending"
	// RunRunning marks a run with dispatch in progress.
	RunRunning RunStatus = "running"
	// RunSucceeded marks a run in which every step succeeded or was
	// condition-skipped.
	RunSucceeded RunStatus = "succeeded"
	// RunFailed marks a run with at least one failed required step.
	RunFailed RunStatus = "failed"
	// RunPartiallyFailed marks a best-effort run that absorbed failures.
	RunPartiallyFailed RunStatus = "partially_failed"
	// RunCancelled marks a run curtailed by run-level cancellation.
	RunCancelled RunStatus = "cancelled"
)

// StepStatus is the per-step state within a run.
type StepStatus string

const (
	// StepPending marks a step not yet considered for dispatch.
	StepPending StepStatus = "pending"
	// StepRunning marks a step with an attempt in flight.
	StepRunning StepStatus = "running"
	// StepSucceeded marks a step whose output was committed to the context
	// store.
	StepSucceeded StepStatus = "succeeded"
	// StepFailed marks a step whose attempts were exhausted.
	StepFailed StepStatus = "failed"
	// StepSkipped marks a step whose condition evaluated false. It produces
	// no context entry but does not curtail dependents.
	StepSkipped StepStatus = "skipped"
	// StepSkippedDependency marks a step not executed because a direct or
	// transitive dependency failed.
	StepSkippedDependency StepStatus = "skipped_dependency"
	// StepAborted marks a step never dispatched due to strict-mode abort or
	// run cancellation.
	StepAborted StepStatus = "aborted"
)

// hookStatus maps a StepStatus onto the plain-string status vocabulary of
// core.StepEvent.
func hookStatus(s StepStatus) string {
	switch s {
	case StepRunning:
		return core.StepStatusRunning
	case StepSucceeded:
		return core.StepStatusSucceeded
	case StepFailed:
		return core.StepStatusFailed
	case StepSkipped:
		return core.StepStatusSkipped
	case StepSkippedDependency:
		return core.StepStatusSkippedDependency
	case StepAborted:
		return core.StepStatusAborted
	default:
		return string(s)
	}
}

// StepResult is the per-step outcome recorded on a Result.
type StepResult struct {
	// Name and Agent identify the step and its registry target.
	Name  string `json:"name"`
	Agent string `json:"agent"`

	// Status is the step's terminal state.
	Status StepStatus `json:"status"`

	// Attempts counts dispatch attempts; zero for steps never dispatched.
	Attempts int `json:"attempts"`

	// Output is the committed result payload for succeeded steps.
	Output map[string]any `json:"output,omitempty"`

	// Err is the terminal *StepError for failed steps, nil otherwise.
	Err error `json:"-"`

	// Duration is the total wall-clock time across all attempts.
	Duration time.Duration `json:"duration"`
}

// Result is the aggregate outcome of a workflow run. Steps appear in
// declaration order regardless of dispatch order.
type Result struct {
	// RunID uniquely identifies this execution instance.
	RunID string `json:"run_id"`

	// Workflow is the definition name.
	Workflow string `json:"workflow"`

	// Status is the run's terminal state.
	Status RunStatus `json:"status"`

	// Steps enumerates every step's terminal status in declaration order.
	Steps []StepResult `json:"steps"`

	// Duration is the run's total wall-clock time.
	Duration time.Duration `json:"duration"`
}

// Step returns the result entry for the named step.
func (r *Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Output returns the output of the last succeeded step in declaration order,
// the conventional "final result" of a linear chain. Nil when no step
// succeeded.
func (r *Result) Output() map[string]any {
	for i := len(r.Steps) - 1; i >= 0; i-- {
		if r.Steps[i].Status == StepSucceeded {
			return r.Steps[i].Output
		}
	}
	return nil
}

// Outputs returns the outputs of all succeeded steps keyed by step name.
func (r *Result) Outputs() map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, s := range r.Steps {
		if s.Status == StepSucceeded {
			out[s.Name] = s.Output
		}
	}
	return out
}

// Failed returns the results of all failed steps in declaration order.
func (r *Result) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			failed = append(failed, s)
		}
	}
	return failed
}
