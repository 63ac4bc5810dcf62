package core

import (
	"context"
	"time"
)

// Step status values reported through hook events. They mirror the
// orchestrator's per-step state machine but are plain strings here so
// observability sinks do not need to import the workflow engine.
const (
	StepStatusRunning           = "running"
	StepStatusSucceeded         = "succeeded"
	StepStatusFailed            = "failed"
	StepStatusSkipped           = "skipped"
	StepStatusSkippedDependency = "skipped_dependency"
	StepStatusAborted           = "aborted"
)

// StepEvent is the structured payload delivered to hooks around each step
// dispatch attempt.
type StepEvent struct {
	// RunID identifies the workflow run the step belongs to.
	RunID string `json:"run_id"`

	// Workflow is the name of the workflow definition being executed.
	Workflow string `json:"workflow"`

	// Step is the step name; Agent the registry name it dispatched to.
	Step  string `json:"step"`
	Agent string `json:"agent"`

	// Attempt is 1-based and increments with each retry.
	Attempt int `json:"attempt"`

	// Status is one of the StepStatus* constants. BeforeStep always carries
	// StepStatusRunning; AfterStep carries the attempt outcome.
	Status string `json:"status"`

	// Duration is the wall-clock time of the attempt (AfterStep only).
	Duration time.Duration `json:"duration"`

	// Err is the attempt failure, nil on success (AfterStep only).
	Err error `json:"-"`
}

// Hook receives callbacks around every step dispatch attempt.
//
// Hooks are strictly observational: the orchestrator isolates panics and never
// lets a hook influence run outcome. Implementations should return quickly;
// they run synchronously on the dispatching goroutine.
type Hook interface {
	// BeforeStep fires immediately before an attempt is dispatched.
	BeforeStep(ctx context.Context, ev StepEvent)

	// AfterStep fires after the attempt completes, succeeds or fails, and
	// once more with the terminal status for steps that are skipped or
	// aborted without dispatch (Attempt 0).
	AfterStep(ctx context.Context, ev StepEvent)
}

// NoopHook is a Hook that does nothing. Useful as a default and for
// embedding when only one callback is of interest.
type NoopHook struct{}

// BeforeStep implements Hook.
func (NoopHook) BeforeStep(context.Context, StepEvent) {}

// AfterStep implements Hook.
func (NoopHook) AfterStep(context.Context, StepEvent) {}
