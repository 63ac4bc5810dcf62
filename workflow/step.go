package workflow

import (
	"sort"
	"strings"
	"time"
)

// ExecutionMode selects how simultaneously-ready steps are dispatched.
type ExecutionMode string

const (
	// ModeSequential executes steps one at a time in topological order with
	// declaration-order tie-break. The zero value defaults to sequential.
	ModeSequential ExecutionMode = "sequential"

	// ModeParallel dispatches each set of simultaneously-ready steps
	// concurrently, with a barrier between dependency levels.
	ModeParallel ExecutionMode = "parallel"
)

// FailurePolicy controls how a step failure affects the rest of the run.
type FailurePolicy string

const (
	// PolicyContinue (the default) curtails only the failed branch: direct
	// and transitive dependents are skipped, independent branches continue,
	// and the run terminates as Failed.
	PolicyContinue FailurePolicy = "continue"

	// PolicyStrict aborts all remaining dispatch immediately on the first
	// step failure.
	PolicyStrict FailurePolicy = "strict"

	// PolicyBestEffort behaves like PolicyContinue but reports the run as
	// PartiallyFailed, treating absorbed failures as non-fatal.
	PolicyBestEffort FailurePolicy = "best_effort"
)

// RetryPolicy bounds re-dispatch of a failing step.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int `json:"max_attempts"`

	// Backoff is the fixed delay between attempts.
	Backoff time.Duration `json:"backoff"`
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Binding maps one request field of a step to either a literal value or a
// prior step's output.
//
// When From is empty the binding is a literal carrying Value. Otherwise From
// is a reference of the form "step" (the whole output map) or "step.field"
// (one output field). A reference that resolves to absent, because the
// producing step was skipped or its output lacks the field, falls back to
// Default when one is declared, is omitted entirely when Optional is set, and
// otherwise fails the step with a missing-input error.
type Binding struct {
	Value    any    `json:"value,omitempty"`
	From     string `json:"from,omitempty"`
	Default  any    `json:"default,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// Literal constructs a literal binding.
func Literal(v any) Binding { return Binding{Value: v} }

// FromStep constructs a required reference binding. The ref is "step" or
// "step.field".
func FromStep(ref string) Binding { return Binding{From: ref} }

// FromStepDefault constructs a reference binding with a fallback used when
// the reference resolves to absent.
func FromStepDefault(ref string, def any) Binding { return Binding{From: ref, Default: def} }

// refStep returns the referenced step name, or "" for literal bindings.
func (b Binding) refStep() string {
	step, _ := splitRef(b.From)
	return step
}

// splitRef splits "step.field" into its parts; a bare "step" yields an empty
// field meaning the whole output map.
func splitRef(ref string) (step, field string) {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}

// Step is one named unit of a workflow definition.
type Step struct {
	// Name uniquely identifies the step within the definition and doubles
	// as the context store key its output is written under.
	Name string `json:"name"`

	// Agent is the registry name the step dispatches to.
	Agent string `json:"agent"`

	// Inputs maps request field names to bindings. References establish the
	// step's data dependencies.
	Inputs map[string]Binding `json:"inputs,omitempty"`

	// After lists additional ordering dependencies that carry no data.
	After []string `json:"after,omitempty"`

	// Retry overrides the orchestrator's default retry policy when set.
	Retry *RetryPolicy `json:"retry,omitempty"`

	// Condition gates execution: when it evaluates false the step is
	// skipped and produces no context entry.
	Condition *Condition `json:"condition,omitempty"`

	// Timeout bounds each attempt; exceeding it counts as an attempt
	// failure feeding the retry policy. Zero means no per-attempt bound.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// dependencies returns the deduplicated step names this step depends on,
// combining binding references, condition references and After edges. The
// condition edge guarantees the gated value is settled before evaluation,
// also under parallel dispatch.
func (s Step) dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}
	for _, field := range sortedKeys(s.Inputs) {
		add(s.Inputs[field].refStep())
	}
	if s.Condition != nil {
		step, _ := splitRef(s.Condition.Key)
		add(step)
	}
	for _, name := range s.After {
		add(name)
	}
	return deps
}

// Definition is a complete workflow: an ordered list of steps plus execution
// mode and failure policy. Definitions are plain data and safe to serialize.
type Definition struct {
	Name   string        `json:"name"`
	Mode   ExecutionMode `json:"mode,omitempty"`
	Policy FailurePolicy `json:"policy,omitempty"`
	Steps  []Step        `json:"steps"`
}

// Validate checks the definition without executing it: step names must be
// unique and non-empty, references must point at existing steps, conditions
// must use known operators, and the dependency graph must be acyclic.
func (d Definition) Validate() error {
	_, err := buildGraph(d)
	return err
}

func sortedKeys(m map[string]Binding) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
