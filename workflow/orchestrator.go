package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/flowmesh/core"
	"github.com/hupe1980/flowmesh/logging"
	"github.com/hupe1980/flowmesh/registry"
	"github.com/hupe1980/flowmesh/store"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Store is the shared backing context store. Each run receives an
	// isolated namespace on top of it. When nil every run gets a private
	// in-memory store instead.
	Store store.Store

	// Logger receives structured engine events. Defaults to NoOpLogger.
	Logger logging.Logger

	// Hooks fire around every step dispatch attempt. Hook failures and
	// panics are isolated and never affect run outcome. Hooks must be safe
	// for concurrent use when parallel mode is enabled.
	Hooks []core.Hook

	// MaxConcurrency caps simultaneous step dispatches in parallel mode.
	// Zero or negative means no cap beyond the ready set size.
	MaxConcurrency int

	// DefaultRetry applies to steps that carry no retry policy.
	DefaultRetry RetryPolicy

	// DefaultTimeout bounds each attempt of steps that carry no timeout.
	// Zero means unbounded.
	DefaultTimeout time.Duration
}

// Orchestrator executes workflow definitions against an agent registry.
//
// It validates the step graph before any dispatch, schedules steps in
// topological order (concurrently per dependency level in parallel mode),
// threads outputs through a per-run context store scope, applies retry and
// timeout policy per step, and returns an aggregate Result. Public methods
// are safe for concurrent use; independent runs share nothing unless a
// backing store was configured, and even then each run is namespaced.
type Orchestrator struct {
	registry *registry.Registry

	store          store.Store
	logger         logging.Logger
	hooks          []core.Hook
	maxConcurrency int
	defaultRetry   RetryPolicy
	defaultTimeout time.Duration
}

// New constructs an Orchestrator resolving agents from reg, with optional
// overrides.
func New(reg *registry.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Logger:         logging.NoOpLogger{},
		MaxConcurrency: 8,
		DefaultRetry:   RetryPolicy{MaxAttempts: 1},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		registry:       reg,
		store:          opts.Store,
		logger:         opts.Logger,
		hooks:          opts.Hooks,
		maxConcurrency: opts.MaxConcurrency,
		defaultRetry:   opts.DefaultRetry,
		defaultTimeout: opts.DefaultTimeout,
	}
}

// Execute runs the definition to completion and returns the aggregate result.
//
// A definition that fails validation is rejected with *ValidationError before
// any step runs and with no context store side effects. Per-step execution
// errors never surface as a bare error return: they are recorded on the
// step's Result entry and reflected in the run status. Cancelling ctx
// prevents dispatch of not-yet-started steps; in-flight steps observe the
// cancellation at their own suspension points.
func (o *Orchestrator) Execute(ctx context.Context, def Definition) (*Result, error) {
	g, err := buildGraph(def)
	if err != nil {
		return nil, err
	}
	if def.Mode == "" {
		def.Mode = ModeSequential
	}
	if def.Policy == "" {
		def.Policy = PolicyContinue
	}

	runID := core.NewID()
	var runStore store.Store
	if o.store != nil {
		runStore = store.NewScoped(o.store, runID)
	} else {
		runStore = store.NewInMemoryStore()
	}

	rs := &runState{
		def:     def,
		graph:   g,
		runID:   runID,
		store:   runStore,
		results: make([]StepResult, len(def.Steps)),
	}
	for i, s := range def.Steps {
		rs.results[i] = StepResult{Name: s.Name, Agent: s.Agent, Status: StepPending}
	}

	o.logger.Info("workflow run started",
		"workflow", def.Name, "run_id", runID,
		"steps", len(def.Steps), "mode", string(def.Mode), "policy", string(def.Policy))
	start := time.Now()

	if def.Mode == ModeParallel {
		o.runParallel(ctx, rs)
	} else {
		o.runSequential(ctx, rs)
	}

	res := &Result{
		RunID:    runID,
		Workflow: def.Name,
		Status:   rs.terminalStatus(),
		Steps:    rs.snapshot(),
		Duration: time.Since(start),
	}
	o.logger.Info("workflow run finished",
		"workflow", def.Name, "run_id", runID,
		"status", string(res.Status), "duration", res.Duration)
	return res, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, rs *runState) {
	for _, i := range rs.graph.order {
		o.dispatch(ctx, rs, i)
	}
}

func (o *Orchestrator) runParallel(ctx context.Context, rs *runState) {
	for _, level := range rs.graph.levels {
		var eg errgroup.Group
		if o.maxConcurrency > 0 {
			eg.SetLimit(o.maxConcurrency)
		}
		for _, i := range level {
			i := i
			eg.Go(func() error {
				o.dispatch(ctx, rs, i)
				return nil
			})
		}
		// Barrier: the next level's dependencies must all be terminal.
		_ = eg.Wait()
	}
}

// dispatch applies the abort / cancellation / dependency / condition gates
// for the step at position i and executes it when all pass.
func (o *Orchestrator) dispatch(ctx context.Context, rs *runState, i int) {
	step := rs.graph.steps[i]

	if ctx.Err() != nil {
		rs.setCancelled()
	}
	if rs.isCancelled() || rs.isAborted() {
		o.finalizeUndispatched(ctx, rs, i, StepAborted, nil)
		return
	}

	for _, dep := range rs.graph.dependencies(i) {
		switch rs.statusOf(dep) {
		case StepFailed, StepSkippedDependency, StepAborted:
			o.logger.Debug("step skipped due to dependency",
				"run_id", rs.runID, "step", step.Name, "dependency", dep)
			o.finalizeUndispatched(ctx, rs, i, StepSkippedDependency, nil)
			return
		}
	}

	if step.Condition != nil {
		ok, err := step.Condition.evaluate(rs.lookup)
		if err != nil {
			// Operators are validated up front, so this only fires for
			// conditions mutated after validation.
			o.failStep(ctx, rs, i, KindValidation, 0, err, time.Now())
			return
		}
		if !ok {
			o.logger.Debug("step condition false, skipping",
				"run_id", rs.runID, "step", step.Name, "key", step.Condition.Key)
			o.finalizeUndispatched(ctx, rs, i, StepSkipped, nil)
			return
		}
	}

	o.executeStep(ctx, rs, i)

	if rs.statusAt(i) == StepFailed && rs.def.Policy == PolicyStrict {
		rs.markAborted()
	}
}

// executeStep resolves inputs and the agent, then drives the attempt loop.
func (o *Orchestrator) executeStep(ctx context.Context, rs *runState, i int) {
	step := rs.graph.steps[i]
	start := time.Now()

	fields, err := rs.resolveInputs(step)
	if err != nil {
		o.failStep(ctx, rs, i, KindMissingInput, 0, err, start)
		return
	}

	agent, release, err := o.registry.Resolve(ctx, step.Agent)
	if err != nil {
		kind := KindExecution
		if errors.Is(err, registry.ErrNotRegistered) {
			kind = KindNotRegistered
		}
		o.failStep(ctx, rs, i, kind, 0, err, start)
		return
	}
	defer func() {
		if rerr := release(ctx); rerr != nil {
			o.logger.Warn("agent release failed", "agent", step.Agent, "error", rerr)
		}
	}()

	retry := o.defaultRetry
	if step.Retry != nil {
		retry = *step.Retry
	}
	timeout := o.defaultTimeout
	if step.Timeout > 0 {
		timeout = step.Timeout
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= retry.attempts(); attempt++ {
		attempts = attempt
		o.fireBefore(ctx, rs.event(step, attempt, core.StepStatusRunning, 0, nil))

		attemptStart := time.Now()
		req := core.NewRequest(step.Name, fields)
		resp, err := o.invoke(ctx, agent, req, timeout)
		elapsed := time.Since(attemptStart)

		if err == nil && !resp.Success {
			err = fmt.Errorf("agent reported failure: %s", resp.Error)
		}
		if err == nil {
			err = rs.store.Set(step.Name, resp.Output, 0)
			if err == nil {
				rs.setResult(i, StepResult{
					Name:     step.Name,
					Agent:    step.Agent,
					Status:   StepSucceeded,
					Attempts: attempt,
					Output:   resp.Output,
					Duration: time.Since(start),
				})
				o.fireAfter(ctx, rs.event(step, attempt, core.StepStatusSucceeded, elapsed, nil))
				o.logger.Debug("step succeeded",
					"run_id", rs.runID, "step", step.Name, "attempt", attempt, "duration", elapsed)
				return
			}
		}

		lastErr = err
		o.fireAfter(ctx, rs.event(step, attempt, core.StepStatusFailed, elapsed, err))
		o.logger.Warn("step attempt failed",
			"run_id", rs.runID, "step", step.Name, "attempt", attempt, "error", err)

		if ctx.Err() != nil {
			rs.setCancelled()
			break
		}
		if attempt < retry.attempts() && !o.backoff(ctx, retry.Backoff) {
			rs.setCancelled()
			break
		}
	}

	o.failStep(ctx, rs, i, classify(lastErr), attempts, lastErr, start)
}

// failStep records the terminal failure of the step at position i and emits
// the corresponding hook event.
func (o *Orchestrator) failStep(ctx context.Context, rs *runState, i int, kind ErrorKind, attempts int, cause error, start time.Time) {
	step := rs.graph.steps[i]
	stepErr := &StepError{Step: step.Name, Kind: kind, Attempts: attempts, Err: cause}
	rs.setResult(i, StepResult{
		Name:     step.Name,
		Agent:    step.Agent,
		Status:   StepFailed,
		Attempts: attempts,
		Err:      stepErr,
		Duration: time.Since(start),
	})
	if attempts == 0 {
		// Dispatch-time failures produced no attempt events of their own.
		o.fireAfter(ctx, rs.event(step, 0, core.StepStatusFailed, time.Since(start), stepErr))
	}
	o.logger.Warn("step failed",
		"run_id", rs.runID, "step", step.Name, "kind", string(kind), "attempts", attempts, "error", cause)
}

// finalizeUndispatched records a terminal status for a step that was never
// dispatched (skipped, dependency-skipped or aborted) and emits a single
// attempt-0 hook event.
func (o *Orchestrator) finalizeUndispatched(ctx context.Context, rs *runState, i int, status StepStatus, err error) {
	step := rs.graph.steps[i]
	rs.setResult(i, StepResult{Name: step.Name, Agent: step.Agent, Status: status, Err: err})
	o.fireAfter(ctx, rs.event(step, 0, hookStatus(status), 0, err))
}

// invoke executes one agent attempt, bounding it with the per-attempt timeout
// and detaching from agents that ignore cancellation: when the context ends
// before the agent returns, the attempt fails with the context error and the
// straggler goroutine is abandoned.
func (o *Orchestrator) invoke(ctx context.Context, agent core.Agent, req core.Request, timeout time.Duration) (core.Response, error) {
	cctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		resp core.Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		resp, err := agent.Execute(cctx, req)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		return out.resp, out.err
	case <-cctx.Done():
		return core.Response{}, cctx.Err()
	}
}

// backoff sleeps for d or until the context ends. It returns false when the
// wait was cut short by cancellation.
func (o *Orchestrator) backoff(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) fireBefore(ctx context.Context, ev core.StepEvent) {
	for _, h := range o.hooks {
		o.safeHook(func() { h.BeforeStep(ctx, ev) })
	}
}

func (o *Orchestrator) fireAfter(ctx context.Context, ev core.StepEvent) {
	for _, h := range o.hooks {
		o.safeHook(func() { h.AfterStep(ctx, ev) })
	}
}

// safeHook isolates hook panics so observers can never affect run outcome.
func (o *Orchestrator) safeHook(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("hook panicked", "panic", r)
		}
	}()
	fn()
}

// classify maps an attempt error onto its ErrorKind.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindExecution
	}
}

// runState is the mutable per-run bookkeeping shared between the scheduling
// goroutines of one Execute call.
type runState struct {
	def   Definition
	graph *graph
	runID string
	store store.Store

	mu        sync.Mutex
	results   []StepResult
	aborted   bool
	cancelled bool
}

func (rs *runState) setResult(i int, r StepResult) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.results[i] = r
}

func (rs *runState) statusAt(i int) StepStatus {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.results[i].Status
}

func (rs *runState) statusOf(name string) StepStatus {
	return rs.statusAt(rs.graph.index[name])
}

func (rs *runState) snapshot() []StepResult {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]StepResult, len(rs.results))
	copy(out, rs.results)
	return out
}

func (rs *runState) markAborted() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.aborted = true
}

func (rs *runState) isAborted() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.aborted
}

func (rs *runState) setCancelled() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.cancelled = true
}

func (rs *runState) isCancelled() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.cancelled
}

// terminalStatus derives the run status from the recorded step results.
func (rs *runState) terminalStatus() RunStatus {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.cancelled {
		return RunCancelled
	}
	failed := false
	for _, r := range rs.results {
		if r.Status == StepFailed {
			failed = true
			break
		}
	}
	if !failed {
		return RunSucceeded
	}
	if rs.def.Policy == PolicyBestEffort {
		return RunPartiallyFailed
	}
	return RunFailed
}

// resolveInputs materializes the step's request fields from its bindings.
// Fields resolve in sorted name order so that missing-input errors are
// deterministic.
func (rs *runState) resolveInputs(s Step) (map[string]any, error) {
	fields := make(map[string]any, len(s.Inputs))
	for _, name := range sortedKeys(s.Inputs) {
		b := s.Inputs[name]
		if b.From == "" {
			fields[name] = b.Value
			continue
		}
		if v, ok := rs.lookup(b.From); ok {
			fields[name] = v
			continue
		}
		if b.Default != nil {
			fields[name] = b.Default
			continue
		}
		if b.Optional {
			continue
		}
		return nil, fmt.Errorf("required input %q is unresolved: %q is absent", name, b.From)
	}
	return fields, nil
}

// lookup resolves a "step" or "step.field" key against the run's context
// store scope.
func (rs *runState) lookup(key string) (any, bool) {
	stepName, field := splitRef(key)
	v, err := rs.store.Get(stepName)
	if err != nil {
		return nil, false
	}
	if field == "" {
		return v, true
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	fv, ok := m[field]
	return fv, ok
}

func (rs *runState) event(s Step, attempt int, status string, d time.Duration, err error) core.StepEvent {
	return core.StepEvent{
		RunID:    rs.runID,
		Workflow: rs.def.Name,
		Step:     s.Name,
		Agent:    s.Agent,
		Attempt:  attempt,
		Status:   status,
		Duration: d,
		Err:      err,
	}
}
