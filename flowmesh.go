// Package flowmesh provides a high-level façade over the agent registry and
// workflow orchestrator, enabling rapid construction of multi-step agent
// pipelines. Most applications interact with this package by:
//  1. Creating a FlowMesh via New() (optionally overriding the default
//     in-memory context store, logger and hooks)
//  2. Registering one or more agents (function-backed, LLM-backed, custom)
//  3. Running workflow definitions built in code or loaded from YAML
//
// The façade delegates scheduling to workflow.Orchestrator while keeping
// setup ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a bounded store, a
// structured logger and metrics/tracing hooks.
package flowmesh

import (
	"context"
	"time"

	"github.com/hupe1980/flowmesh/core"
	"github.com/hupe1980/flowmesh/logging"
	"github.com/hupe1980/flowmesh/registry"
	"github.com/hupe1980/flowmesh/store"
	"github.com/hupe1980/flowmesh/workflow"
)

// Options configures the FlowMesh instance.
type Options struct {
	// Store holds step outputs and shared context. Each run gets its own
	// namespace on top of it. Defaults to an unbounded in-memory store;
	// use store.NewLRUStore for a bounded one.
	Store store.Store

	// Hooks observe step execution (metrics, tracing, custom logging).
	Hooks []core.Hook

	// MaxConcurrency limits simultaneously executing steps of a parallel
	// workflow. Zero picks the orchestrator default.
	MaxConcurrency int

	// DefaultRetry applies to steps without their own retry policy.
	DefaultRetry workflow.RetryPolicy

	// DefaultTimeout applies to steps without their own timeout. Zero
	// means no implicit timeout.
	DefaultTimeout time.Duration

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// FlowMesh is the high-level façade aggregating the registry and orchestrator.
type FlowMesh struct {
	opts         Options
	registry     *registry.Registry
	orchestrator *workflow.Orchestrator
}

// New creates a FlowMesh instance with optional overrides. Any unset service
// is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *FlowMesh {
	opts := Options{
		Store:  store.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	reg := registry.New(registry.WithLogger(opts.Logger))
	orch := workflow.New(reg, func(o *workflow.Options) {
		o.Store = opts.Store
		o.Logger = opts.Logger
		o.Hooks = opts.Hooks
		if opts.MaxConcurrency > 0 {
			o.MaxConcurrency = opts.MaxConcurrency
		}
		if opts.DefaultRetry.MaxAttempts > 0 {
			o.DefaultRetry = opts.DefaultRetry
		}
		o.DefaultTimeout = opts.DefaultTimeout
	})

	return &FlowMesh{opts: opts, registry: reg, orchestrator: orch}
}

// RegisterAgent adds a shared agent instance under the given name.
func (m *FlowMesh) RegisterAgent(name string, a core.Agent) {
	m.registry.RegisterAgent(name, a)
}

// Register adds an agent factory. Singleton agents are created and
// initialized once; non-singletons get a fresh instance per step.
func (m *FlowMesh) Register(name string, factory core.AgentFactory, singleton bool) {
	m.registry.Register(name, factory, singleton)
}

// Registry exposes the underlying agent registry for advanced setups.
func (m *FlowMesh) Registry() *registry.Registry { return m.registry }

// Run validates and executes a workflow definition.
func (m *FlowMesh) Run(ctx context.Context, def workflow.Definition) (*workflow.Result, error) {
	return m.orchestrator.Execute(ctx, def)
}

// RunFile loads a YAML workflow definition from path and executes it.
func (m *FlowMesh) RunFile(ctx context.Context, path string) (*workflow.Result, error) {
	def, err := workflow.LoadDefinition(path)
	if err != nil {
		return nil, err
	}
	return m.orchestrator.Execute(ctx, def)
}

// Shutdown releases all registered singleton agents. Call once the mesh is
// no longer needed.
func (m *FlowMesh) Shutdown(ctx context.Context) error {
	return m.registry.Shutdown(ctx)
}
