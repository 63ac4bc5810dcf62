// Package registry maps logical agent names to Agent instances and owns their
// lifecycle. Singleton registrations are initialized lazily on first resolve
// and cached until Shutdown; non-singleton registrations mint a fresh
// initialized instance per resolve, released by the caller when the dispatch
// completes or fails.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/flowmesh/core"
	"github.com/hupe1980/flowmesh/logging"
)

var (
	// ErrNotRegistered is returned by Resolve for unknown agent names.
	ErrNotRegistered = fmt.Errorf("agent not registered")
)

// ReleaseFunc returns a resolved agent to the registry. For singletons it is
// a no-op; for per-call instances it runs Cleanup. Callers must invoke it
// once the dispatch completes, whether it succeeded or failed.
type ReleaseFunc func(ctx context.Context) error

type registration struct {
	factory   core.AgentFactory
	singleton bool
}

// Options holds dependency overrides passed to New().
type Options struct {
	// Logger receives registry lifecycle events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry is a thread-safe name → agent mapping.
//
// Names are unique within one Registry instance; re-registering a name
// replaces the prior entry (last write wins) without affecting instances
// already handed out by Resolve.
type Registry struct {
	mu         sync.Mutex
	entries    map[string]registration
	singletons map[string]core.Agent // initialized singleton cache
	logger     logging.Logger
}

// New constructs an empty Registry with optional overrides.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		entries:    make(map[string]registration),
		singletons: make(map[string]core.Agent),
		logger:     opts.Logger,
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Register installs or replaces the factory for name. When singleton is true
// the first Resolve creates and initializes one shared instance; otherwise
// every Resolve produces a fresh instance.
//
// Replacing a name drops any cached singleton for it without running Cleanup;
// use Deregister first when the old instance holds resources.
func (r *Registry) Register(name string, factory core.AgentFactory, singleton bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		r.logger.Debug("replacing agent registration", "agent", name)
		delete(r.singletons, name)
	}
	r.entries[name] = registration{factory: factory, singleton: singleton}
}

// RegisterAgent installs an already constructed agent as a singleton. The
// instance still receives Initialize on first resolve.
func (r *Registry) RegisterAgent(name string, agent core.Agent) {
	r.Register(name, func() core.Agent { return agent }, true)
}

// Resolve returns an initialized agent for name plus a ReleaseFunc. It fails
// with ErrNotRegistered for unknown names, and propagates Initialize errors
// without caching the failed instance.
func (r *Registry) Resolve(ctx context.Context, name string) (core.Agent, ReleaseFunc, error) {
	r.mu.Lock()
	reg, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	if reg.singleton {
		if cached, ok := r.singletons[name]; ok {
			r.mu.Unlock()
			return cached, noRelease, nil
		}
		// Initialize under the lock so concurrent resolvers of the same
		// singleton observe exactly one Initialize call.
		agent := reg.factory()
		if err := agent.Initialize(ctx); err != nil {
			r.mu.Unlock()
			return nil, nil, fmt.Errorf("initialize agent %s: %w", name, err)
		}
		r.singletons[name] = agent
		r.mu.Unlock()
		r.logger.Debug("singleton agent initialized", "agent", name)
		return agent, noRelease, nil
	}
	r.mu.Unlock()

	agent := reg.factory()
	if err := agent.Initialize(ctx); err != nil {
		return nil, nil, fmt.Errorf("initialize agent %s: %w", name, err)
	}
	release := func(ctx context.Context) error {
		if err := agent.Cleanup(ctx); err != nil {
			return fmt.Errorf("cleanup agent %s: %w", name, err)
		}
		return nil
	}
	return agent, release, nil
}

// Deregister removes the entry for name, running Cleanup on a cached
// singleton instance if one exists.
func (r *Registry) Deregister(ctx context.Context, name string) error {
	r.mu.Lock()
	cached, hadInstance := r.singletons[name]
	delete(r.singletons, name)
	delete(r.entries, name)
	r.mu.Unlock()

	if hadInstance {
		if err := cached.Cleanup(ctx); err != nil {
			return fmt.Errorf("cleanup agent %s: %w", name, err)
		}
	}
	return nil
}

// Names returns all registered agent names. Ordering is unspecified.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Shutdown runs Cleanup on every cached singleton, collecting individual
// failures rather than aborting on the first one. The registry is empty
// afterwards and can be repopulated.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	instances := make(map[string]core.Agent, len(r.singletons))
	for name, agent := range r.singletons {
		instances[name] = agent
	}
	r.singletons = make(map[string]core.Agent)
	r.entries = make(map[string]registration)
	r.mu.Unlock()

	var errs []error
	for name, agent := range instances {
		if err := agent.Cleanup(ctx); err != nil {
			r.logger.Warn("agent cleanup failed", "agent", name, "error", err)
			errs = append(errs, fmt.Errorf("cleanup agent %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func noRelease(context.Context) error { return nil }
