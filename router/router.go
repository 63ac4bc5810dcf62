// Package router selects among registered language models by task type.
//
// Models are registered with the task types they are good at and a priority.
// The router picks the highest-priority healthy model for a task, falls back
// to general-purpose models when no specialist is available, and transparently
// retries the next candidate when a provider call fails. Completions can be
// cached with a TTL to absorb repeated prompts.
package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/flowmesh/logging"
	"github.com/hupe1980/flowmesh/model"
)

// TaskType classifies the kind of work a prompt represents.
type TaskType string

const (
	TaskCreative       TaskType = "creative"
	TaskReasoning      TaskType = "reasoning"
	TaskClassification TaskType = "classification"
	TaskExtraction     TaskType = "extraction"
	TaskSummarization  TaskType = "summarization"
	TaskGeneral        TaskType = "general"
)

// ErrNoModel is returned when no healthy model covers the requested task type.
var ErrNoModel = fmt.Errorf("no healthy model for task")

// Options configures a Router.
type Options struct {
	// Logger receives routing decisions and health transitions.
	Logger logging.Logger

	// CacheSize bounds the completion cache. Zero disables caching.
	CacheSize int

	// CacheTTL is the lifetime of a cached completion. Zero means cached
	// entries never expire (until evicted by capacity).
	CacheTTL time.Duration

	// Cooldown is how long a model stays out of rotation after a failed
	// call before it is probed again.
	Cooldown time.Duration
}

type entry struct {
	model    model.Model
	tasks    map[TaskType]bool
	priority int
}

type cachedCompletion struct {
	completion model.Completion
	storedAt   time.Time
}

// Router routes Generate calls to the best available model for a task.
// Safe for concurrent use.
type Router struct {
	mu        sync.RWMutex
	entries   []*entry
	downUntil map[string]time.Time
	cache     *lru.Cache[string, cachedCompletion]
	cacheTTL  time.Duration
	cooldown  time.Duration
	logger    logging.Logger
	now       func() time.Time
}

// New creates a Router.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		Logger:   logging.NoOpLogger{},
		Cooldown: 30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Router{
		downUntil: make(map[string]time.Time),
		cacheTTL:  opts.CacheTTL,
		cooldown:  opts.Cooldown,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if opts.CacheSize > 0 {
		// lru.New only fails on a non-positive size.
		cache, err := lru.New[string, cachedCompletion](opts.CacheSize)
		if err != nil {
			panic(err)
		}
		r.cache = cache
	}
	return r
}

// Register adds a model for the given task types. Priority breaks ties:
// higher wins. Registering a model with no task types makes it
// general-purpose only.
func (r *Router) Register(m model.Model, priority int, tasks ...TaskType) {
	set := make(map[TaskType]bool, len(tasks)+1)
	for _, t := range tasks {
		set[t] = true
	}
	if len(set) == 0 {
		set[TaskGeneral] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &entry{model: m, tasks: set, priority: priority})
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].priority > r.entries[j].priority
	})
	r.logger.Debug("model registered", "model", m.Info().Name, "priority", priority, "tasks", tasks)
}

// Models returns the names of all registered models in priority order.
func (r *Router) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.model.Info().Name)
	}
	return names
}

// Pick returns the highest-priority healthy model for the task, falling back
// to general-purpose models when no specialist is available.
func (r *Router) Pick(task TaskType) (model.Model, error) {
	if m := r.pickFrom(task, nil); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoModel, task)
}

// pickFrom returns the best healthy candidate for task, skipping names in
// tried. Specialists first, then general-purpose.
func (r *Router) pickFrom(task TaskType, tried map[string]bool) model.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, wantGeneral := range []bool{false, true} {
		for _, e := range r.entries {
			name := e.model.Info().Name
			if tried[name] || !r.healthyLocked(name) {
				continue
			}
			if wantGeneral {
				if !e.tasks[TaskGeneral] {
					continue
				}
			} else if !e.tasks[task] {
				continue
			}
			return e.model
		}
		if task == TaskGeneral {
			break
		}
	}
	return nil
}

// Generate routes the prompt to a model for the task, failing over to the
// next candidate when a provider call errors. Results may be served from and
// stored to the completion cache.
func (r *Router) Generate(ctx context.Context, task TaskType, prompt model.Prompt) (model.Completion, error) {
	key := cacheKey(task, prompt)
	if c, ok := r.cached(key); ok {
		return c, nil
	}

	tried := make(map[string]bool)
	var lastErr error
	for {
		m := r.pickFrom(task, tried)
		if m == nil {
			if lastErr != nil {
				return model.Completion{}, lastErr
			}
			return model.Completion{}, fmt.Errorf("%w: %s", ErrNoModel, task)
		}
		name := m.Info().Name
		tried[name] = true

		completion, err := m.Generate(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return model.Completion{}, err
			}
			r.MarkUnhealthy(name)
			r.logger.Warn("model call failed, trying next candidate", "model", name, "task", string(task), "error", err)
			lastErr = fmt.Errorf("model %s: %w", name, err)
			continue
		}

		r.store(key, completion)
		return completion, nil
	}
}

// ForTask returns a model.Model view of the router bound to one task type,
// so task-aware routing can be plugged in wherever a plain model is expected.
func (r *Router) ForTask(task TaskType) model.Model {
	return taskModel{router: r, task: task}
}

// MarkUnhealthy takes a model out of rotation for the configured cooldown.
func (r *Router) MarkUnhealthy(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downUntil[name] = r.now().Add(r.cooldown)
}

// MarkHealthy returns a model to rotation immediately.
func (r *Router) MarkHealthy(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.downUntil, name)
}

// Healthy reports whether the named model is currently in rotation.
func (r *Router) Healthy(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.healthyLocked(name)
}

func (r *Router) healthyLocked(name string) bool {
	until, ok := r.downUntil[name]
	return !ok || r.now().After(until)
}

func (r *Router) cached(key string) (model.Completion, bool) {
	if r.cache == nil {
		return model.Completion{}, false
	}
	c, ok := r.cache.Get(key)
	if !ok {
		return model.Completion{}, false
	}
	if r.cacheTTL > 0 && r.now().Sub(c.storedAt) >= r.cacheTTL {
		r.cache.Remove(key)
		return model.Completion{}, false
	}
	return c.completion, true
}

func (r *Router) store(key string, c model.Completion) {
	if r.cache == nil {
		return
	}
	r.cache.Add(key, cachedCompletion{completion: c, storedAt: r.now()})
}

func cacheKey(task TaskType, prompt model.Prompt) string {
	return string(task) + "\x1f" + prompt.System + "\x1f" + prompt.Text
}

type taskModel struct {
	router *Router
	task   TaskType
}

func (t taskModel) Generate(ctx context.Context, prompt model.Prompt) (model.Completion, error) {
	return t.router.Generate(ctx, t.task, prompt)
}

func (t taskModel) Info() model.Info {
	return model.Info{Name: "router/" + string(t.task), Provider: "router"}
}
