package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// graph is the validated dependency structure of a definition: step positions,
// per-step dependencies, the full topological order, and the ready levels used
// by parallel dispatch. Built once per Execute, before any step runs.
type graph struct {
	steps []Step
	index map[string]int // step name -> declaration position
	deps  map[string][]string

	order  []int   // topological order, declaration-order tie-break
	levels [][]int // Kahn layers, each sorted by declaration position
}

// buildGraph validates the definition and computes its execution plan. All
// problems surface as *ValidationError.
func buildGraph(d Definition) (*graph, error) {
	if len(d.Steps) == 0 {
		return nil, &ValidationError{Kind: KindValidation, Detail: "workflow has no steps"}
	}
	switch d.Mode {
	case "", ModeSequential, ModeParallel:
	default:
		return nil, &ValidationError{Kind: KindValidation, Detail: fmt.Sprintf("unknown execution mode %q", d.Mode)}
	}
	switch d.Policy {
	case "", PolicyContinue, PolicyStrict, PolicyBestEffort:
	default:
		return nil, &ValidationError{Kind: KindValidation, Detail: fmt.Sprintf("unknown failure policy %q", d.Policy)}
	}

	g := &graph{
		steps: d.Steps,
		index: make(map[string]int, len(d.Steps)),
		deps:  make(map[string][]string, len(d.Steps)),
	}

	for i, s := range d.Steps {
		if s.Name == "" {
			return nil, &ValidationError{Kind: KindValidation, Detail: fmt.Sprintf("step at position %d has no name", i)}
		}
		if s.Agent == "" {
			return nil, &ValidationError{Kind: KindValidation, Step: s.Name, Detail: "step has no agent"}
		}
		if _, dup := g.index[s.Name]; dup {
			return nil, &ValidationError{Kind: KindValidation, Step: s.Name, Detail: "duplicate step name"}
		}
		g.index[s.Name] = i
	}

	for _, s := range d.Steps {
		if s.Condition != nil && !s.Condition.valid() {
			return nil, &ValidationError{Kind: KindValidation, Step: s.Name, Detail: fmt.Sprintf("unknown condition operator %q", s.Condition.Op)}
		}
		deps := s.dependencies()
		for _, dep := range deps {
			if _, ok := g.index[dep]; !ok {
				return nil, &ValidationError{Kind: KindUnknownReference, Step: s.Name, Detail: fmt.Sprintf("references unknown step %q", dep)}
			}
			if dep == s.Name {
				return nil, &ValidationError{Kind: KindCyclicDependency, Step: s.Name, Detail: "step references itself"}
			}
		}
		g.deps[s.Name] = deps
	}

	if err := g.plan(); err != nil {
		return nil, err
	}
	return g, nil
}

// plan runs Kahn's algorithm computing both the linear order and the parallel
// levels. Ties break in declaration order, making dispatch deterministic.
func (g *graph) plan() error {
	n := len(g.steps)
	indegree := make([]int, n)
	for name, deps := range g.deps {
		indegree[g.index[name]] = len(deps)
	}

	dependents := make([][]int, n)
	for name, deps := range g.deps {
		for _, dep := range deps {
			di := g.index[dep]
			dependents[di] = append(dependents[di], g.index[name])
		}
	}

	done := make([]bool, n)
	for len(g.order) < n {
		var level []int
		for i := 0; i < n; i++ {
			if !done[i] && indegree[i] == 0 {
				level = append(level, i)
			}
		}
		if len(level) == 0 {
			return &ValidationError{Kind: KindCyclicDependency, Detail: fmt.Sprintf("dependency cycle involving steps: %s", strings.Join(g.remaining(done), ", "))}
		}
		sort.Ints(level)
		for _, i := range level {
			done[i] = true
			g.order = append(g.order, i)
		}
		for _, i := range level {
			for _, di := range dependents[i] {
				indegree[di]--
			}
		}
		g.levels = append(g.levels, level)
	}
	return nil
}

// remaining lists the names of steps not yet placed, for cycle diagnostics.
func (g *graph) remaining(done []bool) []string {
	var names []string
	for i, s := range g.steps {
		if !done[i] {
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	return names
}

// dependencies returns the dependency names of the step at position i.
func (g *graph) dependencies(i int) []string {
	return g.deps[g.steps[i].Name]
}
