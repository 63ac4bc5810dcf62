package workflow

// Sequential builds a definition in which every step depends on its
// predecessor, executing as a linear chain. Bindings may still reference any
// earlier step; the added ordering edges only enforce the chain.
func Sequential(name string, steps ...Step) Definition {
	chained := make([]Step, len(steps))
	copy(chained, steps)
	for i := 1; i < len(chained); i++ {
		prev := chained[i-1].Name
		if !contains(chained[i].After, prev) {
			chained[i].After = append(append([]string{}, chained[i].After...), prev)
		}
	}
	return Definition{Name: name, Mode: ModeSequential, Steps: chained}
}

// Parallel builds a definition dispatching the given steps concurrently with
// a completion barrier. Steps with bindings between them still honor their
// dependency order within the parallel schedule.
func Parallel(name string, steps ...Step) Definition {
	return Definition{Name: name, Mode: ModeParallel, Steps: steps}
}

// Branch builds a two-way conditional: whenStep executes when cond holds,
// elseStep when it does not. Exactly one of the two runs; the other is
// skipped and produces no context entry.
func Branch(name string, cond Condition, whenStep, elseStep Step) Definition {
	c := cond
	whenStep.Condition = &c
	neg := cond.Negated()
	elseStep.Condition = &neg
	return Definition{Name: name, Mode: ModeSequential, Steps: []Step{whenStep, elseStep}}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
