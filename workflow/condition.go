package workflow

import (
	"fmt"
	"reflect"
)

// ConditionOp names the predicate a Condition applies to its key.
type ConditionOp string

const (
	// OpExists is true when the key resolves to a live value.
	OpExists ConditionOp = "exists"

	// OpAbsent is true when the key resolves to nothing.
	OpAbsent ConditionOp = "absent"

	// OpEquals is true when the key exists and deep-equals Value.
	OpEquals ConditionOp = "eq"

	// OpNotEquals is true when the key exists and does not deep-equal
	// Value. An absent key is false; use OpAbsent for absence checks.
	OpNotEquals ConditionOp = "ne"
)

// Condition is a pure, serializable predicate over the run's context store.
// Keys use the same "step" / "step.field" addressing as input bindings and
// establish an ordering dependency on the referenced step, so the inspected
// value is settled before evaluation. Conditions are data rather than
// closures so that workflow definitions stay inspectable and loadable from
// configuration.
type Condition struct {
	Key    string      `json:"key"`
	Op     ConditionOp `json:"op"`
	Value  any         `json:"value,omitempty"`
	Negate bool        `json:"negate,omitempty"`
}

// Negated returns a copy of the condition with the outcome inverted.
func (c Condition) Negated() Condition {
	c.Negate = !c.Negate
	return c
}

// valid reports whether the operator is known.
func (c Condition) valid() bool {
	switch c.Op {
	case OpExists, OpAbsent, OpEquals, OpNotEquals:
		return true
	default:
		return false
	}
}

// evaluate resolves the condition against the supplied lookup, which maps a
// "step.field" key to its current value and presence.
func (c Condition) evaluate(lookup func(key string) (any, bool)) (bool, error) {
	v, ok := lookup(c.Key)

	var result bool
	switch c.Op {
	case OpExists:
		result = ok
	case OpAbsent:
		result = !ok
	case OpEquals:
		result = ok && reflect.DeepEqual(v, c.Value)
	case OpNotEquals:
		result = ok && !reflect.DeepEqual(v, c.Value)
	default:
		return false, fmt.Errorf("unknown condition operator %q", c.Op)
	}

	if c.Negate {
		result = !result
	}
	return result, nil
}
