package workflow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseDefinition decodes a YAML workflow definition and validates it.
//
// The accepted shape mirrors the in-memory Definition:
//
//	name: enrichment
//	mode: parallel          # sequential (default) | parallel
//	policy: best_effort     # continue (default) | strict | best_effort
//	steps:
//	  - name: extract
//	    agent: extractor
//	    timeout: 5s
//	    retry: {max_attempts: 3, backoff: 100ms}
//	    inputs:
//	      document: "inline text"            # bare scalars are literals
//	      source: {from: fetch.url, default: inline}
//	    condition: {key: fetch.ok, op: eq, value: true}
//	    after: [fetch]
//
// Binding values are literals unless written in mapping form with a "from"
// (or explicit "value") key.
func ParseDefinition(data []byte) (Definition, error) {
	var raw yamlDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Definition{}, fmt.Errorf("decode workflow definition: %w", err)
	}
	def, err := raw.toDefinition()
	if err != nil {
		return Definition{}, err
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadDefinition reads and parses a YAML workflow definition file.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read workflow definition: %w", err)
	}
	return ParseDefinition(data)
}

type yamlDefinition struct {
	Name   string     `yaml:"name"`
	Mode   string     `yaml:"mode"`
	Policy string     `yaml:"policy"`
	Steps  []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Name      string                 `yaml:"name"`
	Agent     string                 `yaml:"agent"`
	Inputs    map[string]yamlBinding `yaml:"inputs"`
	After     []string               `yaml:"after"`
	Timeout   string                 `yaml:"timeout"`
	Retry     *yamlRetry             `yaml:"retry"`
	Condition *Condition             `yaml:"condition"`
}

type yamlRetry struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Backoff     string `yaml:"backoff"`
}

// yamlBinding accepts either a bare YAML value (a literal binding) or a
// mapping with from/value/default/optional keys.
type yamlBinding struct {
	binding Binding
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *yamlBinding) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode && hasBindingKey(node) {
		var raw struct {
			Value    any    `yaml:"value"`
			From     string `yaml:"from"`
			Default  any    `yaml:"default"`
			Optional bool   `yaml:"optional"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		b.binding = Binding{Value: raw.Value, From: raw.From, Default: raw.Default, Optional: raw.Optional}
		return nil
	}

	var literal any
	if err := node.Decode(&literal); err != nil {
		return err
	}
	b.binding = Binding{Value: literal}
	return nil
}

// hasBindingKey reports whether the mapping uses the binding vocabulary.
// Mappings without it are treated as literal values wholesale.
func hasBindingKey(node *yaml.Node) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "from", "value", "default", "optional":
			return true
		}
	}
	return false
}

func (raw yamlDefinition) toDefinition() (Definition, error) {
	def := Definition{
		Name:   raw.Name,
		Mode:   ExecutionMode(raw.Mode),
		Policy: FailurePolicy(raw.Policy),
	}
	for _, rs := range raw.Steps {
		step := Step{
			Name:      rs.Name,
			Agent:     rs.Agent,
			After:     rs.After,
			Condition: rs.Condition,
		}
		if len(rs.Inputs) > 0 {
			step.Inputs = make(map[string]Binding, len(rs.Inputs))
			for field, yb := range rs.Inputs {
				step.Inputs[field] = yb.binding
			}
		}
		if rs.Timeout != "" {
			d, err := time.ParseDuration(rs.Timeout)
			if err != nil {
				return Definition{}, fmt.Errorf("step %s: invalid timeout %q: %w", rs.Name, rs.Timeout, err)
			}
			step.Timeout = d
		}
		if rs.Retry != nil {
			policy := RetryPolicy{MaxAttempts: rs.Retry.MaxAttempts}
			if rs.Retry.Backoff != "" {
				d, err := time.ParseDuration(rs.Retry.Backoff)
				if err != nil {
					return Definition{}, fmt.Errorf("step %s: invalid backoff %q: %w", rs.Name, rs.Retry.Backoff, err)
				}
				policy.Backoff = d
			}
			step.Retry = &policy
		}
		def.Steps = append(def.Steps, step)
	}
	return def, nil
}
