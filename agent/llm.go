package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/flowmesh/core"
	"github.com/hupe1980/flowmesh/internal/util"
	"github.com/hupe1980/flowmesh/logging"
	"github.com/hupe1980/flowmesh/model"
)

// LLMOptions configures an LLMAgent.
type LLMOptions struct {
	// System carries optional system instructions sent with every prompt.
	System string

	// OutputField names the response field holding the completion text.
	// Defaults to "text".
	OutputField string

	// MaxTokens caps the completion length. Zero means the model default.
	MaxTokens int64

	// Temperature overrides the model default when non-nil.
	Temperature *float64

	// Logger receives per-execution debug output.
	Logger logging.Logger
}

// LLMAgent renders a prompt template from the resolved request fields and
// asks a language model for a completion. Pass a provider adapter directly
// or a router view (router.ForTask) for task-aware model selection.
type LLMAgent struct {
	Base
	model    model.Model
	template string
	opts     LLMOptions
}

// NewLLMAgent builds an agent around m. The template is expanded with
// text/template against the request fields, so "{{.document}}" picks up the
// step input named document.
func NewLLMAgent(name string, m model.Model, promptTemplate string, optFns ...func(o *LLMOptions)) *LLMAgent {
	opts := LLMOptions{OutputField: "text"}
	for _, f := range optFns {
		f(&opts)
	}
	if opts.OutputField == "" {
		opts.OutputField = "text"
	}

	a := &LLMAgent{
		Base:     NewBase(name),
		model:    m,
		template: promptTemplate,
		opts:     opts,
	}
	a.SetLogger(opts.Logger)
	return a
}

// Initialize implements core.Agent.
func (a *LLMAgent) Initialize(context.Context) error {
	if a.model == nil {
		return fmt.Errorf("agent %s: no model configured", a.Name())
	}
	if a.template == "" {
		return fmt.Errorf("agent %s: empty prompt template", a.Name())
	}
	return nil
}

// Execute implements core.Agent.
func (a *LLMAgent) Execute(ctx context.Context, req core.Request) (core.Response, error) {
	prompt, err := util.RenderTemplate(a.template, req.Fields)
	if err != nil {
		return core.Response{}, fmt.Errorf("render prompt: %w", err)
	}

	a.Logger().Debug("prompting model", "agent", a.Name(), "step", req.Step, "model", a.model.Info().Name)

	completion, err := a.model.Generate(ctx, model.Prompt{
		System:      a.opts.System,
		Text:        prompt,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	})
	if err != nil {
		return core.Response{}, fmt.Errorf("generate: %w", err)
	}

	output := map[string]any{
		a.opts.OutputField: completion.Text,
		"model":            completion.Model,
		"finish_reason":    completion.FinishReason,
	}
	if completion.Usage != nil {
		output["total_tokens"] = completion.Usage.TotalTokens
	}
	return core.NewResponse(req, output), nil
}
