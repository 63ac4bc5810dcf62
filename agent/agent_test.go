package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowmesh/core"
	"github.com/hupe1980/flowmesh/internal/util"
	"github.com/hupe1980/flowmesh/model"
)

func TestFuncAgent_Execute(t *testing.T) {
	a := NewFuncAgent("doubler", func(_ context.Context, req core.Request) (map[string]any, error) {
		n, _ := req.Field("n")
		return map[string]any{"doubled": n.(int) * 2}, nil
	})

	require.NoError(t, a.Initialize(context.Background()))
	t.Cleanup(func() { _ = a.Cleanup(context.Background()) })

	resp, err := a.Execute(context.Background(), core.NewRequest("calc", map[string]any{"n": 21}))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]any{"doubled": 42}, resp.Output)
	assert.Equal(t, "doubler", a.Name())
}

func TestFuncAgent_ErrorsPropagate(t *testing.T) {
	boom := errors.New("backend unavailable")
	a := NewFuncAgent("broken", func(context.Context, core.Request) (map[string]any, error) {
		return nil, boom
	})

	_, err := a.Execute(context.Background(), core.NewRequest("step", nil))
	assert.ErrorIs(t, err, boom)

	empty := NewFuncAgent("empty", nil)
	_, err = empty.Execute(context.Background(), core.NewRequest("step", nil))
	assert.ErrorContains(t, err, "no execute function")
}

func TestFuncAgent_SchemaValidation(t *testing.T) {
	type input struct {
		Document string `json:"document"`
		Limit    *int   `json:"limit"`
	}

	a := NewFuncAgent("extract",
		func(_ context.Context, req core.Request) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
		WithSchema(util.SchemaFor(input{})),
	)

	resp, err := a.Execute(context.Background(), core.NewRequest("step", map[string]any{"document": "text"}))
	require.NoError(t, err)
	assert.True(t, resp.Success)

	// Missing required field fails the response, not the transport.
	resp, err = a.Execute(context.Background(), core.NewRequest("step", map[string]any{"limit": 3}))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "document")
}

func TestLLMAgent_Execute(t *testing.T) {
	m := model.NewMockModel("mock-1", "mock")
	m.AddResponse("Summarize: quarterly report", "revenue up")

	a := NewLLMAgent("summarizer", m, "Summarize: {{.document}}", func(o *LLMOptions) {
		o.System = "You are terse."
		o.OutputField = "summary"
	})
	require.NoError(t, a.Initialize(context.Background()))

	resp, err := a.Execute(context.Background(), core.NewRequest("summarize", map[string]any{
		"document": "quarterly report",
	}))
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "revenue up", resp.Output["summary"])
	assert.Equal(t, "mock-1", resp.Output["model"])
	assert.Equal(t, "stop", resp.Output["finish_reason"])
	assert.Contains(t, resp.Output, "total_tokens")

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "You are terse.", calls[0].System)
}

func TestLLMAgent_InitializeValidates(t *testing.T) {
	a := NewLLMAgent("nomodel", nil, "prompt")
	assert.ErrorContains(t, a.Initialize(context.Background()), "no model")

	a = NewLLMAgent("notemplate", model.NewMockModel("m", "mock"), "")
	assert.ErrorContains(t, a.Initialize(context.Background()), "empty prompt template")
}

func TestLLMAgent_TemplateAndModelErrors(t *testing.T) {
	m := model.NewMockModel("m", "mock")
	a := NewLLMAgent("bad", m, "{{.missing}}")

	_, err := a.Execute(context.Background(), core.NewRequest("step", map[string]any{}))
	assert.ErrorContains(t, err, "render prompt")

	m.FailWith(errors.New("rate limited"))
	a = NewLLMAgent("limited", m, "{{.q}}")
	_, err = a.Execute(context.Background(), core.NewRequest("step", map[string]any{"q": "hi"}))
	assert.ErrorContains(t, err, "rate limited")
}
