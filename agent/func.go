package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/flowmesh/core"
	"github.com/hupe1980/flowmesh/internal/util"
	"github.com/hupe1980/flowmesh/logging"
)

// FuncOptions configures a FuncAgent.
type FuncOptions struct {
	// Schema is an optional JSON schema validated against the resolved
	// request fields before fn runs. Derive one from a struct with
	// util.SchemaFor or pass a hand-written map.
	Schema map[string]any

	// Logger receives per-execution debug output.
	Logger logging.Logger
}

// ExecuteFunc is the work function wrapped by a FuncAgent. The returned map
// becomes the step's output fields.
type ExecuteFunc func(ctx context.Context, req core.Request) (map[string]any, error)

// FuncAgent adapts an ordinary function to the core.Agent interface.
type FuncAgent struct {
	Base
	fn     ExecuteFunc
	schema map[string]any
}

// NewFuncAgent wraps fn as an agent.
func NewFuncAgent(name string, fn ExecuteFunc, optFns ...func(o *FuncOptions)) *FuncAgent {
	opts := FuncOptions{}
	for _, f := range optFns {
		f(&opts)
	}

	a := &FuncAgent{
		Base:   NewBase(name),
		fn:     fn,
		schema: opts.Schema,
	}
	a.SetLogger(opts.Logger)
	return a
}

// WithSchema sets the request field schema.
func WithSchema(schema map[string]any) func(o *FuncOptions) {
	return func(o *FuncOptions) { o.Schema = schema }
}

// Execute implements core.Agent. Schema violations surface as failed
// responses rather than transport errors so callers can distinguish bad
// input from a broken agent.
func (a *FuncAgent) Execute(ctx context.Context, req core.Request) (core.Response, error) {
	if a.fn == nil {
		return core.Response{}, fmt.Errorf("agent %s has no execute function", a.Name())
	}

	if a.schema != nil {
		if err := util.ValidateFields(req.Fields, a.schema); err != nil {
			a.Logger().Debug("request rejected by schema", "agent", a.Name(), "step", req.Step, "error", err)
			return core.NewErrorResponse(req, err), nil
		}
	}

	output, err := a.fn(ctx, req)
	if err != nil {
		return core.Response{}, err
	}
	return core.NewResponse(req, output), nil
}
