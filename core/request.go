package core

import (
	"github.com/google/uuid"
)

// Request is the structured payload handed to an Agent's Execute method.
//
// Fields holds the named inputs resolved by the orchestrator from step
// bindings (literals merged with prior step outputs). After construction a
// Request must be treated as read-only; constructors copy the supplied map so
// callers cannot mutate a request that is already in flight.
type Request struct {
	// ID uniquely identifies this dispatch for correlation in logs & hooks.
	ID string `json:"id"`

	// Step is the logical name of the workflow step being executed.
	Step string `json:"step"`

	// Fields carries the named input values. Treat as immutable.
	Fields map[string]any `json:"fields"`
}

// NewRequest constructs a Request with a generated correlation ID. The fields
// map is copied defensively.
func NewRequest(step string, fields map[string]any) Request {
	return Request{
		ID:     NewID(),
		Step:   step,
		Fields: copyFields(fields),
	}
}

// Field returns the named input value and whether it was bound.
func (r Request) Field(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// String returns the named input as a string, or "" when absent or not a
// string. Convenience for the common text-shaped agent inputs.
func (r Request) String(name string) string {
	if v, ok := r.Fields[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Response is the structured payload an Agent returns from Execute.
//
// Success distinguishes domain-level failure from the transport-level error
// return: an agent that ran but could not produce a usable result reports
// Success=false with Error populated. Output is field-addressable by
// subsequent step bindings once the orchestrator writes it to the context
// store. Like Request, a Response is read-only after construction.
type Response struct {
	// RequestID echoes the Request.ID this response answers.
	RequestID string `json:"request_id"`

	// Success reports whether the agent produced a usable result.
	Success bool `json:"success"`

	// Output carries the named result values. Treat as immutable.
	Output map[string]any `json:"output,omitempty"`

	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
}

// NewResponse constructs a successful Response for the given request. The
// output map is copied defensively.
func NewResponse(req Request, output map[string]any) Response {
	return Response{
		RequestID: req.ID,
		Success:   true,
		Output:    copyFields(output),
	}
}

// NewErrorResponse constructs a failed Response carrying the error message.
func NewErrorResponse(req Request, err error) Response {
	resp := Response{RequestID: req.ID, Success: false}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// Field returns the named output value and whether it exists.
func (r Response) Field(name string) (any, bool) {
	v, ok := r.Output[name]
	return v, ok
}

// NewID generates a unique identifier for requests, runs and events.
func NewID() string { return uuid.NewString() }

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
