package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/flowmesh/core"
)

// Hook implements core.Hook by opening a span per step attempt. Spans start
// in BeforeStep, are closed in AfterStep and carry run, step, agent, attempt
// and outcome attributes. Safe for concurrent use.
type Hook struct {
	tracer trace.Tracer
	mu     sync.Mutex
	spans  map[string]trace.Span
}

// NewHook creates a Hook using the globally installed tracer provider.
// Call Init (or InitWithExporter) first; without a provider the spans are
// no-ops, which keeps the hook harmless in untraced deployments.
func NewHook() *Hook {
	return &Hook{
		tracer: otel.Tracer(tracerName),
		spans:  make(map[string]trace.Span),
	}
}

// BeforeStep implements core.Hook.
func (h *Hook) BeforeStep(ctx context.Context, ev core.StepEvent) {
	_, span := h.tracer.Start(ctx, "workflow.step "+ev.Step,
		trace.WithAttributes(
			attribute.String("flowmesh.run_id", ev.RunID),
			attribute.String("flowmesh.workflow", ev.Workflow),
			attribute.String("flowmesh.step", ev.Step),
			attribute.String("flowmesh.agent", ev.Agent),
			attribute.Int("flowmesh.attempt", ev.Attempt),
		),
	)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.spans[spanKey(ev)] = span
}

// AfterStep implements core.Hook. Events without a matching BeforeStep
// (undispatched steps report attempt 0) produce a short synthetic span so
// skips and aborts still show up in traces.
func (h *Hook) AfterStep(ctx context.Context, ev core.StepEvent) {
	h.mu.Lock()
	span, ok := h.spans[spanKey(ev)]
	if ok {
		delete(h.spans, spanKey(ev))
	}
	h.mu.Unlock()

	if !ok {
		_, span = h.tracer.Start(ctx, "workflow.step "+ev.Step,
			trace.WithAttributes(
				attribute.String("flowmesh.run_id", ev.RunID),
				attribute.String("flowmesh.workflow", ev.Workflow),
				attribute.String("flowmesh.step", ev.Step),
				attribute.String("flowmesh.agent", ev.Agent),
			),
		)
	}

	span.SetAttributes(
		attribute.String("flowmesh.status", ev.Status),
		attribute.Int64("flowmesh.duration_ms", ev.Duration.Milliseconds()),
	)
	if ev.Err != nil {
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, ev.Err.Error())
	} else if ev.Status == core.StepStatusSucceeded {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func spanKey(ev core.StepEvent) string {
	return fmt.Sprintf("%s\x1f%s\x1f%d", ev.RunID, ev.Step, ev.Attempt)
}
