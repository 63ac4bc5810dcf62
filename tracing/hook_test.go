package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/flowmesh/core"
)

func newRecordingHook() (*Hook, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return &Hook{
		tracer: tp.Tracer(tracerName),
		spans:  make(map[string]trace.Span),
	}, recorder
}

func TestHook_SpanPerAttempt(t *testing.T) {
	h, recorder := newRecordingHook()
	ctx := context.Background()

	ev := core.StepEvent{
		RunID:    "run-1",
		Workflow: "pipeline",
		Step:     "extract",
		Agent:    "extractor",
		Attempt:  1,
		Status:   core.StepStatusRunning,
	}
	h.BeforeStep(ctx, ev)

	ev.Status = core.StepStatusSucceeded
	ev.Duration = 30 * time.Millisecond
	h.AfterStep(ctx, ev)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "workflow.step extract", spans[0].Name())
	assert.Empty(t, h.spans)
}

func TestHook_FailedAttemptRecordsError(t *testing.T) {
	h, recorder := newRecordingHook()
	ctx := context.Background()

	ev := core.StepEvent{RunID: "run-1", Workflow: "w", Step: "s", Attempt: 1, Status: core.StepStatusRunning}
	h.BeforeStep(ctx, ev)

	ev.Status = core.StepStatusFailed
	ev.Err = errors.New("agent exploded")
	h.AfterStep(ctx, ev)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestHook_UndispatchedEventGetsSyntheticSpan(t *testing.T) {
	h, recorder := newRecordingHook()

	h.AfterStep(context.Background(), core.StepEvent{
		RunID:    "run-1",
		Workflow: "w",
		Step:     "skipped_one",
		Attempt:  0,
		Status:   core.StepStatusSkipped,
	})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "workflow.step skipped_one", spans[0].Name())
}
