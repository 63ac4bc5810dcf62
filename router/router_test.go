package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowmesh/model"
)


func TestRouter_PicksSpecialistByPriority(t *testing.T) {
	r := New()
	low := model.NewMockModel("low", "mock")
	high := model.NewMockModel("high", "mock")
	r.Register(low, 1, TaskReasoning)
	r.Register(high, 10, TaskReasoning)

	m, err := r.Pick(TaskReasoning)
	require.NoError(t, err)
	assert.Equal(t, "high", m.Info().Name)

	assert.Equal(t, []string{"high", "low"}, r.Models())
}

func TestRouter_FallsBackToGeneral(t *testing.T) {
	r := New()
	r.Register(model.NewMockModel("writer", "mock"), 5, TaskCreative)
	r.Register(model.NewMockModel("generalist", "mock"), 1, TaskGeneral)

	m, err := r.Pick(TaskClassification)
	require.NoError(t, err)
	assert.Equal(t, "generalist", m.Info().Name)
}

func TestRouter_NoModelForTask(t *testing.T) {
	r := New()
	r.Register(model.NewMockModel("writer", "mock"), 5, TaskCreative)

	_, err := r.Pick(TaskReasoning)
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestRouter_UnhealthyModelsSkippedUntilCooldown(t *testing.T) {
	r := New(func(o *Options) { o.Cooldown = time.Minute })
	now := time.Now()
	r.now = func() time.Time { return now }

	r.Register(model.NewMockModel("primary", "mock"), 10, TaskGeneral)
	r.Register(model.NewMockModel("backup", "mock"), 1, TaskGeneral)

	r.MarkUnhealthy("primary")
	assert.False(t, r.Healthy("primary"))

	m, err := r.Pick(TaskGeneral)
	require.NoError(t, err)
	assert.Equal(t, "backup", m.Info().Name)

	// Cooldown elapses and the primary is probed again.
	now = now.Add(2 * time.Minute)
	assert.True(t, r.Healthy("primary"))
	m, err = r.Pick(TaskGeneral)
	require.NoError(t, err)
	assert.Equal(t, "primary", m.Info().Name)

	r.MarkUnhealthy("primary")
	r.MarkHealthy("primary")
	assert.True(t, r.Healthy("primary"))
}

func TestRouter_GenerateFailsOverAndMarksUnhealthy(t *testing.T) {
	r := New()
	broken := model.NewMockModel("broken", "mock")
	broken.FailWith(errors.New("api down"))
	backup := model.NewMockModel("backup", "mock")
	backup.AddResponse("classify me", "label-a")

	r.Register(broken, 10, TaskClassification)
	r.Register(backup, 1, TaskClassification)

	c, err := r.Generate(context.Background(), TaskClassification, model.Prompt{Text: "classify me"})
	require.NoError(t, err)
	assert.Equal(t, "label-a", c.Text)
	assert.False(t, r.Healthy("broken"))
}

func TestRouter_GenerateReturnsLastErrorWhenAllFail(t *testing.T) {
	r := New()
	broken := model.NewMockModel("broken", "mock")
	broken.FailWith(errors.New("api down"))
	r.Register(broken, 1, TaskGeneral)

	_, err := r.Generate(context.Background(), TaskGeneral, model.Prompt{Text: "x"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "api down")
	assert.ErrorContains(t, err, "broken")
}

func TestRouter_CacheServesRepeatedPrompts(t *testing.T) {
	r := New(func(o *Options) {
		o.CacheSize = 8
		o.CacheTTL = time.Minute
	})
	now := time.Now()
	r.now = func() time.Time { return now }

	m := model.NewMockModel("m", "mock")
	m.AddResponse("question", "answer")
	r.Register(m, 1, TaskGeneral)

	for i := 0; i < 3; i++ {
		c, err := r.Generate(context.Background(), TaskGeneral, model.Prompt{Text: "question"})
		require.NoError(t, err)
		assert.Equal(t, "answer", c.Text)
	}
	assert.Len(t, m.Calls(), 1)

	// Different task type is a cache miss.
	_, err := r.Generate(context.Background(), TaskSummarization, model.Prompt{Text: "question"})
	require.NoError(t, err)
	assert.Len(t, m.Calls(), 2)

	// TTL expiry forces a fresh call.
	now = now.Add(2 * time.Minute)
	_, err = r.Generate(context.Background(), TaskGeneral, model.Prompt{Text: "question"})
	require.NoError(t, err)
	assert.Len(t, m.Calls(), 3)
}

func TestRouter_ForTaskAdaptsToModelInterface(t *testing.T) {
	r := New()
	m := model.NewMockModel("m", "mock")
	m.AddResponse("sum this", "short")
	r.Register(m, 1, TaskSummarization)

	var bound model.Model = r.ForTask(TaskSummarization)
	c, err := bound.Generate(context.Background(), model.Prompt{Text: "sum this"})
	require.NoError(t, err)
	assert.Equal(t, "short", c.Text)
	assert.Equal(t, "router", bound.Info().Provider)
}
