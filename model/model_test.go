package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.AddResponse("summarize this", "a summary")

	c, err := m.Generate(context.Background(), Prompt{Text: "summarize this"})
	require.NoError(t, err)
	assert.Equal(t, "a summary", c.Text)
	assert.Equal(t, "test-model", c.Model)
	assert.Equal(t, "stop", c.FinishReason)
	require.NotNil(t, c.Usage)

	// Unmatched prompts echo.
	c, err = m.Generate(context.Background(), Prompt{Text: "anything else"})
	require.NoError(t, err)
	assert.Equal(t, "echo: anything else", c.Text)

	require.Len(t, m.Calls(), 2)
	assert.Equal(t, "summarize this", m.Calls()[0].Text)
}

func TestMockModel_Failures(t *testing.T) {
	m := NewMockModel("test-model", "mock")

	_, err := m.Generate(context.Background(), Prompt{})
	assert.ErrorContains(t, err, "empty prompt")

	boom := errors.New("provider down")
	m.FailWith(boom)
	_, err = m.Generate(context.Background(), Prompt{Text: "x"})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Generate(ctx, Prompt{Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockModel_Info(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	assert.Equal(t, Info{Name: "test-model", Provider: "mock"}, m.Info())
}
