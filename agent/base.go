package agent

import (
	"context"

	"github.com/hupe1980/flowmesh/logging"
)

// Base bundles identity and logging shared by the concrete agents in this
// package. Embed it and override the lifecycle methods as needed; the
// defaults make an agent valid with Execute alone.
type Base struct {
	name   string
	logger logging.Logger
}

// NewBase constructs a Base with the given name and a no-op logger.
func NewBase(name string) Base {
	return Base{name: name, logger: logging.NoOpLogger{}}
}

// Name returns the agent's name.
func (b *Base) Name() string { return b.name }

// SetLogger replaces the agent's logger. Call before the agent is handed to
// a registry.
func (b *Base) SetLogger(logger logging.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Logger returns the agent's logger.
func (b *Base) Logger() logging.Logger { return b.logger }

// Initialize implements core.Agent with a no-op.
func (b *Base) Initialize(context.Context) error { return nil }

// Cleanup implements core.Agent with a no-op.
func (b *Base) Cleanup(context.Context) error { return nil }
