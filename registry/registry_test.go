package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowmesh/core"
)

// fakeAgent counts lifecycle calls and optionally fails them.
type fakeAgent struct {
	initCalls    atomic.Int32
	cleanupCalls atomic.Int32
	initErr      error
	cleanupErr   error
}

func (f *fakeAgent) Initialize(context.Context) error {
	f.initCalls.Add(1)
	return f.initErr
}

func (f *fakeAgent) Execute(_ context.Context, req core.Request) (core.Response, error) {
	return core.NewResponse(req, map[string]any{"ok": true}), nil
}

func (f *fakeAgent) Cleanup(context.Context) error {
	f.cleanupCalls.Add(1)
	return f.cleanupErr
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := New()

	_, _, err := r.Resolve(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRegistry_SingletonInitializedOnce(t *testing.T) {
	r := New()
	agent := &fakeAgent{}
	r.RegisterAgent("worker", agent)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolved, release, err := r.Resolve(context.Background(), "worker")
			assert.NoError(t, err)
			assert.Same(t, agent, resolved)
			assert.NoError(t, release(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), agent.initCalls.Load())
	// Singleton release is a no-op; cleanup waits for Shutdown.
	assert.Equal(t, int32(0), agent.cleanupCalls.Load())
}

func TestRegistry_NonSingletonLifecycle(t *testing.T) {
	r := New()
	var created []*fakeAgent
	var mu sync.Mutex
	r.Register("scratch", func() core.Agent {
		a := &fakeAgent{}
		mu.Lock()
		created = append(created, a)
		mu.Unlock()
		return a
	}, false)

	for i := 0; i < 3; i++ {
		agent, release, err := r.Resolve(context.Background(), "scratch")
		require.NoError(t, err)
		require.NotNil(t, agent)
		require.NoError(t, release(context.Background()))
	}

	require.Len(t, created, 3)
	for _, a := range created {
		assert.Equal(t, int32(1), a.initCalls.Load())
		assert.Equal(t, int32(1), a.cleanupCalls.Load())
	}
}

func TestRegistry_InitializeFailureNotCached(t *testing.T) {
	r := New()
	broken := &fakeAgent{initErr: errors.New("boom")}
	r.RegisterAgent("broken", broken)

	_, _, err := r.Resolve(context.Background(), "broken")
	require.Error(t, err)

	// The failed instance is not cached; a second resolve retries Initialize.
	_, _, err = r.Resolve(context.Background(), "broken")
	require.Error(t, err)
	assert.Equal(t, int32(2), broken.initCalls.Load())
}

func TestRegistry_ReplaceLastWriteWins(t *testing.T) {
	r := New()
	first := &fakeAgent{}
	second := &fakeAgent{}
	r.RegisterAgent("svc", first)

	resolved, _, err := r.Resolve(context.Background(), "svc")
	require.NoError(t, err)
	assert.Same(t, first, resolved)

	r.RegisterAgent("svc", second)

	resolved, _, err = r.Resolve(context.Background(), "svc")
	require.NoError(t, err)
	assert.Same(t, second, resolved)
}

func TestRegistry_ShutdownCollectsFailures(t *testing.T) {
	r := New()
	good := &fakeAgent{}
	bad1 := &fakeAgent{cleanupErr: errors.New("cleanup-1")}
	bad2 := &fakeAgent{cleanupErr: errors.New("cleanup-2")}
	r.RegisterAgent("good", good)
	r.RegisterAgent("bad1", bad1)
	r.RegisterAgent("bad2", bad2)

	for _, name := range []string{"good", "bad1", "bad2"} {
		_, _, err := r.Resolve(context.Background(), name)
		require.NoError(t, err)
	}

	err := r.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "cleanup-1")
	assert.ErrorContains(t, err, "cleanup-2")

	// Every singleton saw Cleanup despite the failures.
	assert.Equal(t, int32(1), good.cleanupCalls.Load())
	assert.Equal(t, int32(1), bad1.cleanupCalls.Load())
	assert.Equal(t, int32(1), bad2.cleanupCalls.Load())

	assert.Empty(t, r.Names())
}

func TestRegistry_Deregister(t *testing.T) {
	r := New()
	agent := &fakeAgent{}
	r.RegisterAgent("tmp", agent)

	_, _, err := r.Resolve(context.Background(), "tmp")
	require.NoError(t, err)

	require.NoError(t, r.Deregister(context.Background(), "tmp"))
	assert.Equal(t, int32(1), agent.cleanupCalls.Load())

	_, _, err = r.Resolve(context.Background(), "tmp")
	assert.ErrorIs(t, err, ErrNotRegistered)
}
