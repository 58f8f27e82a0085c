package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpad-app/inkpad/internal/storage"
)

// fakeSaver scripts the store's flush behavior.
type fakeSaver struct {
	pending    []string
	results    []storage.WriteResult
	flushCalls int
}

func (s *fakeSaver) FlushAll(ctx context.Context) []storage.WriteResult {
	s.flushCalls++
	s.pending = nil
	return s.results
}

func (s *fakeSaver) HasUnsaved(id string) bool {
	for _, p := range s.pending {
		if p == id {
			return true
		}
	}
	return false
}

func (s *fakeSaver) UnsavedIDs() []string { return s.pending }

func TestGuardReportsUnsavedWork(t *testing.T) {
	saver := &fakeSaver{pending: []string{"doc-1", "doc-2"}}
	g := NewGuard(saver, 0)

	assert.True(t, g.HasUnsaved("doc-1"))
	assert.False(t, g.HasUnsaved("doc-3"))
	assert.Equal(t, []string{"doc-1", "doc-2"}, g.UnsavedIDs())
}

func TestGuardSettleSucceeds(t *testing.T) {
	saver := &fakeSaver{
		pending: []string{"doc-1"},
		results: []storage.WriteResult{{ID: "doc-1"}},
	}
	g := NewGuard(saver, 0)

	require.NoError(t, g.Settle(context.Background()))
	assert.Equal(t, 1, saver.flushCalls)
	assert.Empty(t, g.UnsavedIDs())
}

func TestGuardSettleReportsFailures(t *testing.T) {
	saver := &fakeSaver{
		results: []storage.WriteResult{
			{ID: "doc-1"},
			{ID: "doc-2", Err: errors.New("disk full")},
		},
	}
	g := NewGuard(saver, 0)

	err := g.Settle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc-2")
	assert.NotContains(t, err.Error(), "doc-1,")
}

func TestGuardWaitForShutdownOnContextCancel(t *testing.T) {
	saver := &fakeSaver{results: []storage.WriteResult{{ID: "doc-1"}}}
	g := NewGuard(saver, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.WaitForShutdown(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Equal(t, 1, saver.flushCalls, "cancellation still settles pending writes")
	case <-time.After(2 * time.Second):
		t.Fatal("guard did not react to context cancellation")
	}
}
