package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/models"
	"github.com/inkpad-app/inkpad/internal/uuid"
)

const testWindow = 50 * time.Millisecond

// settleWait is comfortably past the test debounce window.
const settleWait = 6 * testWindow

func newTestDocument(title, body string) *models.Document {
	now := time.Now().Unix()
	return &models.Document{
		ID:        models.UUID(uuid.New()),
		Title:     title,
		Body:      body,
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func setupCoalescer(t *testing.T) (*Coalescer, *mockBackend) {
	t.Helper()
	backend := newMockBackend()
	return NewCoalescer(backend, testWindow, nil), backend
}

func TestCoalescerEnqueueWritesAfterWindow(t *testing.T) {
	c, backend := setupCoalescer(t)
	doc := newTestDocument("first", "hello")

	require.NoError(t, c.Enqueue(doc))
	assert.True(t, c.Pending(doc.ID.String()))
	assert.Equal(t, 0, backend.writeCount(), "write must not happen before the window elapses")

	time.Sleep(settleWait)

	assert.Equal(t, 1, backend.writeCount())
	assert.False(t, c.Pending(doc.ID.String()))

	got, err := backend.ReadDocument(context.Background(), doc.ID.String())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Body)
}

func TestCoalescerBurstCollapsesToOneWrite(t *testing.T) {
	c, backend := setupCoalescer(t)
	doc := newTestDocument("draft", "rev 0")

	for i := 0; i < 10; i++ {
		doc.Body = "rev " + string(rune('0'+i))
		require.NoError(t, c.Enqueue(doc))
	}

	time.Sleep(settleWait)

	assert.Equal(t, 1, backend.writeCount(), "a burst for one id must collapse to one physical write")

	got, err := backend.ReadDocument(context.Background(), doc.ID.String())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rev 9", got.Body, "the latest payload wins")
}

func TestCoalescerSecondEnqueueSupersedesFirst(t *testing.T) {
	c, backend := setupCoalescer(t)
	doc := newTestDocument("note", "Draft A")

	require.NoError(t, c.Enqueue(doc))

	// Re-enqueue mid-window: the first timer must be cancelled and only
	// the second payload may ever reach the backend.
	time.Sleep(testWindow / 2)
	doc.Body = "Draft B"
	require.NoError(t, c.Enqueue(doc))

	time.Sleep(settleWait)

	assert.Equal(t, 1, backend.writeCount())
	got, err := backend.ReadDocument(context.Background(), doc.ID.String())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Draft B", got.Body, "Draft A must never be observable")
}

func TestCoalescerDistinctIDsWriteIndependently(t *testing.T) {
	c, backend := setupCoalescer(t)
	a := newTestDocument("a", "body a")
	b := newTestDocument("b", "body b")

	require.NoError(t, c.Enqueue(a))
	require.NoError(t, c.Enqueue(b))

	time.Sleep(settleWait)

	assert.Equal(t, 2, backend.writeCount())
	for _, doc := range []*models.Document{a, b} {
		got, err := backend.ReadDocument(context.Background(), doc.ID.String())
		require.NoError(t, err)
		require.NotNil(t, got, "document %s must have been written", doc.ID)
	}
}

func TestCoalescerRejectsDocumentWithoutID(t *testing.T) {
	c, backend := setupCoalescer(t)
	doc := newTestDocument("no id", "body")
	doc.ID = ""

	err := c.Enqueue(doc)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidEntity))

	// The rejection is synchronous and queues nothing.
	time.Sleep(settleWait)
	assert.Equal(t, 0, backend.writeCount())
	assert.Empty(t, c.PendingIDs())
}

func TestCoalescerWriteNowBypassesWindow(t *testing.T) {
	c, backend := setupCoalescer(t)
	doc := newTestDocument("urgent", "body")

	require.NoError(t, c.Enqueue(doc))
	require.NoError(t, c.WriteNow(context.Background(), doc))

	assert.Equal(t, 1, backend.writeCount())
	assert.False(t, c.Pending(doc.ID.String()), "WriteNow must claim the pending entry")

	// The cancelled timer must not produce a second write later.
	time.Sleep(settleWait)
	assert.Equal(t, 1, backend.writeCount())
}

func TestCoalescerFlushAllSettlesEverything(t *testing.T) {
	c, backend := setupCoalescer(t)

	ids := make(map[string]bool)
	for i := 0; i < 5; i++ {
		doc := newTestDocument("doc", "body")
		require.NoError(t, c.Enqueue(doc))
		ids[doc.ID.String()] = true
	}

	results := c.FlushAll(context.Background())

	require.Len(t, results, 5)
	for _, res := range results {
		assert.NoError(t, res.Err)
		assert.True(t, ids[res.ID], "unexpected id %s in settlement report", res.ID)
	}
	assert.Equal(t, 5, backend.writeCount())
	assert.Empty(t, c.PendingIDs())

	// Quiescent after the flush: the cancelled timers stay dead.
	time.Sleep(settleWait)
	assert.Equal(t, 5, backend.writeCount())
}

func TestCoalescerFlushAllOnEmptyQueue(t *testing.T) {
	c, backend := setupCoalescer(t)
	assert.Empty(t, c.FlushAll(context.Background()))
	assert.Equal(t, 0, backend.writeCount())
}

func TestCoalescerFailedWriteIsRetained(t *testing.T) {
	c, backend := setupCoalescer(t)
	backend.writeErr = apperrors.New(apperrors.ErrQuotaExceeded, "store is full")

	doc := newTestDocument("big", "body")
	require.NoError(t, c.Enqueue(doc))
	time.Sleep(settleWait)

	// The entry left the pending map but the failure did not disappear.
	assert.False(t, c.Pending(doc.ID.String()))
	failed := c.FailedWrites()
	require.Contains(t, failed, doc.ID.String())
	assert.True(t, apperrors.Is(failed[doc.ID.String()], apperrors.ErrQuotaExceeded))

	// The settlement report carries the failure without a new attempt.
	attempts := backend.writeCount()
	results := c.FlushAll(context.Background())
	require.Len(t, results, 1)
	assert.True(t, apperrors.Is(results[0].Err, apperrors.ErrQuotaExceeded))
	assert.Equal(t, attempts, backend.writeCount())
}

func TestCoalescerFailedWriteRetriesViaWriteNow(t *testing.T) {
	c, backend := setupCoalescer(t)
	backend.writeErr = errors.New("disk detached")

	doc := newTestDocument("flaky", "body")
	require.NoError(t, c.Enqueue(doc))
	time.Sleep(settleWait)
	require.Contains(t, c.FailedWrites(), doc.ID.String())

	backend.mu.Lock()
	backend.writeErr = nil
	backend.mu.Unlock()

	require.NoError(t, c.WriteNow(context.Background(), doc))
	assert.Empty(t, c.FailedWrites(), "a successful retry clears the retained failure")
}

func TestCoalescerVerificationFailure(t *testing.T) {
	c, backend := setupCoalescer(t)
	backend.dropWrites = true

	doc := newTestDocument("ghost", "body")
	err := c.WriteNow(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrVerificationFailed),
		"a write that cannot be read back must surface as a verification failure")
}

func TestCoalescerOnWriteCallback(t *testing.T) {
	backend := newMockBackend()
	var written []*models.Document
	c := NewCoalescer(backend, testWindow, func(doc *models.Document) {
		written = append(written, doc)
	})

	doc := newTestDocument("cb", "body")
	require.NoError(t, c.WriteNow(context.Background(), doc))
	require.Len(t, written, 1)
	assert.Equal(t, doc.ID, written[0].ID)

	// Failed writes never reach the callback.
	backend.writeErr = errors.New("boom")
	require.Error(t, c.WriteNow(context.Background(), doc))
	assert.Len(t, written, 1)
}

func TestCoalescerDiscardDropsPendingAndFailed(t *testing.T) {
	c, backend := setupCoalescer(t)
	doc := newTestDocument("gone", "body")

	require.NoError(t, c.Enqueue(doc))
	c.Discard(doc.ID.String())

	time.Sleep(settleWait)
	assert.Equal(t, 0, backend.writeCount(), "a discarded entry must never be written")

	backend.writeErr = errors.New("boom")
	require.Error(t, c.WriteNow(context.Background(), doc))
	c.Discard(doc.ID.String())
	assert.Empty(t, c.FailedWrites())
}
