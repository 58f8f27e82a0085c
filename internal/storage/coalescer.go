package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/logging"
	"github.com/inkpad-app/inkpad/internal/models"
)

// DefaultDebounceWindow is the delay after the last mutation to a given
// document before a physical write is attempted.
const DefaultDebounceWindow = 100 * time.Millisecond

// WriteResult is one entry of a flush settlement report.
type WriteResult struct {
	ID  string
	Err error
}

// pendingWrite is the per-document debounce slot: the armed timer and
// the latest enqueued payload.
type pendingWrite struct {
	timer *time.Timer
	doc   *models.Document
}

// Coalescer turns a burst of mutations to the same document into one
// physical write of the latest state. Per-document writes are totally
// ordered by timer cancellation on re-enqueue; across distinct ids no
// ordering is guaranteed.
//
// The pending map is the only shared mutable state; every read-modify-
// write of it happens under the mutex and never spans a backend call.
type Coalescer struct {
	backend Backend
	window  time.Duration
	log     zerolog.Logger

	// onWrite is invoked after every confirmed physical write with the
	// payload that was written. Used by the store to refresh its
	// in-memory snapshot and notify the shell.
	onWrite func(*models.Document)

	mu      sync.Mutex
	pending map[string]*pendingWrite

	// failed retains the last durability error per id so a failed
	// debounced write never silently disappears: it stays retryable via
	// WriteNow and shows up in FlushAll's settlement report.
	failed map[string]error
}

// NewCoalescer creates a coalescer in front of the given backend.
// A window of zero selects DefaultDebounceWindow. onWrite may be nil.
func NewCoalescer(backend Backend, window time.Duration, onWrite func(*models.Document)) *Coalescer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Coalescer{
		backend: backend,
		window:  window,
		onWrite: onWrite,
		log:     logging.With("storage.coalescer"),
		pending: make(map[string]*pendingWrite),
		failed:  make(map[string]error),
	}
}

// Enqueue absorbs a mutation: any pending timer for the same id is
// cancelled, the payload is replaced with a clone of doc, and a fresh
// debounce window starts. Returns synchronously; the physical write
// happens when the window elapses.
//
// A document without a usable id is rejected before anything is queued.
func (c *Coalescer) Enqueue(doc *models.Document) error {
	if err := validateDocumentID(doc); err != nil {
		return err
	}
	id := doc.ID.String()
	payload := doc.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.pending[id]; ok {
		prev.timer.Stop()
	}
	c.pending[id] = &pendingWrite{
		doc:   payload,
		timer: time.AfterFunc(c.window, func() { c.fire(id) }),
	}
	return nil
}

// fire runs when a debounce timer elapses: remove the pending entry,
// then perform the write+verify sequence. If the entry is already gone
// (a flush or WriteNow claimed it) there is nothing to do.
func (c *Coalescer) fire(id string) {
	c.mu.Lock()
	pw, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, id)
	c.mu.Unlock()

	if err := c.perform(context.Background(), id, pw.doc); err != nil {
		c.log.Error().Str("id", id).Err(err).Msg("debounced write failed")
	}
}

// WriteNow bypasses debouncing entirely: any pending timer for the id is
// cancelled and the write happens immediately. Used for operations that
// must be immediately externally visible, and to retry a failed
// debounced write.
func (c *Coalescer) WriteNow(ctx context.Context, doc *models.Document) error {
	if err := validateDocumentID(doc); err != nil {
		return err
	}
	id := doc.ID.String()

	c.mu.Lock()
	if prev, ok := c.pending[id]; ok {
		prev.timer.Stop()
		delete(c.pending, id)
	}
	c.mu.Unlock()

	return c.perform(ctx, id, doc.Clone())
}

// FlushAll cancels every pending timer and performs each outstanding
// write immediately, in no particular order across ids. It returns only
// after all writes have settled; failures are collected, never
// short-circuited. Earlier debounced failures whose documents were not
// re-enqueued are included in the report without a new write attempt.
//
// After FlushAll returns, no further physical writes occur without a new
// Enqueue or WriteNow call.
func (c *Coalescer) FlushAll(ctx context.Context) []WriteResult {
	c.mu.Lock()
	drained := c.pending
	c.pending = make(map[string]*pendingWrite)
	for _, pw := range drained {
		pw.timer.Stop()
	}
	carried := make(map[string]error, len(c.failed))
	for id, err := range c.failed {
		if _, queued := drained[id]; !queued {
			carried[id] = err
		}
	}
	c.mu.Unlock()

	results := make([]WriteResult, 0, len(drained)+len(carried))
	var (
		wg      sync.WaitGroup
		resmu   sync.Mutex
		collect = func(id string, err error) {
			resmu.Lock()
			results = append(results, WriteResult{ID: id, Err: err})
			resmu.Unlock()
		}
	)

	for id, pw := range drained {
		wg.Add(1)
		go func(id string, doc *models.Document) {
			defer wg.Done()
			collect(id, c.perform(ctx, id, doc))
		}(id, pw.doc)
	}
	wg.Wait()

	for id, err := range carried {
		collect(id, err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// perform is the single physical write path: touch, write, verify,
// record the outcome.
func (c *Coalescer) perform(ctx context.Context, id string, doc *models.Document) error {
	doc.Touch()
	err := c.writeVerify(ctx, id, doc)

	c.mu.Lock()
	if err != nil {
		c.failed[id] = err
	} else {
		delete(c.failed, id)
	}
	c.mu.Unlock()

	if err == nil && c.onWrite != nil {
		c.onWrite(doc)
	}
	return err
}

// writeVerify performs the backend write followed by a verification
// read-back of the same id. A write that appears to succeed but cannot
// be read back is a durability failure, never silently ignored.
//
// If a newer write for the same id lands while this one is in flight,
// the read-back can observe the newer payload and report a mismatch.
// That race is accepted: the newer write carries the state that must
// win anyway.
func (c *Coalescer) writeVerify(ctx context.Context, id string, doc *models.Document) error {
	if err := c.backend.WriteDocument(ctx, doc); err != nil {
		return err
	}

	got, err := c.backend.ReadDocument(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrVerificationFailed,
			"verification read-back failed for "+id, err)
	}
	if got == nil {
		return apperrors.Newf(apperrors.ErrVerificationFailed,
			"document %s absent after write", id)
	}
	if !doc.Equal(got) {
		return apperrors.Newf(apperrors.ErrVerificationFailed,
			"document %s read back with mismatched state", id)
	}
	return nil
}

// Pending reports whether a debounced write is outstanding for id.
// The LifecycleGuard uses this to decide whether to warn before
// navigation or close.
func (c *Coalescer) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

// PendingIDs returns the ids with outstanding debounced writes.
func (c *Coalescer) PendingIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FailedWrites returns a copy of the retained durability failures.
func (c *Coalescer) FailedWrites() map[string]error {
	c.mu.Lock()
	defer c.mu.Unlock()
	failed := make(map[string]error, len(c.failed))
	for id, err := range c.failed {
		failed[id] = err
	}
	return failed
}

// Discard drops any pending or failed state for id without writing.
// Used by permanent delete, which bypasses the debounce queue entirely.
func (c *Coalescer) Discard(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pw, ok := c.pending[id]; ok {
		pw.timer.Stop()
		delete(c.pending, id)
	}
	delete(c.failed, id)
}
