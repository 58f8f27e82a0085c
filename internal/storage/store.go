package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/hostsvc"
	"github.com/inkpad-app/inkpad/internal/kv"
	"github.com/inkpad-app/inkpad/internal/logging"
	"github.com/inkpad-app/inkpad/internal/models"
	"github.com/inkpad-app/inkpad/internal/uuid"
)

// Event types emitted to the shell's notification sink. These feed the
// cross-window broadcast, which is an out-of-process concern of the
// desktop shell, not of this core.
const (
	EventDocumentSaved      = "document.saved"
	EventDocumentTrashed    = "document.trashed"
	EventDocumentRestored   = "document.restored"
	EventDocumentDeleted    = "document.deleted"
	EventFlushCompleted     = "flush.completed"
	EventMigrationCompleted = "migration.completed"
)

// Event is a notification handed to the shell.
type Event struct {
	Type string
	ID   string
}

// Options tunes a Store.
type Options struct {
	// DebounceWindow is the write coalescing window.
	// Zero selects DefaultDebounceWindow.
	DebounceWindow time.Duration

	// WriteTimeout bounds host service calls. Zero selects
	// DefaultCallTimeout.
	WriteTimeout time.Duration

	// OnEvent, when set, receives shell notifications. Called from
	// whatever goroutine completed the triggering write; the sink must
	// not call back into the store synchronously.
	OnEvent func(Event)
}

// Store is the persistence facade handed to every consumer. It is an
// explicit instance constructed once at application start and passed by
// reference; there is no process-wide singleton.
//
// Synchronous readers are served from an in-memory snapshot hydrated at
// Initialize and refreshed on every confirmed write, never from a
// backend call disguised as synchronous.
type Store struct {
	kvs  kv.Store
	svc  hostsvc.FileService
	opts Options
	log  zerolog.Logger

	backend   Backend
	coalescer *Coalescer
	migrator  *MigrationCoordinator

	// initMu serializes Initialize so concurrent callers cannot each
	// build and install a backend and coalescer.
	initMu sync.Mutex

	// kindMu serializes every coarse-kind read-modify-write. Collections,
	// preferences and label colors are rewritten as whole sets; without
	// this, two concurrent saves would each rewrite the kind from a stale
	// snapshot and durably drop the other's entity.
	kindMu sync.Mutex

	mu          sync.RWMutex
	initialized bool
	docs        map[string]*models.Document
	collections map[string]*models.Collection
	prefs       models.Preferences
	labels      models.LabelColorMap
}

// New creates an uninitialized store. svc may be nil when the host
// environment provides no file service at all.
func New(kvs kv.Store, svc hostsvc.FileService, opts Options) *Store {
	return &Store{
		kvs:         kvs,
		svc:         svc,
		opts:        opts,
		log:         logging.With("storage.store"),
		docs:        make(map[string]*models.Document),
		collections: make(map[string]*models.Collection),
		prefs:       models.Preferences{},
		labels:      models.LabelColorMap{},
	}
}

// Initialize picks the active backend, runs the one-shot migration when
// the host file service is reachable, and hydrates the in-memory
// snapshot. It must complete before any read is trusted. Calling it
// again is a no-op.
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.isInitialized() {
		return nil
	}

	local := NewLocalBackend(s.kvs)
	backend := Backend(local)

	var migrator *MigrationCoordinator
	if s.svc != nil {
		if err := s.svc.Ping(ctx); err != nil {
			// Expected host service not reachable: fall back to the
			// key-value store rather than failing outright.
			s.log.Warn().Err(err).Str("code", string(apperrors.ErrBackendUnavailable)).
				Msg("host file service unreachable, using local backend")
		} else {
			backend = NewHostFileBackend(s.svc, s.opts.WriteTimeout)
			migrator = NewMigrationCoordinator(s.kvs, s.svc)
			if err := migrator.Run(ctx); err != nil {
				return err
			}
			if migrator.Migrated() {
				s.emit(Event{Type: EventMigrationCompleted})
			}
		}
	}

	coalescer := NewCoalescer(backend, s.opts.DebounceWindow, s.onDocumentWritten)

	docs, err := backend.ReadDocuments(ctx)
	if err != nil {
		return err
	}
	collections, err := backend.ReadCollections(ctx)
	if err != nil {
		return err
	}
	prefs, err := backend.ReadPreferences(ctx)
	if err != nil {
		return err
	}
	labels, err := backend.ReadLabelColors(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.backend = backend
	s.coalescer = coalescer
	s.migrator = migrator
	for _, doc := range docs {
		s.docs[doc.ID.String()] = doc
	}
	for _, c := range collections {
		s.collections[c.ID.String()] = c
	}
	s.prefs = prefs
	s.labels = labels
	s.initialized = true
	s.mu.Unlock()

	s.log.Info().Str("backend", backend.Name()).Int("documents", len(docs)).
		Msg("storage initialized")
	return nil
}

// Close flushes every pending write and releases the key-value store.
// Flush failures are joined into the returned error; the store still
// closes.
func (s *Store) Close(ctx context.Context) error {
	var errs []error
	if s.isInitialized() {
		for _, res := range s.FlushAll(ctx) {
			if res.Err != nil {
				errs = append(errs, res.Err)
			}
		}
	}
	if s.kvs != nil {
		if err := s.kvs.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) isInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *Store) requireInit() error {
	if !s.isInitialized() {
		return apperrors.New(apperrors.ErrInternal, "store used before Initialize")
	}
	return nil
}

func (s *Store) emit(ev Event) {
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(ev)
	}
}

// onDocumentWritten refreshes the snapshot after a confirmed physical
// write and notifies the shell.
func (s *Store) onDocumentWritten(doc *models.Document) {
	s.mu.Lock()
	s.docs[doc.ID.String()] = doc.Clone()
	s.mu.Unlock()
	s.emit(Event{Type: EventDocumentSaved, ID: doc.ID.String()})
}

// BackendName reports which backend is active.
func (s *Store) BackendName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return "none"
	}
	return s.backend.Name()
}

// MigrationState reports the coordinator state, or "skipped" when no
// host file service was available.
func (s *Store) MigrationState() string {
	s.mu.RLock()
	migrator := s.migrator
	s.mu.RUnlock()
	if migrator == nil {
		return "skipped"
	}
	return migrator.State().String()
}

// ---------------------------------------------------------------------
// Document operations
// ---------------------------------------------------------------------

// CreateDocument builds a new document with a fresh id and writes it
// immediately so it is externally visible before the editor's first
// debounced save.
func (s *Store) CreateDocument(ctx context.Context, title, body string, collectionRef models.UUID) (*models.Document, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	doc := &models.Document{
		ID:            models.UUID(uuid.New()),
		Title:         title,
		Body:          body,
		CollectionRef: collectionRef,
		Status:        models.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.coalescer.WriteNow(ctx, doc); err != nil {
		return nil, err
	}
	created, _ := s.Document(doc.ID.String())
	return created, nil
}

// SaveDocument enqueues a mutation into the debounce queue. The physical
// write happens after the coalescing window; rapid saves of the same
// document collapse into one write of the latest state.
func (s *Store) SaveDocument(doc *models.Document) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	return s.coalescer.Enqueue(doc)
}

// SaveDocumentNow writes a document immediately, bypassing debouncing.
// Used for explicit save actions and for retrying a failed write.
func (s *Store) SaveDocumentNow(ctx context.Context, doc *models.Document) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	return s.coalescer.WriteNow(ctx, doc)
}

// Document returns the snapshot copy of one document.
func (s *Store) Document(id string) (*models.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

// Documents returns snapshot copies of all non-trashed documents,
// pinned first, then most recently updated.
func (s *Store) Documents() []*models.Document {
	return s.selectDocs(func(d *models.Document) bool { return !d.Trashed })
}

// TrashedDocuments returns snapshot copies of soft-deleted documents.
func (s *Store) TrashedDocuments() []*models.Document {
	return s.selectDocs(func(d *models.Document) bool { return d.Trashed })
}

func (s *Store) selectDocs(keep func(*models.Document) bool) []*models.Document {
	s.mu.RLock()
	docs := make([]*models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if keep(doc) {
			docs = append(docs, doc.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Pinned != docs[j].Pinned {
			return docs[i].Pinned
		}
		if docs[i].UpdatedAt != docs[j].UpdatedAt {
			return docs[i].UpdatedAt > docs[j].UpdatedAt
		}
		return docs[i].ID < docs[j].ID
	})
	return docs
}

// ReadDocument performs a fresh backend read, bypassing the snapshot.
func (s *Store) ReadDocument(ctx context.Context, id string) (*models.Document, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	return s.backend.ReadDocument(ctx, id)
}

// TrashDocument soft-deletes: a field flip written through the normal
// write path, never a physical deletion.
func (s *Store) TrashDocument(ctx context.Context, id string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	doc, ok := s.Document(id)
	if !ok {
		return apperrors.Newf(apperrors.ErrNotFound, "document %s not found", id)
	}
	doc.MoveToTrash()
	if err := s.coalescer.WriteNow(ctx, doc); err != nil {
		return err
	}
	s.emit(Event{Type: EventDocumentTrashed, ID: id})
	return nil
}

// RestoreDocument flips the soft-delete flag back.
func (s *Store) RestoreDocument(ctx context.Context, id string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	doc, ok := s.Document(id)
	if !ok {
		return apperrors.Newf(apperrors.ErrNotFound, "document %s not found", id)
	}
	doc.Restore()
	if err := s.coalescer.WriteNow(ctx, doc); err != nil {
		return err
	}
	s.emit(Event{Type: EventDocumentRestored, ID: id})
	return nil
}

// DeleteDocumentPermanently removes a document physically. It bypasses
// the debounce queue entirely: any pending or failed write for the id is
// discarded, then the backend delete runs.
func (s *Store) DeleteDocumentPermanently(ctx context.Context, id string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}

	s.coalescer.Discard(id)
	if err := s.backend.DeleteDocument(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()
	s.emit(Event{Type: EventDocumentDeleted, ID: id})
	return nil
}

// ---------------------------------------------------------------------
// Flush / lifecycle boundary
// ---------------------------------------------------------------------

// FlushAll writes every pending document immediately and returns the
// settlement report. After it returns, no further physical writes occur
// without a new SaveDocument or SaveDocumentNow call.
func (s *Store) FlushAll(ctx context.Context) []WriteResult {
	if err := s.requireInit(); err != nil {
		return []WriteResult{{Err: err}}
	}
	results := s.coalescer.FlushAll(ctx)
	s.emit(Event{Type: EventFlushCompleted})
	return results
}

// HasUnsaved reports whether a debounced write is outstanding for id.
func (s *Store) HasUnsaved(id string) bool {
	if !s.isInitialized() {
		return false
	}
	return s.coalescer.Pending(id)
}

// UnsavedIDs returns every id with an outstanding debounced write.
func (s *Store) UnsavedIDs() []string {
	if !s.isInitialized() {
		return nil
	}
	return s.coalescer.PendingIDs()
}

// FailedWrites returns the retained durability failures, retryable via
// SaveDocumentNow.
func (s *Store) FailedWrites() map[string]error {
	if !s.isInitialized() {
		return nil
	}
	return s.coalescer.FailedWrites()
}

// ---------------------------------------------------------------------
// Collection operations
// ---------------------------------------------------------------------

// Collection returns the snapshot copy of one collection.
func (s *Store) Collection(id string) (*models.Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[id]
	if !ok {
		return nil, false
	}
	copied := *c
	return &copied, true
}

// Collections returns snapshot copies of all collections, sorted by name.
func (s *Store) Collections() []*models.Collection {
	s.mu.RLock()
	collections := make([]*models.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		copied := *c
		collections = append(collections, &copied)
	}
	s.mu.RUnlock()

	sort.Slice(collections, func(i, j int) bool {
		if collections[i].Name != collections[j].Name {
			return collections[i].Name < collections[j].Name
		}
		return collections[i].ID < collections[j].ID
	})
	return collections
}

// SaveCollection creates or updates a collection. Collections are a
// coarse kind: the whole set is rewritten on every change.
func (s *Store) SaveCollection(ctx context.Context, c *models.Collection) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if c == nil {
		return apperrors.New(apperrors.ErrInvalidEntity, "collection is nil")
	}

	now := time.Now().Unix()
	if c.ID == "" {
		c.ID = models.UUID(uuid.New())
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	// The whole-set rewrite must not interleave with another one.
	s.kindMu.Lock()
	defer s.kindMu.Unlock()

	s.mu.RLock()
	next := make([]*models.Collection, 0, len(s.collections)+1)
	for id, existing := range s.collections {
		if id != c.ID.String() {
			next = append(next, existing)
		}
	}
	s.mu.RUnlock()
	next = append(next, c)

	if err := s.backend.WriteCollections(ctx, next); err != nil {
		return err
	}

	s.mu.Lock()
	copied := *c
	s.collections[c.ID.String()] = &copied
	s.mu.Unlock()
	return nil
}

// DeleteCollection removes a collection. Documents referencing it keep
// their CollectionRef; resolving dangling refs is the UI's concern.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	if err := s.requireInit(); err != nil {
		return err
	}

	s.kindMu.Lock()
	defer s.kindMu.Unlock()

	if err := s.backend.DeleteCollection(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.collections, id)
	s.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------
// Preferences and label colors
// ---------------------------------------------------------------------

// Preferences returns a copy of the settings bag.
func (s *Store) Preferences() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

// SetPreference writes one setting through the backend.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	if err := s.requireInit(); err != nil {
		return err
	}

	s.kindMu.Lock()
	defer s.kindMu.Unlock()

	next := s.Preferences()
	next[key] = value
	if err := s.backend.WritePreferences(ctx, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.prefs = next
	s.mu.Unlock()
	return nil
}

// LabelColors returns a copy of the label color map.
func (s *Store) LabelColors() models.LabelColorMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labels.Clone()
}

// SetLabelColor assigns a display color to a label.
func (s *Store) SetLabelColor(ctx context.Context, label, color string) error {
	if err := s.requireInit(); err != nil {
		return err
	}

	s.kindMu.Lock()
	defer s.kindMu.Unlock()

	next := s.LabelColors()
	next[label] = color
	if err := s.backend.WriteLabelColors(ctx, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.labels = next
	s.mu.Unlock()
	return nil
}

// RemoveLabelColor drops a label's color mapping.
func (s *Store) RemoveLabelColor(ctx context.Context, label string) error {
	if err := s.requireInit(); err != nil {
		return err
	}

	s.kindMu.Lock()
	defer s.kindMu.Unlock()

	next := s.LabelColors()
	delete(next, label)
	if err := s.backend.WriteLabelColors(ctx, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.labels = next
	s.mu.Unlock()
	return nil
}
