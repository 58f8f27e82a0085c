package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/kv"
	"github.com/inkpad-app/inkpad/internal/logging"
	"github.com/inkpad-app/inkpad/internal/models"
)

// LocalBackend stores each entity kind as one serialized blob in the
// key-value store. Every write re-serializes the entire collection for
// that kind (read current blob, splice the changed entity by id,
// re-serialize), which makes document writes O(n) in the number of
// documents.
//
// This is a deliberate limitation, not an oversight: the whole-blob
// granularity is what gives this backend its atomicity story (a write
// either replaces the full kind or leaves it untouched), and downstream
// correctness arguments depend on it. Do not change the persistence
// granularity here.
type LocalBackend struct {
	store kv.Store
	log   zerolog.Logger
}

// NewLocalBackend creates the backend over the given key-value store.
func NewLocalBackend(store kv.Store) *LocalBackend {
	return &LocalBackend{
		store: store,
		log:   logging.With("storage.local"),
	}
}

// Name implements Backend.
func (b *LocalBackend) Name() string {
	return "local"
}

// readBlob loads and parses one kind's blob into out. A corrupted blob is
// recovered locally: the key is cleared and out is left empty, favoring
// availability over data-loss visibility. Callers always get a usable
// empty collection instead of an error.
//
// Decoding goes through a fresh value that is assigned only on success:
// json.Unmarshal partially fills its target before reporting an error,
// and a half-decoded collection must never leak out as recovered data.
func (b *LocalBackend) readBlob(kind Kind, out interface{}) error {
	data, err := b.store.GetItem(kind.LegacyKey())
	if err != nil {
		return fmt.Errorf("failed to read %s blob: %w", kind, err)
	}
	if len(data) == 0 {
		return nil
	}

	fresh := reflect.New(reflect.TypeOf(out).Elem())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		b.log.Warn().Str("kind", string(kind)).Err(err).
			Msg("corrupted blob cleared, returning empty collection")
		if rmErr := b.store.RemoveItem(kind.LegacyKey()); rmErr != nil {
			return fmt.Errorf("failed to clear corrupted %s blob: %w", kind, rmErr)
		}
		return nil
	}
	reflect.ValueOf(out).Elem().Set(fresh.Elem())
	return nil
}

// writeBlob serializes and stores one kind's blob, translating the
// store's quota failure into the distinct error kind callers test for.
func (b *LocalBackend) writeBlob(kind Kind, in interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to serialize %s blob: %w", kind, err)
	}
	if err := b.store.SetItem(kind.LegacyKey(), data); err != nil {
		if errors.Is(err, kv.ErrQuotaExceeded) {
			return apperrors.Wrap(apperrors.ErrQuotaExceeded,
				fmt.Sprintf("key-value store quota exceeded writing %s", kind), err)
		}
		return fmt.Errorf("failed to store %s blob: %w", kind, err)
	}
	return nil
}

// ReadDocuments implements Backend.
func (b *LocalBackend) ReadDocuments(ctx context.Context) ([]*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs []*models.Document
	if err := b.readBlob(KindDocuments, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ReadDocument implements Backend. Returns (nil, nil) when absent.
func (b *LocalBackend) ReadDocument(ctx context.Context, id string) (*models.Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	docs, err := b.ReadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.ID.String() == id {
			return doc, nil
		}
	}
	return nil, nil
}

// WriteDocument implements Backend: splice the document into the full
// blob by id and rewrite the whole kind.
func (b *LocalBackend) WriteDocument(ctx context.Context, doc *models.Document) error {
	if err := validateDocumentID(doc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	docs, err := b.ReadDocuments(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range docs {
		if existing.ID == doc.ID {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, doc)
	}
	return b.writeBlob(KindDocuments, docs)
}

// DeleteDocument implements Backend: physical removal from the blob.
// Soft-delete never comes through here; this is the permanent path.
func (b *LocalBackend) DeleteDocument(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	docs, err := b.ReadDocuments(ctx)
	if err != nil {
		return err
	}

	kept := docs[:0]
	for _, doc := range docs {
		if doc.ID.String() != id {
			kept = append(kept, doc)
		}
	}
	if len(kept) == len(docs) {
		return nil
	}
	return b.writeBlob(KindDocuments, kept)
}

// ReadCollections implements Backend.
func (b *LocalBackend) ReadCollections(ctx context.Context) ([]*models.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var collections []*models.Collection
	if err := b.readBlob(KindCollections, &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

// WriteCollections implements Backend.
func (b *LocalBackend) WriteCollections(ctx context.Context, collections []*models.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, c := range collections {
		if c == nil || c.ID == "" {
			return apperrors.New(apperrors.ErrInvalidEntity, "collection has no id")
		}
	}
	return b.writeBlob(KindCollections, collections)
}

// DeleteCollection implements Backend.
func (b *LocalBackend) DeleteCollection(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	collections, err := b.ReadCollections(ctx)
	if err != nil {
		return err
	}

	kept := collections[:0]
	for _, c := range collections {
		if c.ID.String() != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(collections) {
		return nil
	}
	return b.writeBlob(KindCollections, kept)
}

// ReadPreferences implements Backend.
func (b *LocalBackend) ReadPreferences(ctx context.Context) (models.Preferences, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefs := models.Preferences{}
	if err := b.readBlob(KindPreferences, &prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// WritePreferences implements Backend.
func (b *LocalBackend) WritePreferences(ctx context.Context, prefs models.Preferences) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.writeBlob(KindPreferences, prefs)
}

// ReadLabelColors implements Backend.
func (b *LocalBackend) ReadLabelColors(ctx context.Context) (models.LabelColorMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	colors := models.LabelColorMap{}
	if err := b.readBlob(KindLabelColors, &colors); err != nil {
		return nil, err
	}
	return colors, nil
}

// WriteLabelColors implements Backend.
func (b *LocalBackend) WriteLabelColors(ctx context.Context, colors models.LabelColorMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.writeBlob(KindLabelColors, colors)
}
