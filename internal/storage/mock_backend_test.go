// Package storage test doubles.
package storage

import (
	"context"
	"sync"

	"github.com/inkpad-app/inkpad/internal/models"
)

// mockBackend is an in-memory Backend that counts physical document
// writes and can inject failures.
type mockBackend struct {
	mu          sync.Mutex
	docs        map[string]*models.Document
	collections map[string]*models.Collection
	prefs       models.Preferences
	labels      models.LabelColorMap

	docWrites int

	// writeErr, when set, is returned by WriteDocument.
	writeErr error

	// dropWrites accepts document writes without storing them, so the
	// verification read-back finds nothing.
	dropWrites bool
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		docs:        make(map[string]*models.Document),
		collections: make(map[string]*models.Collection),
		prefs:       models.Preferences{},
		labels:      models.LabelColorMap{},
	}
}

func (b *mockBackend) Name() string { return "mock" }

func (b *mockBackend) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.docWrites
}

func (b *mockBackend) ReadDocuments(ctx context.Context) ([]*models.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	docs := make([]*models.Document, 0, len(b.docs))
	for _, doc := range b.docs {
		docs = append(docs, doc.Clone())
	}
	return docs, nil
}

func (b *mockBackend) ReadDocument(ctx context.Context, id string) (*models.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[id]
	if !ok {
		return nil, nil
	}
	return doc.Clone(), nil
}

func (b *mockBackend) WriteDocument(ctx context.Context, doc *models.Document) error {
	if err := validateDocumentID(doc); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docWrites++
	if b.writeErr != nil {
		return b.writeErr
	}
	if !b.dropWrites {
		b.docs[doc.ID.String()] = doc.Clone()
	}
	return nil
}

func (b *mockBackend) DeleteDocument(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, id)
	return nil
}

func (b *mockBackend) ReadCollections(ctx context.Context) ([]*models.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	collections := make([]*models.Collection, 0, len(b.collections))
	for _, c := range b.collections {
		copied := *c
		collections = append(collections, &copied)
	}
	return collections, nil
}

func (b *mockBackend) WriteCollections(ctx context.Context, collections []*models.Collection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections = make(map[string]*models.Collection, len(collections))
	for _, c := range collections {
		copied := *c
		b.collections[c.ID.String()] = &copied
	}
	return nil
}

func (b *mockBackend) DeleteCollection(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.collections, id)
	return nil
}

func (b *mockBackend) ReadPreferences(ctx context.Context) (models.Preferences, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prefs.Clone(), nil
}

func (b *mockBackend) WritePreferences(ctx context.Context, prefs models.Preferences) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefs = prefs.Clone()
	return nil
}

func (b *mockBackend) ReadLabelColors(ctx context.Context) (models.LabelColorMap, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.labels.Clone(), nil
}

func (b *mockBackend) WriteLabelColors(ctx context.Context, colors models.LabelColorMap) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.labels = colors.Clone()
	return nil
}
