package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/kv"
	"github.com/inkpad-app/inkpad/internal/models"
	"github.com/inkpad-app/inkpad/internal/uuid"
)

func setupLocalBackend(t *testing.T, quotaBytes int64) (*LocalBackend, kv.Store) {
	t.Helper()
	store, err := kv.Open(t.TempDir(), quotaBytes)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewLocalBackend(store), store
}

func TestLocalBackendDocumentRoundTrip(t *testing.T) {
	backend, _ := setupLocalBackend(t, 0)
	ctx := context.Background()

	doc := newTestDocument("groceries", "milk, eggs")
	require.NoError(t, backend.WriteDocument(ctx, doc))

	got, err := backend.ReadDocument(ctx, doc.ID.String())
	require.NoError(t, err)
	require.NotNil(t, got)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("document changed across the round trip (-want +got):\n%s", diff)
	}
}

func TestLocalBackendReadAbsentDocument(t *testing.T) {
	backend, _ := setupLocalBackend(t, 0)

	got, err := backend.ReadDocument(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got, "an absent document reads back as nil, not an error")
}

func TestLocalBackendWriteSplicesByID(t *testing.T) {
	backend, _ := setupLocalBackend(t, 0)
	ctx := context.Background()

	a := newTestDocument("a", "body a")
	b := newTestDocument("b", "body b")
	require.NoError(t, backend.WriteDocument(ctx, a))
	require.NoError(t, backend.WriteDocument(ctx, b))

	// Rewriting one document must leave the other untouched.
	a.Body = "body a, revised"
	require.NoError(t, backend.WriteDocument(ctx, a))

	docs, err := backend.ReadDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byID := make(map[string]*models.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID.String()] = doc
	}
	assert.Equal(t, "body a, revised", byID[a.ID.String()].Body)
	assert.Equal(t, "body b", byID[b.ID.String()].Body)
}

func TestLocalBackendDeleteDocument(t *testing.T) {
	backend, _ := setupLocalBackend(t, 0)
	ctx := context.Background()

	a := newTestDocument("a", "body a")
	b := newTestDocument("b", "body b")
	require.NoError(t, backend.WriteDocument(ctx, a))
	require.NoError(t, backend.WriteDocument(ctx, b))

	require.NoError(t, backend.DeleteDocument(ctx, a.ID.String()))

	docs, err := backend.ReadDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, b.ID, docs[0].ID)

	// Deleting an id that is not present changes nothing.
	require.NoError(t, backend.DeleteDocument(ctx, uuid.New()))
	docs, err = backend.ReadDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestLocalBackendCorruptedBlobIsCleared(t *testing.T) {
	backend, store := setupLocalBackend(t, 0)
	ctx := context.Background()

	require.NoError(t, store.SetItem(KindDocuments.LegacyKey(), []byte("{not json")))

	docs, err := backend.ReadDocuments(ctx)
	require.NoError(t, err, "a corrupted blob is recovered, not surfaced")
	assert.Empty(t, docs)

	// Recovery clears the key so the corruption cannot resurface.
	data, err := store.GetItem(KindDocuments.LegacyKey())
	require.NoError(t, err)
	assert.Nil(t, data)

	// The kind is immediately writable again.
	doc := newTestDocument("fresh", "body")
	require.NoError(t, backend.WriteDocument(ctx, doc))
	got, err := backend.ReadDocument(ctx, doc.ID.String())
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestLocalBackendPartiallyDecodableBlobReadsEmpty(t *testing.T) {
	backend, store := setupLocalBackend(t, 0)
	ctx := context.Background()

	// Valid JSON whose second element cannot decode into a document.
	// Unmarshal fills the slice up to the failure point; none of that
	// partial state may surface.
	blob := []byte(fmt.Sprintf(`[{"id":%q,"title":"kept"},42]`, uuid.New()))
	require.NoError(t, store.SetItem(KindDocuments.LegacyKey(), blob))

	docs, err := backend.ReadDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs, "a half-decoded blob must read as an empty collection")

	data, err := store.GetItem(KindDocuments.LegacyKey())
	require.NoError(t, err)
	assert.Nil(t, data, "recovery clears the key")
}

func TestLocalBackendQuotaExceeded(t *testing.T) {
	backend, _ := setupLocalBackend(t, 2048)
	ctx := context.Background()

	small := newTestDocument("small", "x")
	require.NoError(t, backend.WriteDocument(ctx, small))

	big := newTestDocument("big", string(make([]byte, 4096)))
	err := backend.WriteDocument(ctx, big)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrQuotaExceeded))

	// The failed write must not have clobbered the existing blob.
	got, readErr := backend.ReadDocument(ctx, small.ID.String())
	require.NoError(t, readErr)
	require.NotNil(t, got)
}

func TestLocalBackendRejectsInvalidIDs(t *testing.T) {
	backend, _ := setupLocalBackend(t, 0)
	ctx := context.Background()

	doc := newTestDocument("no id", "body")
	doc.ID = ""
	err := backend.WriteDocument(ctx, doc)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidEntity))

	_, err = backend.ReadDocument(ctx, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidEntity))

	err = backend.DeleteDocument(ctx, "../escape")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidEntity))
}

func TestLocalBackendCollections(t *testing.T) {
	backend, _ := setupLocalBackend(t, 0)
	ctx := context.Background()

	collections := []*models.Collection{
		{ID: models.UUID(uuid.New()), Name: "work"},
		{ID: models.UUID(uuid.New()), Name: "personal"},
	}
	require.NoError(t, backend.WriteCollections(ctx, collections))

	got, err := backend.ReadCollections(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NoError(t, backend.DeleteCollection(ctx, collections[0].ID.String()))
	got, err = backend.ReadCollections(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "personal", got[0].Name)
}

func TestLocalBackendPreferencesAndLabelColors(t *testing.T) {
	backend, _ := setupLocalBackend(t, 0)
	ctx := context.Background()

	prefs := models.Preferences{"theme": "dark", "font": "mono"}
	require.NoError(t, backend.WritePreferences(ctx, prefs))
	gotPrefs, err := backend.ReadPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefs, gotPrefs)

	colors := models.LabelColorMap{"urgent": "#ff0000"}
	require.NoError(t, backend.WriteLabelColors(ctx, colors))
	gotColors, err := backend.ReadLabelColors(ctx)
	require.NoError(t, err)
	assert.Equal(t, colors, gotColors)
}

func TestLocalBackendEmptyStoreReadsEmpty(t *testing.T) {
	backend, _ := setupLocalBackend(t, 0)
	ctx := context.Background()

	docs, err := backend.ReadDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	prefs, err := backend.ReadPreferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, prefs)
}
