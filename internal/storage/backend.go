// Package storage implements the Inkpad persistence core: the storage
// backend abstraction with its two implementations, the write coalescer,
// the legacy-to-host migration coordinator, and the store facade consumed
// by the desktop shell.
package storage

import (
	"context"
	"strings"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/models"
)

// Kind identifies one of the four persisted entity kinds.
type Kind string

const (
	KindDocuments   Kind = "documents"
	KindCollections Kind = "collections"
	KindPreferences Kind = "preferences"
	KindLabelColors Kind = "labelColors"
)

// Kinds lists every entity kind, in migration order.
var Kinds = []Kind{KindDocuments, KindCollections, KindPreferences, KindLabelColors}

// LegacyKey returns the fixed key-value store key holding this kind's
// serialized blob. These are the keys the migration coordinator drains.
func (k Kind) LegacyKey() string {
	return "inkpad." + string(k)
}

// Backend is the durable storage contract. Both implementations satisfy
// it; callers never need to know which is active beyond the one-time
// host-availability check at startup.
//
// Documents get per-entity write and delete operations because they are
// the unit of debouncing; the other kinds are written as whole sets.
// Read-one operations return (nil, nil) when the entity is absent.
type Backend interface {
	// Name identifies the backend in logs and health reports.
	Name() string

	ReadDocuments(ctx context.Context) ([]*models.Document, error)
	ReadDocument(ctx context.Context, id string) (*models.Document, error)
	WriteDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) error

	ReadCollections(ctx context.Context) ([]*models.Collection, error)
	WriteCollections(ctx context.Context, collections []*models.Collection) error
	DeleteCollection(ctx context.Context, id string) error

	ReadPreferences(ctx context.Context) (models.Preferences, error)
	WritePreferences(ctx context.Context, prefs models.Preferences) error

	ReadLabelColors(ctx context.Context) (models.LabelColorMap, error)
	WriteLabelColors(ctx context.Context, colors models.LabelColorMap) error
}

// validateDocumentID rejects a missing or unusable identity before any
// I/O happens. Enqueuing or writing such a document is a programmer
// error; failing fast prevents orphaned writes.
func validateDocumentID(doc *models.Document) error {
	if doc == nil {
		return apperrors.New(apperrors.ErrInvalidEntity, "document is nil")
	}
	return validateID(doc.ID.String())
}

func validateID(id string) error {
	if id == "" {
		return apperrors.New(apperrors.ErrInvalidEntity, "document has no id")
	}
	// Ids become file names on the host backend; path separators and
	// relative components are never legal identities.
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return apperrors.Newf(apperrors.ErrInvalidEntity, "document id %q is not a valid identity", id)
	}
	return nil
}
