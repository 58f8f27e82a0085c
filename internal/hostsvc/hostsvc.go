// Package hostsvc defines the boundary to the host file service: an
// out-of-process collaborator that stores each document as its own file
// and the remaining entity kinds as whole blobs.
package hostsvc

import (
	"context"

	"github.com/inkpad-app/inkpad/internal/models"
)

// Blob names for the coarse-grained entity kinds.
const (
	BlobCollections = "collections"
	BlobPreferences = "preferences"
	BlobLabelColors = "label_colors"
)

// Result reports the outcome of a migration request.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MigrationPayload carries the four legacy blobs exactly as they were
// stored in the key-value store.
type MigrationPayload struct {
	Documents   []byte `json:"documents"`
	Collections []byte `json:"collections"`
	Preferences []byte `json:"preferences"`
	LabelColors []byte `json:"label_colors"`
}

// Empty reports whether the payload carries no legacy data at all.
func (p MigrationPayload) Empty() bool {
	return len(p.Documents) == 0 && len(p.Collections) == 0 &&
		len(p.Preferences) == 0 && len(p.LabelColors) == 0
}

// FileService is the asynchronous host file service contract.
// Load operations return (nil, nil) when the requested entity is absent.
type FileService interface {
	// Ping reports whether the service is reachable. Checked once at
	// startup to decide which backend is active.
	Ping(ctx context.Context) error

	SaveDocument(ctx context.Context, doc *models.Document) error
	LoadDocument(ctx context.Context, id string) (*models.Document, error)
	LoadAllDocuments(ctx context.Context) ([]*models.Document, error)

	// DeleteDocument moves a recoverable backup aside before removing
	// the live file. Deleting an absent document is a no-op.
	DeleteDocument(ctx context.Context, id string) error

	SaveBlob(ctx context.Context, name string, data []byte) error
	LoadBlob(ctx context.Context, name string) ([]byte, error)

	// Migrate ingests the four legacy blobs in one call.
	Migrate(ctx context.Context, payload MigrationPayload) (Result, error)
}
