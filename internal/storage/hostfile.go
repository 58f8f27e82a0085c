package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/hostsvc"
	"github.com/inkpad-app/inkpad/internal/logging"
	"github.com/inkpad-app/inkpad/internal/models"
)

// DefaultCallTimeout bounds every host service call. A call that never
// resolves would otherwise leave a pending write stuck forever.
const DefaultCallTimeout = 5 * time.Second

// HostFileBackend stores each document as its own file through the host
// file service; the remaining kinds travel as whole blobs. Writes are
// per-file, so unrelated documents never need a read-modify-write.
type HostFileBackend struct {
	svc     hostsvc.FileService
	timeout time.Duration
	log     zerolog.Logger
}

// NewHostFileBackend creates the backend over the given file service.
// A timeout of zero selects DefaultCallTimeout.
func NewHostFileBackend(svc hostsvc.FileService, timeout time.Duration) *HostFileBackend {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &HostFileBackend{
		svc:     svc,
		timeout: timeout,
		log:     logging.With("storage.hostfile"),
	}
}

// Name implements Backend.
func (b *HostFileBackend) Name() string {
	return "hostfile"
}

// callCtx derives the per-call timeout context.
func (b *HostFileBackend) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// wrapErr translates deadline expiry into the distinct timeout kind.
func wrapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.ErrTimeout,
			fmt.Sprintf("host file service call timed out: %s", op), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ReadDocuments implements Backend.
func (b *HostFileBackend) ReadDocuments(ctx context.Context) ([]*models.Document, error) {
	ctx, cancel := b.callCtx(ctx)
	defer cancel()
	docs, err := b.svc.LoadAllDocuments(ctx)
	if err != nil {
		return nil, wrapErr(err, "load all documents")
	}
	return docs, nil
}

// ReadDocument implements Backend. Returns (nil, nil) when absent.
func (b *HostFileBackend) ReadDocument(ctx context.Context, id string) (*models.Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	ctx, cancel := b.callCtx(ctx)
	defer cancel()
	doc, err := b.svc.LoadDocument(ctx, id)
	if err != nil {
		return nil, wrapErr(err, "load document")
	}
	return doc, nil
}

// WriteDocument implements Backend.
func (b *HostFileBackend) WriteDocument(ctx context.Context, doc *models.Document) error {
	if err := validateDocumentID(doc); err != nil {
		return err
	}
	ctx, cancel := b.callCtx(ctx)
	defer cancel()
	return wrapErr(b.svc.SaveDocument(ctx, doc), "save document")
}

// DeleteDocument implements Backend. The service records a recoverable
// backup before removing the live file.
func (b *HostFileBackend) DeleteDocument(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	ctx, cancel := b.callCtx(ctx)
	defer cancel()
	return wrapErr(b.svc.DeleteDocument(ctx, id), "delete document")
}

// readBlob loads and parses one of the coarse kinds. A corrupted blob is
// logged and treated as empty; unlike the local backend there is no key
// to clear, the next write simply replaces the blob. Decoding goes
// through a fresh value assigned only on success so a partial decode
// never leaks out.
func (b *HostFileBackend) readBlob(ctx context.Context, name string, out interface{}) error {
	ctx, cancel := b.callCtx(ctx)
	defer cancel()
	data, err := b.svc.LoadBlob(ctx, name)
	if err != nil {
		return wrapErr(err, "load blob "+name)
	}
	if len(data) == 0 {
		return nil
	}

	fresh := reflect.New(reflect.TypeOf(out).Elem())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		b.log.Warn().Str("blob", name).Err(err).
			Msg("corrupted blob ignored, returning empty collection")
		return nil
	}
	reflect.ValueOf(out).Elem().Set(fresh.Elem())
	return nil
}

// writeBlob serializes and stores one of the coarse kinds.
func (b *HostFileBackend) writeBlob(ctx context.Context, name string, in interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to serialize blob %s: %w", name, err)
	}
	ctx, cancel := b.callCtx(ctx)
	defer cancel()
	return wrapErr(b.svc.SaveBlob(ctx, name, data), "save blob "+name)
}

// ReadCollections implements Backend.
func (b *HostFileBackend) ReadCollections(ctx context.Context) ([]*models.Collection, error) {
	var collections []*models.Collection
	if err := b.readBlob(ctx, hostsvc.BlobCollections, &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

// WriteCollections implements Backend.
func (b *HostFileBackend) WriteCollections(ctx context.Context, collections []*models.Collection) error {
	for _, c := range collections {
		if c == nil || c.ID == "" {
			return apperrors.New(apperrors.ErrInvalidEntity, "collection has no id")
		}
	}
	return b.writeBlob(ctx, hostsvc.BlobCollections, collections)
}

// DeleteCollection implements Backend: collections live in one blob, so
// deletion is a read-modify-write of that blob only.
func (b *HostFileBackend) DeleteCollection(ctx context.Context, id string) error {
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
	return b.writeBlob(ctx, hostsvc.BlobCollections, kept)
}

// ReadPreferences implements Backend.
func (b *HostFileBackend) ReadPreferences(ctx context.Context) (models.Preferences, error) {
	prefs := models.Preferences{}
	if err := b.readBlob(ctx, hostsvc.BlobPreferences, &prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// WritePreferences implements Backend.
func (b *HostFileBackend) WritePreferences(ctx context.Context, prefs models.Preferences) error {
	return b.writeBlob(ctx, hostsvc.BlobPreferences, prefs)
}

// ReadLabelColors implements Backend.
func (b *HostFileBackend) ReadLabelColors(ctx context.Context) (models.LabelColorMap, error) {
	colors := models.LabelColorMap{}
	if err := b.readBlob(ctx, hostsvc.BlobLabelColors, &colors); err != nil {
		return nil, err
	}
	return colors, nil
}

// WriteLabelColors implements Backend.
func (b *HostFileBackend) WriteLabelColors(ctx context.Context, colors models.LabelColorMap) error {
	return b.writeBlob(ctx, hostsvc.BlobLabelColors, colors)
}
