package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/models"
)

// snapshotVersion identifies the export format.
const snapshotVersion = "1.0"

// Snapshot is the whole-system export envelope. It travels through the
// same backend abstraction as everything else; there is no separate
// persistence format.
type Snapshot struct {
	Version     string               `json:"version"`
	ExportedAt  int64                `json:"exported_at"`
	Documents   []*models.Document   `json:"documents"`
	Collections []*models.Collection `json:"collections"`
	Preferences models.Preferences   `json:"preferences"`
	LabelColors models.LabelColorMap `json:"label_colors"`
	Checksum    string               `json:"checksum"`
}

// checksum computes the snapshot digest with the Checksum field zeroed.
func (s Snapshot) checksum() (string, error) {
	s.Checksum = ""
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Export flushes every pending write, then serializes all four entity
// kinds into one checksummed snapshot blob.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}

	// Export is a synchronous-durability point: unsettled debounced
	// writes must land before the snapshot is taken.
	for _, res := range s.FlushAll(ctx) {
		if res.Err != nil {
			return nil, apperrors.Wrap(apperrors.ErrExportFailed,
				fmt.Sprintf("pending write for %s did not settle", res.ID), res.Err)
		}
	}

	docs, err := s.backend.ReadDocuments(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to read documents", err)
	}
	collections, err := s.backend.ReadCollections(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to read collections", err)
	}
	prefs, err := s.backend.ReadPreferences(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to read preferences", err)
	}
	labels, err := s.backend.ReadLabelColors(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to read label colors", err)
	}

	snap := Snapshot{
		Version:     snapshotVersion,
		ExportedAt:  time.Now().Unix(),
		Documents:   docs,
		Collections: collections,
		Preferences: prefs,
		LabelColors: labels,
	}
	if snap.Checksum, err = snap.checksum(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to checksum snapshot", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to serialize snapshot", err)
	}
	return data, nil
}

// Import restores a snapshot through the active backend, replacing the
// in-memory snapshot afterwards. The checksum is validated before any
// write happens.
func (s *Store) Import(ctx context.Context, data []byte) error {
	if err := s.requireInit(); err != nil {
		return err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return apperrors.Wrap(apperrors.ErrImportFailed, "snapshot is not parseable", err)
	}

	want, err := snap.checksum()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrImportFailed, "failed to checksum snapshot", err)
	}
	if snap.Checksum == "" || snap.Checksum != want {
		return apperrors.New(apperrors.ErrImportFailed, "snapshot checksum mismatch")
	}

	for _, doc := range snap.Documents {
		if err := s.backend.WriteDocument(ctx, doc); err != nil {
			return apperrors.Wrap(apperrors.ErrImportFailed,
				fmt.Sprintf("failed to restore document %s", doc.ID), err)
		}
	}
	if len(snap.Collections) > 0 {
		if err := s.backend.WriteCollections(ctx, snap.Collections); err != nil {
			return apperrors.Wrap(apperrors.ErrImportFailed, "failed to restore collections", err)
		}
	}
	if len(snap.Preferences) > 0 {
		if err := s.backend.WritePreferences(ctx, snap.Preferences); err != nil {
			return apperrors.Wrap(apperrors.ErrImportFailed, "failed to restore preferences", err)
		}
	}
	if len(snap.LabelColors) > 0 {
		if err := s.backend.WriteLabelColors(ctx, snap.LabelColors); err != nil {
			return apperrors.Wrap(apperrors.ErrImportFailed, "failed to restore label colors", err)
		}
	}

	s.mu.Lock()
	for _, doc := range snap.Documents {
		s.docs[doc.ID.String()] = doc
	}
	for _, c := range snap.Collections {
		s.collections[c.ID.String()] = c
	}
	for k, v := range snap.Preferences {
		s.prefs[k] = v
	}
	for k, v := range snap.LabelColors {
		s.labels[k] = v
	}
	s.mu.Unlock()
	return nil
}
