package hostsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/inkpad-app/inkpad/internal/logging"
	"github.com/inkpad-app/inkpad/internal/models"
)

const (
	documentsDir = "documents"
	trashDir     = ".trash"
	docExt       = ".json"
)

// DiskService implements FileService on the local filesystem.
// Every document is one JSON file named by its id; writes go through an
// atomic rename so a crash never leaves a half-written file behind.
type DiskService struct {
	root string
}

// NewDiskService creates the service rooted at dir, creating the
// directory layout if needed.
func NewDiskService(dir string) (*DiskService, error) {
	if err := os.MkdirAll(filepath.Join(dir, documentsDir, trashDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create service directories: %w", err)
	}
	return &DiskService{root: dir}, nil
}

// Root returns the service's root directory.
func (s *DiskService) Root() string {
	return s.root
}

// Ping verifies the document directory is present and writable.
func (s *DiskService) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(filepath.Join(s.root, documentsDir))
	if err != nil {
		return fmt.Errorf("host file service unreachable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("host file service path is not a directory")
	}
	return nil
}

// docPath returns the live file path for a document id.
func (s *DiskService) docPath(id string) string {
	return filepath.Join(s.root, documentsDir, id+docExt)
}

// SaveDocument writes the document's file atomically.
func (s *DiskService) SaveDocument(ctx context.Context, doc *models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("document has no id")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document %s: %w", doc.ID, err)
	}
	if err := atomic.WriteFile(s.docPath(doc.ID.String()), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write document %s: %w", doc.ID, err)
	}
	return nil
}

// LoadDocument reads one document file. Returns (nil, nil) when absent.
func (s *DiskService) LoadDocument(ctx context.Context, id string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.docPath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return &doc, nil
}

// LoadAllDocuments reads every document file. Files that fail to parse
// are skipped with a warning rather than failing the whole read.
func (s *DiskService) LoadAllDocuments(ctx context.Context) ([]*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.root, documentsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	log := logging.With("hostsvc")
	var docs []*models.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), docExt) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), docExt)
		doc, err := s.LoadDocument(ctx, id)
		if err != nil {
			log.Warn().Str("id", id).Err(err).Msg("skipping unreadable document file")
			continue
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// DeleteDocument moves the live file into the trash directory as a
// timestamped backup, then removes it. Deleting an absent id is a no-op.
func (s *DiskService) DeleteDocument(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	live := s.docPath(id)
	if _, err := os.Stat(live); os.IsNotExist(err) {
		return nil
	}

	backup := filepath.Join(s.root, documentsDir, trashDir,
		fmt.Sprintf("%s.%d%s", id, time.Now().UnixNano(), docExt))
	if err := os.Rename(live, backup); err != nil {
		return fmt.Errorf("failed to back up document %s: %w", id, err)
	}
	return nil
}

// Backups lists the backup file names recorded for a document id,
// newest last.
func (s *DiskService) Backups(id string) ([]string, error) {
	pattern := filepath.Join(s.root, documentsDir, trashDir, id+".*"+docExt)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups for %s: %w", id, err)
	}
	sort.Strings(matches)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	return names, nil
}

// blobPath returns the file path for a named blob.
func (s *DiskService) blobPath(name string) string {
	return filepath.Join(s.root, name+docExt)
}

// SaveBlob writes a whole-kind blob atomically.
func (s *DiskService) SaveBlob(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := atomic.WriteFile(s.blobPath(name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	return nil
}

// LoadBlob reads a whole-kind blob. Returns (nil, nil) when absent.
func (s *DiskService) LoadBlob(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.blobPath(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return data, nil
}

// Migrate ingests the four legacy blobs: the documents blob is split into
// per-document files, the other kinds are stored as blobs unchanged.
func (s *DiskService) Migrate(ctx context.Context, payload MigrationPayload) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Message: err.Error()}, err
	}

	migrated := 0
	if len(payload.Documents) > 0 {
		var docs []*models.Document
		if err := json.Unmarshal(payload.Documents, &docs); err != nil {
			return Result{Success: false, Message: "legacy documents blob is not parseable"},
				fmt.Errorf("failed to parse legacy documents: %w", err)
		}
		for _, doc := range docs {
			if err := s.SaveDocument(ctx, doc); err != nil {
				return Result{Success: false, Message: fmt.Sprintf("failed at document %s", doc.ID)}, err
			}
			migrated++
		}
	}

	blobs := map[string][]byte{
		BlobCollections: payload.Collections,
		BlobPreferences: payload.Preferences,
		BlobLabelColors: payload.LabelColors,
	}
	for name, data := range blobs {
		if len(data) == 0 {
			continue
		}
		if err := s.SaveBlob(ctx, name, data); err != nil {
			return Result{Success: false, Message: fmt.Sprintf("failed at blob %s", name)}, err
		}
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("migrated %d documents", migrated),
	}, nil
}
