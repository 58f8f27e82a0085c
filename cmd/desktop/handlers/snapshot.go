package handlers

import (
	"io"
	"net/http"

	"github.com/inkpad-app/inkpad/internal/storage"
)

// snapshotSizeLimit caps an uploaded snapshot at 64 MiB.
const snapshotSizeLimit = 64 << 20

// SnapshotHandler handles whole-system export and import.
type SnapshotHandler struct {
	store *storage.Store
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(store *storage.Store) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

// Export handles GET /api/snapshot/export.
func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	data, err := h.store.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="inkpad-snapshot.json"`)
	w.Write(data)
}

// Import handles POST /api/snapshot/import.
func (h *SnapshotHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, snapshotSizeLimit))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if err := h.store.Import(r.Context(), data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"documents": len(h.store.Documents()) + len(h.store.TrashedDocuments()),
	})
}
