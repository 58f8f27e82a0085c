package handlers

import (
	"net/http"

	"github.com/inkpad-app/inkpad/internal/lifecycle"
	"github.com/inkpad-app/inkpad/internal/storage"
)

// StatusHandler reports service health and unsaved-work state.
type StatusHandler struct {
	store *storage.Store
	guard *lifecycle.Guard
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(store *storage.Store, guard *lifecycle.Guard) *StatusHandler {
	return &StatusHandler{store: store, guard: guard}
}

// Health handles GET /api/health.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "inkpad-desktop",
		"backend":   h.store.BackendName(),
		"migration": h.store.MigrationState(),
		"unsaved":   len(h.store.UnsavedIDs()),
	})
}

// Unsaved handles GET /api/unsaved: the shell polls this before closing
// a window or navigating away from an editor.
func (h *StatusHandler) Unsaved(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	ids := h.guard.UnsavedIDs()
	if id := r.URL.Query().Get("id"); id != "" {
		writeJSON(w, http.StatusOK, map[string]bool{"unsaved": h.guard.HasUnsaved(id)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ids": ids, "count": len(ids)})
}
