package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/inkpad-app/inkpad/internal/storage"
)

// SettingsHandler handles preferences and label colors.
type SettingsHandler struct {
	store *storage.Store
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store *storage.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// Preferences handles GET and PUT /api/preferences.
func (h *SettingsHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.store.Preferences())
	case http.MethodPut:
		var request struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if request.Key == "" {
			http.Error(w, "key is required", http.StatusBadRequest)
			return
		}
		if err := h.store.SetPreference(r.Context(), request.Key, request.Value); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.store.Preferences())
	default:
		methodNotAllowed(w)
	}
}

// LabelColors handles GET, PUT and DELETE /api/labels/colors.
func (h *SettingsHandler) LabelColors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.store.LabelColors())
	case http.MethodPut:
		var request struct {
			Label string `json:"label"`
			Color string `json:"color"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if request.Label == "" {
			http.Error(w, "label is required", http.StatusBadRequest)
			return
		}
		if err := h.store.SetLabelColor(r.Context(), request.Label, request.Color); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.store.LabelColors())
	case http.MethodDelete:
		label := r.URL.Query().Get("label")
		if label == "" {
			http.Error(w, "label is required", http.StatusBadRequest)
			return
		}
		if err := h.store.RemoveLabelColor(r.Context(), label); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}
