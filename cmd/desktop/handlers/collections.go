package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/inkpad-app/inkpad/internal/models"
	"github.com/inkpad-app/inkpad/internal/storage"
)

// CollectionHandler handles collection operations.
type CollectionHandler struct {
	store *storage.Store
}

// NewCollectionHandler creates a new CollectionHandler.
func NewCollectionHandler(store *storage.Store) *CollectionHandler {
	return &CollectionHandler{store: store}
}

// Collection handles GET and POST /api/collections.
func (h *CollectionHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.store.Collections())
	case http.MethodPost:
		h.save(w, r)
	default:
		methodNotAllowed(w)
	}
}

// save creates or updates a collection; a request without an id gets a
// fresh one assigned.
func (h *CollectionHandler) save(w http.ResponseWriter, r *http.Request) {
	var c models.Collection
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if c.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := h.store.SaveCollection(r.Context(), &c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &c)
}

// Item handles GET and DELETE /api/collections/{id}.
func (h *CollectionHandler) Item(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "collection id is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, ok := h.store.Collection(id)
		if !ok {
			http.Error(w, "Collection not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := h.store.DeleteCollection(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}
