package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/inkpad-app/inkpad/internal/models"
	"github.com/inkpad-app/inkpad/internal/storage"
)

// DocumentHandler handles document operations.
type DocumentHandler struct {
	store *storage.Store
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(store *storage.Store) *DocumentHandler {
	return &DocumentHandler{store: store}
}

// Collection handles GET and POST /api/documents.
func (h *DocumentHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w)
	}
}

// list serves the active listing, or the trash when ?trash=true.
func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	var docs []*models.Document
	if r.URL.Query().Get("trash") == "true" {
		docs = h.store.TrashedDocuments()
	} else {
		docs = h.store.Documents()
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) create(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Title         string      `json:"title"`
		Body          string      `json:"body"`
		CollectionRef models.UUID `json:"collection_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.store.CreateDocument(r.Context(), request.Title, request.Body, request.CollectionRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// Item handles GET, PUT and DELETE /api/documents/{id}.
func (h *DocumentHandler) Item(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "document id is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.save(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (h *DocumentHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	doc, ok := h.store.Document(id)
	if !ok {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// save enqueues the mutation into the debounce queue; ?now=true forces
// an immediate write instead.
func (h *DocumentHandler) save(w http.ResponseWriter, r *http.Request, id string) {
	var doc models.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	doc.ID = models.UUID(id)

	var err error
	if r.URL.Query().Get("now") == "true" {
		err = h.store.SaveDocumentNow(r.Context(), &doc)
	} else {
		err = h.store.SaveDocument(&doc)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.DeleteDocumentPermanently(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Trash handles POST /api/documents/{id}/trash.
func (h *DocumentHandler) Trash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := h.store.TrashDocument(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles POST /api/documents/{id}/restore.
func (h *DocumentHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := h.store.RestoreDocument(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Flush handles POST /api/documents/flush: settle every pending write
// and report per-document outcomes.
func (h *DocumentHandler) Flush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	type settled struct {
		ID    string `json:"id"`
		Error string `json:"error,omitempty"`
	}
	results := h.store.FlushAll(r.Context())
	report := make([]settled, 0, len(results))
	for _, res := range results {
		entry := settled{ID: res.ID}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		report = append(report, entry)
	}
	writeJSON(w, http.StatusOK, report)
}
