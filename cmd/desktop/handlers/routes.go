package handlers

import (
	"net/http"

	"github.com/inkpad-app/inkpad/internal/lifecycle"
	"github.com/inkpad-app/inkpad/internal/storage"
)

// NewMux wires every REST route onto a fresh mux. The WebSocket
// endpoint is attached separately by the shell.
func NewMux(store *storage.Store, guard *lifecycle.Guard) *http.ServeMux {
	documents := NewDocumentHandler(store)
	collections := NewCollectionHandler(store)
	settings := NewSettingsHandler(store)
	snapshot := NewSnapshotHandler(store)
	status := NewStatusHandler(store, guard)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", status.Health)
	mux.HandleFunc("/api/unsaved", status.Unsaved)

	mux.HandleFunc("/api/documents", documents.Collection)
	mux.HandleFunc("/api/documents/flush", documents.Flush)
	mux.HandleFunc("/api/documents/{id}", documents.Item)
	mux.HandleFunc("/api/documents/{id}/trash", documents.Trash)
	mux.HandleFunc("/api/documents/{id}/restore", documents.Restore)

	mux.HandleFunc("/api/collections", collections.Collection)
	mux.HandleFunc("/api/collections/{id}", collections.Item)

	mux.HandleFunc("/api/preferences", settings.Preferences)
	mux.HandleFunc("/api/labels/colors", settings.LabelColors)

	mux.HandleFunc("/api/snapshot/export", snapshot.Export)
	mux.HandleFunc("/api/snapshot/import", snapshot.Import)
	return mux
}
