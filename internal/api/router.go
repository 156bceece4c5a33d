package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, receives change events and is mounted at GET /events
// inside the auth group.
func NewRouter(st *store.Store, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(st, broker)
	bh := NewBackupHandler(st, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notebooks and chapters.
	r.Get("/notebooks", h.ListNotebooks)
	r.Post("/notebooks", h.CreateNotebook)
	r.Get("/chapters", h.ListChapters)
	r.Post("/notebooks/{id}/chapters", h.CreateChapter)

	// Words.
	r.Get("/words", h.ListWords)
	r.Post("/words", h.CreateWord)
	r.Delete("/words/{id}", h.DeleteWord)

	// Study.
	r.Get("/queue", h.Queue)
	r.Post("/mastery", h.RecordMastery)
	r.Get("/stats", h.Stats)

	// Backups.
	r.Get("/backup/json", bh.ExportJSON)
	r.Post("/backup/json", bh.ImportJSON)
	r.Get("/backup/db", bh.ExportImage)
	r.Post("/backup/db", bh.RestoreImage)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
