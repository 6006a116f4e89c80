package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNote)
			r.Put("/", h.UpdateNote)
			r.Delete("/", h.DeleteItem)
			r.Patch("/title", h.RenameItem)
			r.Get("/connections", h.Connections)
			r.Get("/crosslinks", h.Crosslinks)
			r.Get("/entities", h.NoteEntities)
		})
	})
	r.Post("/folders", h.CreateFolder)
	r.Get("/tree", h.Tree)

	r.Get("/entities", h.ListEntities)
	r.Get("/entities/{key}/attributes", h.EntityAttributes)
	r.Put("/entities/{key}/attributes", h.SetEntityAttributes)

	r.Post("/navigate", h.Navigate)
	r.Post("/syntax/paste", h.Paste)
	r.Post("/syntax/input", h.MatchInput)

	r.Get("/tags/{tag}/notes", h.NotesByTag)
	r.Get("/graph", h.Graph)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
