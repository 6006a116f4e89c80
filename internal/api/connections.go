package api

import (
	"net/http"
)

// Connections handles GET /api/notes/{id}/connections.
//
//	@Summary		Connections extracted from a note
//	@Tags			connections
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	connections.Connections
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/connections [get]
func (h *Handler) Connections(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Connections(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, "connections", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Crosslinks handles GET /api/notes/{id}/crosslinks: notes referencing
// this one by title.
func (h *Handler) Crosslinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.Crosslinks(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, "crosslinks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crosslinks": links})
}

// NoteEntities handles GET /api/notes/{id}/entities?q=.
func (h *Handler) NoteEntities(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.NoteEntities(r.Context(), pathParam(r, "id"), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "note entities", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	ents, err := h.svc.ListEntities(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "list entities", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": ents})
}

// EntityAttributes handles GET /api/entities/{key}/attributes.
func (h *Handler) EntityAttributes(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")
	attrs, err := h.svc.EntityAttributes(r.Context(), key)
	if err != nil {
		writeError(w, "entity attributes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "attributes": attrs})
}

// SetEntityAttributes handles PUT /api/entities/{key}/attributes.
//
//	@Summary		Replace the attribute overrides of an entity
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string				true	"Entity key (Kind:Label)"
//	@Param			body	body		AttributesRequest	true	"Attributes and optional value types"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{key}/attributes [put]
func (h *Handler) SetEntityAttributes(w http.ResponseWriter, r *http.Request) {
	var req AttributesRequest
	if !decode(w, r, &req) {
		return
	}
	key := pathParam(r, "key")
	stored, err := h.svc.SetEntityAttributes(r.Context(), key, req.Attributes, req.Types)
	if err != nil {
		writeError(w, "set entity attributes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "attributes": stored})
}

// Navigate handles POST /api/navigate.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.svc.Navigate(r.Context(), req.NoteID)
	if err != nil {
		writeError(w, "navigate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"noteId": id})
}

// Paste handles POST /api/syntax/paste.
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": h.svc.Paste(req.Text)})
}

// MatchInput handles POST /api/syntax/input.
func (h *Handler) MatchInput(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decode(w, r, &req) {
		return
	}
	m, ok := h.svc.MatchInput(req.Text)
	if !ok {
		writeJSON(w, http.StatusOK, MatchResponse{})
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{
		Matched: true,
		Kind:    string(m.Kind),
		Start:   m.Start,
		End:     m.End,
		Node:    m.Node,
	})
}
