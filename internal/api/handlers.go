package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pathParam returns a URL parameter, decoding escaped characters such as
// the colon of an entity key.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes in creation order
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items := h.svc.ListNotes(r.Context())
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note with its connections
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.GetNote(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Title, req.ParentID, req.Content)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note's content with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Note id"
//	@Param			If-Match	header		string				false	"Checksum of the content being replaced"
//	@Param			body		body		UpdateNoteRequest	true	"Updated content"
//	@Success		200			{object}	NoteDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.UpdateNote(r.Context(), pathParam(r, "id"), req.Content, ifMatch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteItem handles DELETE /api/notes/{id}. Folders are removed with
// everything below them.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	removed, err := h.svc.DeleteItem(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, "delete item", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Removed: removed})
}

// RenameItem handles PATCH /api/notes/{id}/title.
func (h *Handler) RenameItem(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.svc.RenameItem(r.Context(), pathParam(r, "id"), req.Title)
	if err != nil {
		writeError(w, "rename item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateFolder handles POST /api/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decode(w, r, &req) {
		return
	}
	folder, err := h.svc.CreateFolder(r.Context(), req.Title, req.ParentID)
	if err != nil {
		writeError(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// Tree handles GET /api/tree?parent=.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Tree(r.Context(), r.URL.Query().Get("parent"))
	if err != nil {
		writeError(w, "tree", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the connection graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// NotesByTag handles GET /api/tags/{tag}/notes.
func (h *Handler) NotesByTag(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.NotesByTag(r.Context(), pathParam(r, "tag"))
	if err != nil {
		writeError(w, "notes by tag", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": rows})
}
