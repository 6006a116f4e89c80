package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/attrstore"
	"github.com/starford/sowilo/internal/index"
	"github.com/starford/sowilo/internal/noteservice"
)

type validatable interface {
	Validate() error
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title    string `json:"title" example:"Meeting notes" validate:"required"`
	ParentID string `json:"parentId,omitempty" example:"0b6f..."`
	Content  string `json:"content,omitempty"`
}

// Validate checks the request.
func (r *CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
	)
}

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Title    string `json:"title" example:"Projects" validate:"required"`
	ParentID string `json:"parentId,omitempty"`
}

// Validate checks the request.
func (r *CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
	)
}

// UpdateNoteRequest is the request body for updating a note's content.
type UpdateNoteRequest struct {
	Content string `json:"content" validate:"required"`
}

// Validate checks the request.
func (r *UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
	)
}

// RenameRequest is the request body for renaming an item.
type RenameRequest struct {
	Title string `json:"title" example:"New title" validate:"required"`
}

// Validate checks the request.
func (r *RenameRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
	)
}

// NavigateRequest asks the UI to open a note.
type NavigateRequest struct {
	NoteID string `json:"noteId" validate:"required"`
}

// Validate checks the request.
func (r *NavigateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NoteID, validation.Required),
	)
}

// TextRequest carries text for marker recognition.
type TextRequest struct {
	Text string `json:"text" example:"see #launch "`
}

// Validate checks the request.
func (r *TextRequest) Validate() error { return nil }

// AttributesRequest replaces an entity's attribute overrides. Types names
// the value type of attributes that need coercion.
type AttributesRequest struct {
	Attributes map[string]any    `json:"attributes"`
	Types      map[string]string `json:"types,omitempty"`
}

// Validate checks the request.
func (r *AttributesRequest) Validate() error {
	names := make([]any, len(attrstore.ValueTypes))
	for i, t := range attrstore.ValueTypes {
		names[i] = string(t)
	}
	return validation.Validate(r.Types,
		validation.Each(validation.In(names...).Error("unknown value type")),
	)
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// DeleteResponse lists the ids removed by a delete.
type DeleteResponse struct {
	Removed []string `json:"removed"`
}

// GraphResponse wraps the connection graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Links []index.GraphLink `json:"links" validate:"required"`
}

// MatchResponse reports a live-typing recognition.
type MatchResponse struct {
	Matched bool   `json:"matched"`
	Kind    string `json:"kind,omitempty"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Node    any    `json:"node,omitempty"`
}
