package api

import (
	"github.com/lllllan02/knowledge-base/internal/store"
)

// CreateNoteRequest is the request body for creating a note. Title and tags
// are derived from the content, never supplied by the client.
type CreateNoteRequest struct {
	Content  string  `json:"content" example:"# Hello\nWorld" validate:"required"`
	FolderID *string `json:"folder_id,omitempty"`
}

// UpdateNoteRequest is the request body for saving note content.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// MoveNoteRequest targets a folder; null moves the note to the root.
type MoveNoteRequest struct {
	FolderID *string `json:"folder_id"`
}

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Name     string  `json:"name" example:"Projects" validate:"required"`
	ParentID *string `json:"parent_id,omitempty"`
}

// RenameFolderRequest is the request body for renaming a folder.
type RenameFolderRequest struct {
	Name string `json:"name" example:"Archive" validate:"required"`
}

// MoveFolderRequest targets a new parent; null moves the folder to the root.
type MoveFolderRequest struct {
	ParentID *string `json:"parent_id"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []store.Note `json:"notes" validate:"required"`
	Total int          `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse wraps the backlink set of a note.
type BacklinksResponse struct {
	NoteID    string       `json:"note_id" validate:"required"`
	Backlinks []store.Note `json:"backlinks" validate:"required"`
}

// ResolveResponse wraps the notes a reference resolves to.
type ResolveResponse struct {
	Ref   string       `json:"ref" validate:"required"`
	Notes []store.Note `json:"notes" validate:"required"`
}

// PreviewResponse wraps rendered note HTML.
type PreviewResponse struct {
	HTML string `json:"html" validate:"required"`
}

// GraphNode is a node in the knowledge graph.
type GraphNode struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title,omitempty" example:"Hello"`
}

// GraphLink is a resolved wikilink edge in the knowledge graph.
type GraphLink struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" example:"image.png" validate:"required"`
	Size int64  `json:"size" example:"12345" validate:"required"`
	URL  string `json:"url" example:"/api/attachments/abc123" validate:"required"`
}
