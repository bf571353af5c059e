// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes knowledge-base tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lllllan02/knowledge-base/internal/backlink"
	"github.com/lllllan02/knowledge-base/internal/session"
	"github.com/lllllan02/knowledge-base/internal/store"
)

// Server wraps the MCP server with knowledge-base tools.
type Server struct {
	mcp       *server.MCPServer
	sess      *session.Session
	backlinks *backlink.Index
}

// New creates a new MCP server with all tools registered. Mutations go
// through the session so link state stays consistent.
func New(sess *session.Session) *Server {
	s := &Server{sess: sess, backlinks: backlink.New(sess.Store())}

	s.mcp = server.NewMCPServer(
		"knowledge-base",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Substring search through note titles, content, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. The title is the first line of the content "+
			"and #tags are collected from the body. Use [[wikilinks]] to reference other "+
			"notes by title. Read the contract first via the get_note_contract tool or "+
			"the kb://note-format resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note content following the note format contract")),
		mcp.WithString("folder_id", mcp.Description("Optional folder id to file the note under")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the content of an existing note. Title and tags are re-derived."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New note content")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes, or the notes in a specific folder."),
		mcp.WithString("folder_id", mcp.Description("Optional folder id ('root' for unfiled notes)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes whose wikilinks target the specified note's title."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve a wikilink reference to matching notes. Exact title "+
			"matches win; otherwise substring matches are returned."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Link reference, without brackets")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an image or document from a URL (or decode a data: URI) "+
			"and attach it to a note. Returns a markdownImage field ready to paste into the note body."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data: URI")),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Id of the note that owns the asset")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadAsset)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("kb://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.sess.Store().SearchNotes(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(notesAsJSON(notes)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.sess.Store().GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var folderID *string
	if f, fErr := req.RequireString("folder_id"); fErr == nil && f != "" {
		folderID = &f
	}

	note, err := s.sess.CreateNote(ctx, content, folderID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", note.ID, note.Title)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sess.SaveNoteNow(ctx, id, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", id)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		notes []store.Note
		err   error
	)
	if f, fErr := req.RequireString("folder_id"); fErr == nil && f != "" {
		var folderID *string
		if f != "root" {
			folderID = &f
		}
		notes, err = s.sess.Store().QueryNotesByFolder(ctx, folderID)
	} else {
		notes, err = s.sess.Store().ListAllNotes(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, n := range notes {
		lines = append(lines, fmt.Sprintf("%s\t%s", n.ID, n.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "kb://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.sess.Store().GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	bl, err := s.backlinks.FindBacklinks(ctx, *note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var lines []string
	for _, n := range bl {
		lines = append(lines, fmt.Sprintf("%s\t%s", n.ID, n.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.sess.Resolver().Resolve(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("no matching notes"), nil
	}
	return mcp.NewToolResultText(notesAsJSON(notes)), nil
}

func notesAsJSON(notes []store.Note) string {
	type summary struct {
		ID        string   `json:"id"`
		Title     string   `json:"title"`
		Tags      []string `json:"tags"`
		UpdatedAt string   `json:"updated_at"`
	}
	out := make([]summary, len(notes))
	for i, n := range notes {
		out[i] = summary{
			ID:        n.ID,
			Title:     n.Title,
			Tags:      n.Tags,
			UpdatedAt: n.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	raw, _ := json.MarshalIndent(out, "", "  ")
	return string(raw)
}
