// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Sowilo tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sowilo/internal/document"
	"github.com/starford/sowilo/internal/noteservice"
)

const syntaxURI = "sowilo://syntax"

// Server wraps the MCP server with Sowilo tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all Sowilo tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Sowilo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes with id, title and checksum."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's content and extracted connections."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Content is a JSON document tree; read the "+
			"syntax contract first via get_syntax_contract or the "+syntaxURI+" resource. "+
			"Plain text is accepted and wrapped into a paragraph with markers recognized."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("JSON document or plain text")),
		mcp.WithString("parent_id", mcp.Description("Optional folder id")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_connections",
		mcp.WithDescription("Tags, mentions, links, entities, triples and cross-links of a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.getConnections)

	s.mcp.AddTool(mcp.NewTool("resolve_crosslinks",
		mcp.WithDescription("Find notes that reference the given note with a <<Title>> cross-link."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.resolveCrosslinks)

	s.mcp.AddTool(mcp.NewTool("get_entity_attributes",
		mcp.WithDescription("Stored attribute overrides of an entity."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Entity key, Kind:Label")),
	), s.getEntityAttributes)

	s.mcp.AddTool(mcp.NewTool("set_entity_attributes",
		mcp.WithDescription("Replace the attribute overrides of an entity."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Entity key, Kind:Label")),
		mcp.WithString("attributes", mcp.Required(), mcp.Description("JSON object of attribute values")),
		mcp.WithString("types", mcp.Description("Optional JSON object mapping attribute names to Text, Number, Boolean, Date, List or URL")),
	), s.setEntityAttributes)

	s.mcp.AddTool(mcp.NewTool("recognize_markers",
		mcp.WithDescription("Convert plain text with markers into inline document nodes."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to scan")),
	), s.recognizeMarkers)

	s.mcp.AddTool(mcp.NewTool("get_syntax_contract",
		mcp.WithDescription("Returns the marker syntax and document format contract. "+
			"Call this before creating notes."),
	), s.getSyntaxContract)

	s.mcp.AddResource(
		mcp.NewResource(syntaxURI, "Marker Syntax Contract",
			mcp.WithResourceDescription("Inline marker syntax and document format for note content."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListNotes(ctx))
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(note)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content := req.GetString("content", "")
	if content != "" {
		if _, perr := document.Parse([]byte(content)); perr != nil {
			content, err = s.textToDocument(content)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
	}

	note, err := s.svc.CreateNote(ctx, title, req.GetString("parent_id", ""), content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

// textToDocument wraps plain text into a one-paragraph document with
// markers recognized.
func (s *Server) textToDocument(text string) (string, error) {
	doc := document.NewDoc(s.svc.Paste(text)...)
	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("mcpserver: encode document: %w", err)
	}
	return string(out), nil
}

func (s *Server) getConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.Connections(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c)
}

func (s *Server) resolveCrosslinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.svc.Crosslinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(links) == 0 {
		return mcp.NewToolResultText("no crosslinks found"), nil
	}
	return jsonResult(links)
}

func (s *Server) getEntityAttributes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attrs, err := s.svc.EntityAttributes(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(attrs)
}

func (s *Server) setEntityAttributes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("attributes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return mcp.NewToolResultError("attributes must be a JSON object"), nil
	}
	var types map[string]string
	if rawTypes := req.GetString("types", ""); rawTypes != "" {
		if err := json.Unmarshal([]byte(rawTypes), &types); err != nil {
			return mcp.NewToolResultError("types must be a JSON object of strings"), nil
		}
	}

	stored, err := s.svc.SetEntityAttributes(ctx, key, attrs, types)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stored)
}

func (s *Server) recognizeMarkers(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Paste(text))
}

func (s *Server) getSyntaxContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SyntaxContract), nil
}

func (s *Server) readSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      syntaxURI,
			MIMEType: "text/markdown",
			Text:     SyntaxContract,
		},
	}, nil
}
