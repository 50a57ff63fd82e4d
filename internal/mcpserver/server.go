// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes journal tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/journalservice"
)

const formatResourceURI = "journal://document-format"

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp *server.MCPServer
	svc *journalservice.Service
}

// New creates a new MCP server with all journal tools registered.
func New(svc *journalservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"journalsync",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List a user's journal entries, most recently updated first."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Owner of the entries")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 50)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read a journal entry including its block document and tag ids."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List the task items recorded for an entry."),
		mcp.WithString("entry_id", mcp.Required(), mcp.Description("Entry ID")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("set_task_completed",
		mcp.WithDescription("Mark a task done or not done. The entry's document is updated to match."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithBoolean("completed", mcp.Required(), mcp.Description("New completion state")),
	), s.setTaskCompleted)

	s.mcp.AddTool(mcp.NewTool("attach_image",
		mcp.WithDescription("Store an image for an entry from a data URI or http(s) URL. "+
			"Returns the public URL and an image block to insert into the entry document. "+
			"Read the format via get_document_format first."),
		mcp.WithString("entry_id", mcp.Required(), mcp.Description("Entry ID")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data: URI or http(s) URL of the image")),
		mcp.WithString("filename", mcp.Description("Optional file name; its extension selects the type")),
	), s.attachImage)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the block document format used for entry content. "+
			"Call this before producing or editing entry content."),
	), s.getDocumentFormat)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatResourceURI, "Entry Document Format",
			mcp.WithResourceDescription("Block document format stored as entry content."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
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

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.svc.ListEntries(ctx, userID, req.GetInt("limit", 50), 0)
	if err != nil {
		return errorResult(err), nil
	}
	type row struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		IsDraft bool   `json:"is_draft"`
		Updated string `json:"updated_at"`
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, row{ID: e.ID, Title: e.Title, IsDraft: e.IsDraft, Updated: e.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")})
	}
	return jsonResult(rows)
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.GetEntry(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(e)
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entryID, err := req.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tasks, err := s.svc.ListTasks(ctx, entryID)
	if err != nil {
		return errorResult(err), nil
	}
	if len(tasks) == 0 {
		return mcp.NewToolResultText("no tasks found"), nil
	}
	return jsonResult(tasks)
}

func (s *Server) setTaskCompleted(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	completed, err := req.RequireBool("completed")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.svc.UpdateTask(ctx, taskID, journalservice.TaskUpdate{IsCompleted: &completed})
	if err != nil {
		return errorResult(err), nil
	}
	state := "open"
	if t.IsCompleted {
		state = "completed"
	}
	return mcp.NewToolResultText(fmt.Sprintf("task %s is %s", t.ID, state)), nil
}

func (s *Server) getDocumentFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatResourceURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
