// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the task collector to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/taskcollector/internal/apperr"
	"github.com/starford/taskcollector/internal/collector"
	"github.com/starford/taskcollector/internal/index"
	"github.com/starford/taskcollector/internal/tasks"
)

const defaultTaskLimit = 50

// Server wraps the MCP server with the task collector tools.
type Server struct {
	mcp *server.MCPServer
	svc *collector.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *collector.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Task Collector",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("Query tasks across the vault. Every filter is optional."),
		mcp.WithString("state", mcp.Description("incomplete, complete, canceled or unrecognized")),
		mcp.WithString("query", mcp.Description("Words that must appear in the task text")),
		mcp.WithString("path", mcp.Description("Restrict to one document (e.g. projects/home.md)")),
		mcp.WithString("tag", mcp.Description("Restrict to tasks carrying this #tag")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tasks (default 50)")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List vault documents with their open and done task counts."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a Markdown document with its checksum and parsed tasks."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/todo.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("complete_all_tasks",
		mcp.WithDescription("Complete every incomplete task in a document."),
		pathArg(),
		mcp.WithString("mark", mcp.Description("Completion mark (default x)")),
		ifMatchArg(),
	), s.operation(tasks.OpCompleteAll))

	s.mcp.AddTool(mcp.NewTool("reset_all_tasks",
		mcp.WithDescription("Reopen completed tasks outside the log section of a document."),
		pathArg(),
		ifMatchArg(),
	), s.operation(tasks.OpResetAll))

	s.mcp.AddTool(mcp.NewTool("move_completed_tasks",
		mcp.WithDescription("Move completed tasks, with their indented lines, into the log section of a document."),
		pathArg(),
		ifMatchArg(),
	), s.operation(tasks.OpMoveCompleted))

	s.mcp.AddTool(mcp.NewTool("mark_tasks",
		mcp.WithDescription("Apply a mark to a span of lines. Plain list items become tasks. "+
			"Read the syntax via get_task_syntax or the "+TaskSyntaxURI+" resource first."),
		pathArg(),
		mcp.WithString("lines", mcp.Required(), mcp.Description("Zero-based line or span, e.g. 4 or 4-7")),
		mcp.WithString("mark", mcp.Required(), mcp.Description("Mark character, or Backspace to remove the checkbox")),
		ifMatchArg(),
	), s.markTasks)

	s.mcp.AddTool(mcp.NewTool("get_task_syntax",
		mcp.WithDescription("Returns the task syntax reference and the configured marks."),
	), s.getTaskSyntax)

	s.mcp.AddResource(
		mcp.NewResource(TaskSyntaxURI, "Task Syntax",
			mcp.WithResourceDescription("How tasks are written and which marks are configured."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaskSyntaxResource,
	)

	return s
}

func pathArg() mcp.ToolOption {
	return mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document"))
}

func ifMatchArg() mcp.ToolOption {
	return mcp.WithString("if_match", mcp.Description("Checksum from read_document; the call fails if the document changed since"))
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// operationResult is the compact reply of the document tools.
type operationResult struct {
	Path      string           `json:"path"`
	Changed   bool             `json:"changed"`
	Checksum  string           `json:"checksum"`
	Selection *tasks.Selection `json:"selection,omitempty"`
	Content   string           `json:"content"`
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := index.TaskQuery{
		State: req.GetString("state", ""),
		Text:  req.GetString("query", ""),
		Path:  req.GetString("path", ""),
		Tag:   req.GetString("tag", ""),
		Limit: req.GetInt("limit", defaultTaskLimit),
	}
	list, err := s.svc.ListTasks(ctx, q)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(list)
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.ListDocuments(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(docs)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(doc)
}

func (s *Server) operation(op tasks.Operation) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.apply(ctx, path, tasks.Request{Op: op, Mark: req.GetString("mark", "")}, req.GetString("if_match", ""))
	}
}

func (s *Server) markTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines, err := req.RequireString("lines")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mark, err := req.RequireString("mark")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel, err := tasks.ParseLines(lines)
	if err != nil {
		return toolError(err), nil
	}
	return s.apply(ctx, path, tasks.Request{Op: tasks.OpMark, Mark: mark, Selection: sel}, req.GetString("if_match", ""))
}

func (s *Server) apply(ctx context.Context, path string, req tasks.Request, ifMatch string) (*mcp.CallToolResult, error) {
	res, err := s.svc.Apply(ctx, path, req, ifMatch)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(operationResult{
		Path:      res.Document.Path,
		Changed:   res.Changed,
		Checksum:  res.Document.Checksum,
		Selection: res.Selection,
		Content:   res.Document.Content,
	})
}

func (s *Server) getTaskSyntax(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.taskSyntax()), nil
}

func (s *Server) readTaskSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TaskSyntaxURI,
			MIMEType: "text/markdown",
			Text:     s.taskSyntax(),
		},
	}, nil
}

func (s *Server) taskSyntax() string {
	p := s.svc.Engine().Patterns()
	return TaskSyntax(p.Settings(), p.Vocabulary())
}

// toolError turns service errors into tool-level errors the model can read.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("document changed since it was read; read it again and retry")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}
