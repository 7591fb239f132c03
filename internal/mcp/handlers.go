package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps *ops.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *ops.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Request types for each tool

// SourceRequest selects the root of tree tools.
type SourceRequest struct {
	File       string `json:"file,omitempty"`
	Manifest   string `json:"manifest,omitempty"`
	FeedUser   string `json:"feed_user,omitempty"`
	FeedOffset int    `json:"feed_offset,omitempty"`
	PostID     string `json:"post_id,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// source maps the request onto an ops.Source. Any feed field selects the feed.
func (r SourceRequest) source() ops.Source {
	src := ops.Source{File: r.File, Manifest: r.Manifest}
	if r.FeedUser != "" || r.FeedOffset != 0 || r.PostID != "" {
		src.Feed = &ops.FeedInput{
			User:      r.FeedUser,
			Offset:    r.FeedOffset,
			PostID:    r.PostID,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return src
}

// OutlineRequest represents the arguments for outline_parse.
type OutlineRequest struct {
	Path string `json:"path,omitempty"`
	Text string `json:"text,omitempty"`
}

// BrowseRequest represents the arguments for tree_browse.
type BrowseRequest struct {
	SourceRequest
	Path  string `json:"path,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ElaborateRequest represents the arguments for tree_elaborate.
type ElaborateRequest struct {
	SourceRequest
	Path      string `json:"path,omitempty"`
	Directive string `json:"directive"`
	Limit     int    `json:"limit,omitempty"`
}

// PublishRequest represents the arguments for site_publish.
type PublishRequest struct {
	SourceRequest
	OutputDir string `json:"output_dir,omitempty"`
}

// HistoryRequest represents the arguments for build_history.
type HistoryRequest struct {
	ID    string `json:"id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// HandleOutline handles the outline_parse tool call.
func (h *Handlers) HandleOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OutlineRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Outline(ops.OutlineInput{Path: input.Path, Text: input.Text})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBrowse handles the tree_browse tool call.
func (h *Handlers) HandleBrowse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BrowseRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Browse(ctx, h.deps, ops.BrowseInput{
		Source: input.source(),
		Path:   input.Path,
		Limit:  input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleElaborate handles the tree_elaborate tool call.
func (h *Handlers) HandleElaborate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ElaborateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Elaborate(ctx, h.deps, ops.ElaborateInput{
		Source:    input.source(),
		Path:      input.Path,
		Directive: input.Directive,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePublish handles the site_publish tool call.
func (h *Handlers) HandlePublish(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PublishRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	src := input.source()
	root, err := ops.Root(ctx, h.deps, src)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Publish(ctx, h.deps, ops.PublishInput{
		Root:      root,
		Source:    src.Label(h.deps.Config),
		OutputDir: input.OutputDir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the build_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.History(ctx, h.deps.DB, ops.HistoryInput{ID: input.ID, Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var errorObj map[string]any

	var dErr *errors.Error
	switch {
	case stderrors.As(err, &dErr):
		msg := dErr.Message
		if err != error(dErr) {
			// Keep wrapper context such as "page 3: ..."
			msg = err.Error()
		}
		errorObj = map[string]any{
			"code":    dErr.Code,
			"message": msg,
			"status":  dErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if dErr.Code != errors.ErrInternal && dErr.Details != nil {
			errorObj["details"] = dErr.Details
		}
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		errorObj = map[string]any{
			"code":    "CANCELLED",
			"message": err.Error(),
			"status":  499,
		}
	default:
		errorObj = map[string]any{
			"code":    "INTERNAL",
			"message": "an internal error occurred",
			"status":  500,
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
