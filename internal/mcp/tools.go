package mcp

import "github.com/mark3labs/mcp-go/mcp"

// sourceOptions describe the root selection shared by tree tools.
func sourceOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("file", mcp.Description("Markdown file to use as the root")),
		mcp.WithString("manifest", mcp.Description("Category manifest to use as the root (default: configured manifest_path)")),
		mcp.WithString("feed_user", mcp.Description("Feed user whose timeline is the root")),
		mcp.WithNumber("feed_offset", mcp.Description("Timeline paging offset"), mcp.Min(0)),
		mcp.WithString("post_id", mcp.Description("Single feed post to use as the root")),
		mcp.WithString("updated_at", mcp.Description("Post updatedAt value; a new value refetches the post")),
	}
}

func withSource(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append(opts, sourceOptions()...)...)
}

var outlineToolDef = mcp.NewTool("outline_parse",
	mcp.WithDescription("Parse markdown into a nested heading outline. Pass exactly one of path or text."),
	mcp.WithString("path", mcp.Description("Markdown file to parse")),
	mcp.WithString("text", mcp.Description("Markdown text to parse")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var browseToolDef = withSource("tree_browse",
	mcp.WithDescription("Show one node of the content tree with its attributes and list its children. "+
		"Nodes are addressed by child indices from the root, e.g. \"0/2\"."),
	mcp.WithString("path", mcp.Description("Slash-separated child indices; empty for the root")),
	mcp.WithNumber("limit", mcp.Description("Max children listed (default 100, max 1000)"), mcp.Min(1), mcp.Max(1000)),
	mcp.WithReadOnlyHintAnnotation(true),
)

var elaborateToolDef = withSource("tree_elaborate",
	mcp.WithDescription("Expand a node along a free-text directive using the AI. "+
		"\"$title\" in the directive is replaced with the node's name."),
	mcp.WithString("path", mcp.Description("Slash-separated child indices; empty for the root")),
	mcp.WithString("directive", mcp.Required(), mcp.Description("What to elaborate, e.g. \"Explain $title to a beginner\"")),
	mcp.WithNumber("limit", mcp.Description("Max children listed (default 100, max 1000)"), mcp.Min(1), mcp.Max(1000)),
)

var publishToolDef = withSource("site_publish",
	mcp.WithDescription("Materialize the content tree into a static site, export it and record the build."),
	mcp.WithString("output_dir", mcp.Description("Export directory (default: configured output_dir)")),
	mcp.WithDestructiveHintAnnotation(true),
)

var historyToolDef = mcp.NewTool("build_history",
	mcp.WithDescription("List recent publish runs, newest first, or fetch one by id."),
	mcp.WithString("id", mcp.Description("Build id")),
	mcp.WithNumber("limit", mcp.Description("Max builds (default 20, max 100)"), mcp.Min(1), mcp.Max(100)),
	mcp.WithReadOnlyHintAnnotation(true),
)
