// Package render is the site delegate that turns page nodes into index
// entries.
package render

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/feed"
	"github.com/hpungsan/docuverse/internal/markdown"
	"github.com/hpungsan/docuverse/internal/site"
)

//go:embed templates/item.html
var templateFS embed.FS

var itemTmpl = template.Must(template.ParseFS(templateFS, "templates/item.html"))

// NoSummary is the group summary used when the AI has none.
const NoSummary = site.NoSummary

// SummaryPrompt prefixes the bullet list of names sent for a group summary.
const SummaryPrompt = "Summarize the following bullet items into one line (make sure the summary is in English and has emojis):"

// Generator renders items from their AI metadata.
type Generator struct {
	Completer content.Completer
	// Now anchors relative times. Defaults to time.Now.
	Now func() time.Time
}

var _ site.Delegate = (*Generator)(nil)

type image struct {
	URL   string
	Video bool
}

type itemData struct {
	Interesting int
	Pinned      bool
	Images      []image
	NoSummary   bool
	Href        string
	Title       string
	Ago         string
	Summary     template.HTML
	Name        string
	Tags        []string
}

// RenderItem renders one index entry: cover, linked title, relative time,
// summary and tags.
func (g *Generator) RenderItem(_ context.Context, item site.Item) (string, error) {
	n := item.Node
	var meta feed.Metadata
	if doc, ok := content.StaticJSON(n, content.AttrMetadata); ok {
		if m, err := feed.DecodeMetadata(doc); err == nil {
			meta = m
		}
	}

	data := itemData{
		Interesting: -1,
		Href:        item.Href,
		Title:       meta.Title,
		Name:        n.Name,
		Tags:        meta.Tags,
		NoSummary:   meta.Summary == "",
	}
	if data.Title == "" {
		data.Title = "no-title"
	}
	if meta.Quality != nil {
		data.Interesting = int(*meta.Quality)
	}
	if meta.Pinned != nil {
		data.Pinned = *meta.Pinned
	}
	if cover, ok := content.StaticString(n, content.AttrCover); ok {
		data.Images = append(data.Images, image{URL: cover, Video: strings.Contains(cover, "youtube")})
	}
	if created, ok := content.CreatedAt(n); ok {
		data.Ago = humanize.RelTime(created, g.now(), "ago", "from now")
	}

	summary := "no-summary"
	if meta.Summary != "" {
		summary = meta.Summary
	}
	html, err := markdown.ToHTML(summary)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	data.Summary = template.HTML(html)

	var buf bytes.Buffer
	if err := itemTmpl.Execute(&buf, data); err != nil {
		return "", errors.NewInternal(err)
	}
	return buf.String(), nil
}

// SummarizeGroup asks the AI for a one-line summary of the members' names.
func (g *Generator) SummarizeGroup(ctx context.Context, nodes []content.Node) (string, error) {
	if g.Completer == nil {
		return NoSummary, nil
	}
	responses, err := g.Completer.Complete(ctx, GroupPrompt(nodes))
	if err != nil {
		return "", err
	}
	if len(responses) == 0 || strings.TrimSpace(responses[0]) == "" {
		return NoSummary, nil
	}
	return responses[0], nil
}

// GroupPrompt lists every node name as a bullet under SummaryPrompt.
func GroupPrompt(nodes []content.Node) string {
	var b strings.Builder
	b.WriteString(SummaryPrompt)
	b.WriteString("\n\n")
	for i, n := range nodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("* ")
		b.WriteString(n.Name)
	}
	return b.String()
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}
