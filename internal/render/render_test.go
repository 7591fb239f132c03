package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/site"
)

type stubCompleter struct {
	prompts   []string
	responses []string
	err       error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) ([]string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.responses, s.err
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRenderItem_WithMetadata(t *testing.T) {
	g := &Generator{Now: func() time.Time { return now }}
	n := content.Node{
		Name: "Original post body",
		URN:  "p1",
		Static: []content.Attribute{
			content.Timestamp(content.AttrCreatedAt, now.Add(-3*time.Hour)),
			content.JSON(content.AttrMetadata, `{"title":"Hello <World>","summary":"Key points:\n\n* one\n* two","tags":["go","tools"],"quality":720,"pinned":true}`),
			content.String(content.AttrCover, "https://img.test/cover.png"),
		},
	}

	html, err := g.RenderItem(context.Background(), site.Item{Node: n, Href: "abc.html"})
	require.NoError(t, err)

	assert.Contains(t, html, "class='item nima interesting-720 pinned'")
	assert.Contains(t, html, `<img src="https://img.test/cover.png"`)
	assert.Contains(t, html, `<a href="abc.html">Hello &lt;World&gt;</a>`)
	assert.Contains(t, html, "<footnote>3 hours ago</footnote>")
	assert.Contains(t, html, "<li>one</li>")
	assert.Contains(t, html, `<span class=tag>go</span> <span class=tag>tools</span>`)
	assert.Contains(t, html, "<p style='display:none'>Original post body</p>")
	assert.NotContains(t, html, "no-summary")
}

func TestRenderItem_WithoutMetadata(t *testing.T) {
	g := &Generator{Now: func() time.Time { return now }}
	n := content.Node{Name: "/notes/a.md", Static: []content.Attribute{content.String(content.AttrCover, "https://www.youtube.com/embed/xyz")}}

	html, err := g.RenderItem(context.Background(), site.Item{Node: n})
	require.NoError(t, err)

	assert.Contains(t, html, "interesting--1")
	assert.NotContains(t, html, "pinned")
	assert.Contains(t, html, "<iframe")
	assert.Contains(t, html, `src="https://www.youtube.com/embed/xyz"`)
	assert.Contains(t, html, "<b>no-title</b>")
	assert.Contains(t, html, "class='no-summary'")
	assert.Contains(t, html, "<footnote></footnote>")
}

func TestRenderItem_UndecodableMetadata(t *testing.T) {
	g := &Generator{}
	n := content.Node{Static: []content.Attribute{content.JSON(content.AttrMetadata, `{"title": 7}`)}}
	html, err := g.RenderItem(context.Background(), site.Item{Node: n})
	require.NoError(t, err)
	assert.Contains(t, html, "no-title")
}

func TestSummarizeGroup(t *testing.T) {
	sc := &stubCompleter{responses: []string{"🌱 Gardening notes", "ignored"}}
	g := &Generator{Completer: sc}

	got, err := g.SummarizeGroup(context.Background(), []content.Node{{Name: "Soil"}, {Name: "Seeds"}})
	require.NoError(t, err)
	assert.Equal(t, "🌱 Gardening notes", got)

	require.Len(t, sc.prompts, 1)
	assert.True(t, strings.HasPrefix(sc.prompts[0], SummaryPrompt))
	assert.True(t, strings.HasSuffix(sc.prompts[0], "\n\n* Soil\n* Seeds"))
}

func TestSummarizeGroup_Fallbacks(t *testing.T) {
	got, err := (&Generator{}).SummarizeGroup(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NoSummary, got)

	got, err = (&Generator{Completer: &stubCompleter{}}).SummarizeGroup(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NoSummary, got)

	got, err = (&Generator{Completer: &stubCompleter{responses: []string{"  "}}}).SummarizeGroup(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NoSummary, got)

	// Failures are reported; the materializer shows site.NoSummary for them.
	_, err = (&Generator{Completer: &stubCompleter{err: errors.NewRequestFailed("AI did not return any response", nil)}}).SummarizeGroup(context.Background(), nil)
	assert.True(t, errors.Is(err, errors.ErrRequestFailed))
	assert.Equal(t, site.NoSummary, NoSummary)
}
