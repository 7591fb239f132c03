package content

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/docuverse/internal/errors"
)

type fakeCompleter struct {
	mu        sync.Mutex
	prompts   []string
	responses []string
	err       error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.responses, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func names(t *testing.T, nodes []Node) []string {
	t.Helper()
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func urns(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.URN
	}
	return out
}

const chapterDoc = `Intro before headings

# First chapter

Some intro content

## Section A

## Section B

### Subsection

# Second chapter
`

func TestFromMarkdown_Structure(t *testing.T) {
	ctx := context.Background()
	roots := FromMarkdown(nil, chapterDoc)

	require.Len(t, roots, 3)
	assert.Equal(t, []string{"0", "1", "2"}, urns(roots))
	assert.Equal(t, []string{"", "First chapter", "Second chapter"}, names(t, roots))

	children, err := Collect(roots[1].Children(ctx))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "Section A", "Section B"}, names(t, children))
	assert.Equal(t, []string{"1/0", "1/1", "1/2"}, urns(children))

	grand, err := Collect(children[2].Children(ctx))
	require.NoError(t, err)
	require.Len(t, grand, 1)
	assert.Equal(t, "Subsection", grand[0].Name)
	assert.Equal(t, "1/2/0", grand[0].URN)
}

func TestBlockNode_Attributes(t *testing.T) {
	ctx := context.Background()
	roots := FromMarkdown(nil, "# Title\n\nPlain *text* here\n")
	require.Len(t, roots, 1)

	heading := roots[0]
	require.Len(t, heading.Static, 1)
	assert.Equal(t, Prompt(EmojiPrompt), heading.Static[0])
	attrs, err := Collect(heading.Attributes(ctx))
	require.NoError(t, err)
	assert.Empty(t, attrs)

	children, err := Collect(heading.Children(ctx))
	require.NoError(t, err)
	require.Len(t, children, 1)
	para := children[0]
	assert.False(t, para.IsLeaf())
	require.Len(t, para.Static, 2)
	assert.Equal(t, Documentation("Plain text here"), para.Static[1])

	attrs, err = Collect(para.Attributes(ctx))
	require.NoError(t, err)
	assert.Equal(t, []Attribute{Documentation("Plain text here")}, attrs)
}

func TestBlockNode_CodeDocumentation(t *testing.T) {
	roots := FromMarkdown(nil, "```go\nfmt.Println(1)\n```\n")
	require.Len(t, roots, 1)
	doc, ok := FirstDocumentation(roots[0])
	require.True(t, ok)
	assert.Equal(t, "fmt.Println(1)\n", doc)
}

func TestChildren_ColdReinvocation(t *testing.T) {
	ctx := context.Background()
	root := FromMarkdown(nil, chapterDoc)[1]
	seq := root.Children(ctx)

	first, err := Collect(seq)
	require.NoError(t, err)
	second, err := Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, urns(first), urns(second))
	assert.Equal(t, names(t, first), names(t, second))

	// Attribute sequences are cold too; pulling twice does not accumulate.
	para := first[0]
	a1, err := Collect(para.Attributes(ctx))
	require.NoError(t, err)
	a2, err := Collect(para.Attributes(ctx))
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Len(t, a2, 1)
}

func TestChildren_EarlyBreak(t *testing.T) {
	ctx := context.Background()
	root := FromMarkdown(nil, chapterDoc)[1]

	pulled := 0
	for _, err := range root.Children(ctx) {
		require.NoError(t, err)
		pulled++
		break
	}
	assert.Equal(t, 1, pulled)
}

func TestChildren_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := FromMarkdown(nil, chapterDoc)[1]
	_, err := Collect(root.Children(ctx))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Collect(FromSlice(ctx, []Node{{Name: "a"}}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLeaf(t *testing.T) {
	leaf := Node{Name: "leaf"}
	assert.True(t, leaf.IsLeaf())

	children, err := Collect(leaf.Children(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, children)

	_, ok := leaf.AlternativeChildren(context.Background(), "anything")
	assert.False(t, ok)

	ph := NewPlaceholder("broken", "x")
	assert.True(t, ph.IsLeaf())
	assert.Equal(t, "placeholder", ph.Body.Variant())
}

func TestFromFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "post.md")
	require.NoError(t, os.WriteFile(path, []byte("# One\n\n# Two\n"), 0600))

	n := FromFile(nil, path, String(AttrCategory, "Essays"))
	assert.Equal(t, path, n.Name)
	assert.Equal(t, path, n.URN)
	assert.Equal(t, "Essays", Category(n))

	roots, err := Collect(n.Children(ctx))
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two"}, names(t, roots))
	assert.Equal(t, []string{path + "#0", path + "#1"}, urns(roots))

	// Each range re-reads the file.
	require.NoError(t, os.WriteFile(path, []byte("# Three\n"), 0600))
	roots, err = Collect(n.Children(ctx))
	require.NoError(t, err)
	assert.Equal(t, []string{"Three"}, names(t, roots))
}

func TestFromFile_Unreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.md")
	n := FromFile(nil, path)

	roots, err := Collect(n.Children(context.Background()))
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Unable to read "+path, roots[0].Name)
	assert.Equal(t, path+"#0", roots[0].URN)
	assert.IsType(t, &Placeholder{}, roots[0].Body)
}

func TestElaboration_Children(t *testing.T) {
	ctx := context.Background()
	fc := &fakeCompleter{responses: []string{"# A\n\n# B\n", "# C\n\ntext\n"}}
	env := &Env{Completer: fc}

	parent := ElaborationNode(env, "comment", "c1", "teach me")
	seq := parent.Children(ctx)
	nodes, err := Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names(t, nodes))
	assert.Equal(t, []string{"c1/0", "c1/1", "c1/2"}, urns(nodes))

	grand, err := Collect(nodes[2].Children(ctx))
	require.NoError(t, err)
	require.Len(t, grand, 1)
	assert.Equal(t, "c1/2/0", grand[0].URN)

	// Re-ranging re-runs the completion.
	_, err = Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.calls())
	assert.Equal(t, "teach me", fc.prompts[0])
}

func TestElaboration_FailureBecomesPlaceholder(t *testing.T) {
	fc := &fakeCompleter{err: errors.NewRequestFailed("AI did not return any response", nil)}
	parent := ElaborationNode(&Env{Completer: fc}, "comment", "c1", "p")

	nodes, err := Collect(parent.Children(context.Background()))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Contains(t, nodes[0].Name, "AI did not return any response")
	assert.Equal(t, "c1/0", nodes[0].URN)
}

func TestElaboration_NoCompleter(t *testing.T) {
	parent := ElaborationNode(nil, "comment", "c1", "p")
	nodes, err := Collect(parent.Children(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestAlternativeChildren_TitleSubstitution(t *testing.T) {
	fc := &fakeCompleter{responses: []string{"# Angle\n"}}
	env := &Env{Completer: fc}
	n := FromMarkdown(env, "# Gardening\n")[0]

	seq, ok := n.AlternativeChildren(context.Background(), "Explain $title to a child")
	require.True(t, ok)
	nodes, err := Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, []string{"Angle"}, names(t, nodes))
	assert.Equal(t, []string{"0/0"}, urns(nodes))

	require.Equal(t, 1, fc.calls())
	assert.Contains(t, fc.prompts[0], ElaborationPreamble)
	assert.Contains(t, fc.prompts[0], "Explain Gardening to a child")
	assert.NotContains(t, fc.prompts[0], "$title")
}

type tagBody struct {
	pulled *int
	attrs  []Attribute
}

func (*tagBody) Variant() string { return "test" }

func (b *tagBody) Attributes(_ context.Context, _ Node) iter.Seq2[Attribute, error] {
	return func(yield func(Attribute, error) bool) {
		for _, a := range b.attrs {
			*b.pulled++
			if !yield(a, nil) {
				return
			}
		}
	}
}

func TestTags(t *testing.T) {
	ctx := context.Background()

	t.Run("static list wins", func(t *testing.T) {
		n := Node{Static: []Attribute{StringList(AttrTags, []string{"go"}), JSON(AttrMetadata, `{"tags":["x"]}`)}}
		tags, err := Tags(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, []string{"go"}, tags)
	})

	t.Run("first dynamic list stops the pull", func(t *testing.T) {
		pulled := 0
		body := &tagBody{pulled: &pulled, attrs: []Attribute{
			Documentation("3 hours ago"),
			StringList(AttrTags, []string{"a", "b"}),
			StringList(AttrTags, []string{"never"}),
		}}
		tags, err := Tags(ctx, Node{Body: body})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tags)
		assert.Equal(t, 2, pulled)
	})

	t.Run("metadata fallback", func(t *testing.T) {
		n := Node{Static: []Attribute{JSON(AttrMetadata, `{"title":"t","tags":["x","y"]}`)}}
		tags, err := Tags(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, tags)
	})

	t.Run("none", func(t *testing.T) {
		tags, err := Tags(ctx, Node{Static: []Attribute{JSON(AttrMetadata, `not json`)}})
		require.NoError(t, err)
		assert.Empty(t, tags)
	})
}

func TestStaticHelpers(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := Node{Static: []Attribute{
		Timestamp(AttrCreatedAt, created),
		String(AttrCover, "https://img/x.png"),
	}}

	got, ok := CreatedAt(n)
	require.True(t, ok)
	assert.Equal(t, created, got)

	cover, ok := StaticString(n, AttrCover)
	require.True(t, ok)
	assert.Equal(t, "https://img/x.png", cover)

	assert.Equal(t, DefaultCategory, Category(n))

	_, ok = CreatedAt(Node{})
	assert.False(t, ok)
}

func TestTraverse(t *testing.T) {
	ctx := context.Background()
	root := CollectionNode("Outline", FromMarkdown(nil, chapterDoc))

	n, err := Traverse(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, "Outline", n.Name)

	n, err = Traverse(ctx, root, []int{1, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, "Subsection", n.Name)

	_, err = Traverse(ctx, root, []int{1, 7})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = Traverse(ctx, Node{Name: "leaf"}, []int{0})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"/", nil, false},
		{"0", []int{0}, false},
		{"1/2/0", []int{1, 2, 0}, false},
		{"/3/", []int{3}, false},
		{"a/1", nil, true},
		{"-1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePath(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "machine-learning", NormalizeTag("  Machine   Learning "))
	assert.Equal(t, "swift", NormalizeTag("Swift"))
	assert.Equal(t, "", NormalizeTag("   "))
}

func TestAttribute_MarshalJSON(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	attrs := []Attribute{
		Timestamp(AttrCreatedAt, created),
		JSON(AttrMetadata, `{"title":"t"}`),
		JSON("broken", `{oops`),
		StringList(AttrTags, []string{"a"}),
		Prompt(EmojiPrompt),
	}
	data, err := json.Marshal(attrs)
	require.NoError(t, err)

	want := fmt.Sprintf(`[{"name":"createdAt","kind":"timestamp","value":"%s"},`+
		`{"name":"GPT","kind":"json","value":{"title":"t"}},`+
		`{"name":"broken","kind":"json","value":"{oops"},`+
		`{"name":"tags","kind":"list","value":[{"kind":"string","value":"a"}]},`+
		`{"kind":"prompt","value":"%s"}]`, "2024-05-01T12:00:00Z", EmojiPrompt)
	assert.JSONEq(t, want, string(data))
}
