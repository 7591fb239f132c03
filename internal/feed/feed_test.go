package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/docuverse/internal/ai"
	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/fetch"
)

type fakeGetter struct {
	mu     sync.Mutex
	bodies map[string]string
	cached []string
	fresh  []string
}

func (g *fakeGetter) lookup(url string) ([]byte, error) {
	body, ok := g.bodies[url]
	if !ok {
		return nil, errors.NewRequestFailed("GET "+url+" returned status 404", nil)
	}
	return []byte(body), nil
}

func (g *fakeGetter) Get(_ context.Context, url string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cached = append(g.cached, url)
	return g.lookup(url)
}

func (g *fakeGetter) GetFresh(_ context.Context, url string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fresh = append(g.fresh, url)
	return g.lookup(url)
}

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) ([]string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) ([]string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(prompt)
}

const timelineJSON = `{
  "posts": [
    {"id": "p1", "createdAt": "1714564800000", "updatedAt": "1714564800000", "body": "First post",
     "createdBy": "u1", "comments": ["c1", "c2", "gone"], "attachments": ["a1"], "category": "Notes"},
    {"id": "p2", "createdAt": "not a number", "updatedAt": "1", "body": "Second post",
     "createdBy": "u1", "comments": []}
  ],
  "comments": [
    {"id": "c1", "seqNumber": 1, "body": "Nice", "createdBy": "u2"},
    {"id": "c2", "seqNumber": 2, "body": "Hola mundo", "createdBy": "u1"}
  ],
  "attachments": [
    {"id": "a1", "fileName": "cat.png", "url": "https://media/cat.png"}
  ]
}`

func TestAPI_Timeline(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{
		"https://feed.test/v2/timelines/alice?offset=30&maxComments=all": timelineJSON,
	}}
	api := NewAPI("https://feed.test/v2/", g)

	tl, err := api.Timeline(context.Background(), "alice", 30)
	require.NoError(t, err)
	require.Len(t, tl.Posts, 2)
	assert.Equal(t, []string{"c1", "c2", "gone"}, tl.Posts[0].Comments)
	assert.Len(t, g.fresh, 1, "timelines bypass the cache")
	assert.Empty(t, g.cached)

	c, ok := tl.FindComment("c2")
	require.True(t, ok)
	assert.Equal(t, "Hola mundo", c.Body)
	_, ok = tl.FindComment("gone")
	assert.False(t, ok)
}

func TestAPI_DecodeFailure(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{
		DefaultBaseURL + "/timelines/bob?offset=0&maxComments=all": `{"posts": 7}`,
		DefaultBaseURL + "/users/bob": `[]`,
	}}
	api := NewAPI("", g)

	_, err := api.Timeline(context.Background(), "bob", 0)
	assert.True(t, errors.Is(err, errors.ErrDecodeFailed))

	_, err = api.User(context.Background(), "bob")
	assert.True(t, errors.Is(err, errors.ErrDecodeFailed))
}

func TestAPI_PostAndUser(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{
		"https://feed.test/posts/p9?maxComments=all&updatedAt=42": `{"posts": {"id": "p9", "body": "Solo", "comments": ["c9"]},
			"comments": [{"id": "c9", "body": "reply"}], "attachments": []}`,
		"https://feed.test/users/alice": `{"id": "u1", "username": "alice", "screenName": "Alice"}`,
	}}
	api := NewAPI("https://feed.test", g)

	pt, err := api.Post(context.Background(), "p9", "42")
	require.NoError(t, err)
	assert.Equal(t, "Solo", pt.Posts.Body)
	tl := pt.Timeline()
	require.Len(t, tl.Posts, 1)
	_, ok := tl.FindComment("c9")
	assert.True(t, ok)

	u, err := api.User(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.ScreenName)
	assert.Len(t, g.cached, 2)
}

func TestAPI_ThroughFetchClient(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Authentication-Token")
		assert.Equal(t, "/v2/timelines/alice", r.URL.Path)
		fmt.Fprint(w, timelineJSON)
	}))
	defer srv.Close()

	client := fetch.NewClient(&fetch.Env{HTTP: srv.Client(), Token: "secret"})
	tl, err := NewAPI(srv.URL+"/v2", client).Timeline(context.Background(), "alice", 0)
	require.NoError(t, err)
	assert.Len(t, tl.Posts, 2)
	assert.Equal(t, "secret", gotToken)

	noToken := fetch.NewClient(&fetch.Env{HTTP: srv.Client()})
	_, err = NewAPI(srv.URL+"/v2", noToken).Timeline(context.Background(), "alice", 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"title":"a"}`, `{"title":"a"}`},
		{"json fence", "```json\n{\"title\":\"a\"}\n```", `{"title":"a"}`},
		{"bare fence with padding", "\n```\n{}\n```\n\n", `{}`},
		{"unterminated", "```json\n{}", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFence(tt.in))
		})
	}
}

func TestFetchMetadata(t *testing.T) {
	tl := mustTimeline(t)
	fc := &fakeCompleter{respond: func(string) ([]string, error) {
		return []string{"```json\n{\"title\":\"Hello\",\"tags\":[\"go\"],\"quality\":720,\"pinned\":true}\n```", "oops"}, nil
	}}

	meta, err := FetchMetadata(context.Background(), fc, tl.Posts[0], tl)
	require.NoError(t, err)
	require.Len(t, meta, 2)
	assert.Equal(t, "Hello", meta[0].Title)
	assert.Equal(t, []string{"go"}, meta[0].Tags)
	require.NotNil(t, meta[0].Quality)
	assert.InDelta(t, 720, *meta[0].Quality, 0.001)
	require.NotNil(t, meta[0].Pinned)
	assert.True(t, *meta[0].Pinned)
	assert.Equal(t, "Unable to decode oops", meta[1].Title)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "First post")
	assert.Contains(t, fc.prompts[0], "Nice\n\nHola mundo")
}

func mustTimeline(t *testing.T) *Timeline {
	t.Helper()
	g := &fakeGetter{bodies: map[string]string{DefaultBaseURL + "/timelines/a?offset=0&maxComments=all": timelineJSON}}
	tl, err := NewAPI("", g).Timeline(context.Background(), "a", 0)
	require.NoError(t, err)
	return tl
}

func TestPostNode(t *testing.T) {
	ctx := context.Background()
	tl := mustTimeline(t)
	fc := &fakeCompleter{respond: func(string) ([]string, error) {
		return []string{`{"title":"Hello","tags":["go","tools"]}`}, nil
	}}
	env := &content.Env{Completer: fc}

	n := PostNode(ctx, env, tl.Posts[0], tl, Options{})
	assert.Equal(t, "First post", n.Name)
	assert.Equal(t, "p1", n.URN)
	assert.Equal(t, "Notes", content.Category(n))

	created, ok := content.CreatedAt(n)
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(1714564800000).UTC(), created)

	doc, ok := content.StaticJSON(n, content.AttrMetadata)
	require.True(t, ok)
	meta, err := DecodeMetadata(doc)
	require.NoError(t, err)
	assert.Equal(t, "Hello", meta.Title)

	children, err := content.Collect(n.Children(ctx))
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, []string{"a1", "c1", "c2"}, []string{children[0].URN, children[1].URN, children[2].URN})
	assert.Equal(t, "https://media/cat.png", children[0].Name)
	assert.True(t, children[0].IsLeaf())
	_, ok = children[0].AlternativeChildren(ctx, "describe")
	assert.True(t, ok)

	attrs, err := content.Collect(n.Attributes(ctx))
	require.NoError(t, err)
	require.Len(t, attrs, 3)
	assert.True(t, strings.HasSuffix(attrs[0].Text, "ago"), "got %q", attrs[0].Text)
	assert.Contains(t, attrs[1].Text, `"title":"Hello"`)
	assert.Equal(t, []string{"go", "tools"}, attrs[2].Strings())

	tags, err := content.Tags(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "tools"}, tags)
}

func TestPostNode_WithoutTimestampOrAI(t *testing.T) {
	ctx := context.Background()
	tl := mustTimeline(t)

	n := PostNode(ctx, nil, tl.Posts[1], tl, Options{})
	_, ok := content.CreatedAt(n)
	assert.False(t, ok)
	_, ok = content.StaticJSON(n, content.AttrMetadata)
	assert.False(t, ok)
	assert.Equal(t, content.DefaultCategory, content.Category(n))

	attrs, err := content.Collect(n.Attributes(ctx))
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "\nNo augmentation", attrs[0].Text)
	assert.Empty(t, attrs[1].Strings())
}

func TestPostNode_EmptyCompletionKeepsNode(t *testing.T) {
	ctx := context.Background()
	tl := mustTimeline(t)

	// Zero candidates fail the completion key; the post still gets built.
	client := fetch.NewClient(&fetch.Env{Generator: &ai.Static{}})
	env := &content.Env{Completer: client}

	n := PostNode(ctx, env, tl.Posts[0], tl, Options{})
	assert.Equal(t, "p1", n.URN)

	doc, ok := content.StaticJSON(n, content.AttrMetadata)
	require.True(t, ok)
	meta, err := DecodeMetadata(doc)
	require.NoError(t, err)
	assert.Contains(t, meta.Title, "AI did not return any response")

	children, err := content.Collect(n.Children(ctx))
	require.NoError(t, err)
	assert.Len(t, children, 3)
}

func TestCommentBody_Elaborates(t *testing.T) {
	ctx := context.Background()
	fc := &fakeCompleter{respond: func(string) ([]string, error) {
		return []string{"# Question one\n\nWhy?\n\n# Question two\n"}, nil
	}}
	env := &content.Env{Completer: fc}
	n := content.Node{Name: "Hola mundo", URN: "c2", Body: &CommentBody{Comment: Comment{ID: "c2", Body: "Hola mundo"}, Env: env, Prompt: "spanish"}}

	children, err := content.Collect(n.Children(ctx))
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Question one", children[0].Name)
	assert.Equal(t, "c2/0", children[0].URN)
	assert.Equal(t, "c2/1", children[1].URN)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "teach me basic Spanish")
	assert.Contains(t, fc.prompts[0], "```\nHola mundo\n```")

	seq, ok := n.AlternativeChildren(ctx, "Argue against $title")
	require.True(t, ok)
	_, err = content.Collect(seq)
	require.NoError(t, err)
	assert.Contains(t, fc.prompts[1], "Argue against Hola mundo")
}

func TestCommentBody_UnknownPromptFallsBack(t *testing.T) {
	fc := &fakeCompleter{respond: func(string) ([]string, error) { return nil, nil }}
	n := content.Node{URN: "c1", Body: &CommentBody{Comment: Comment{Body: "x"}, Env: &content.Env{Completer: fc}, Prompt: "klingon"}}

	_, err := content.Collect(n.Children(context.Background()))
	require.NoError(t, err)
	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "AI should challenge, not obey")
}

func TestTimelineNode(t *testing.T) {
	ctx := context.Background()
	g := &fakeGetter{bodies: map[string]string{DefaultBaseURL + "/timelines/alice?offset=0&maxComments=all": timelineJSON}}
	fc := &fakeCompleter{respond: func(prompt string) ([]string, error) {
		// Slow down the first post so completion order differs from post order.
		if strings.Contains(prompt, "First post") {
			time.Sleep(20 * time.Millisecond)
		}
		return []string{`{"title":"t"}`}, nil
	}}
	root := TimelineNode(NewAPI("", g), &content.Env{Completer: fc}, "alice", 0, Options{MaxParallel: 2})

	posts, err := content.Collect(root.Children(ctx))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p1", posts[0].URN)
	assert.Equal(t, "p2", posts[1].URN)

	// Cold: ranging again refetches.
	_, err = content.Collect(root.Children(ctx))
	require.NoError(t, err)
	assert.Len(t, g.fresh, 2)
}

func TestTimelineNode_FetchErrorPropagates(t *testing.T) {
	root := TimelineNode(NewAPI("", &fakeGetter{}), nil, "nobody", 0, Options{})
	_, err := content.Collect(root.Children(context.Background()))
	assert.True(t, errors.Is(err, errors.ErrRequestFailed))
}

func TestPrompt(t *testing.T) {
	assert.Equal(t, []string{"farsi", "interview", "socratic", "spanish", "toki-pona"}, PromptNames())

	p, err := Prompt("", "body")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, content.ElaborationPreamble))

	p, err = Prompt("interview", "body")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "Give interview question prompts"))
	assert.Contains(t, p, "Format your response in Markdown.")

	_, err = Prompt("klingon", "body")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
