package feed

import (
	"context"
	"encoding/json"
	"iter"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/parallel"
)

// RootName is the name of a timeline root node.
const RootName = "FreeFeed"

// Options controls how posts expand.
type Options struct {
	// Prompt names the elaboration template for comments.
	Prompt string
	// MaxParallel bounds the per-post metadata fan-out. 0 means unbounded.
	MaxParallel int
}

// PostBody is a post with its resolved metadata.
type PostBody struct {
	Post     Post
	Timeline *Timeline
	Metadata []Metadata
	Env      *content.Env
	Options  Options
}

func (*PostBody) Variant() string { return "post" }

// Children implements content.Expander: the post's attachments, then its
// comments, in post order.
func (b *PostBody) Children(ctx context.Context, parent content.Node) iter.Seq2[content.Node, error] {
	return func(yield func(content.Node, error) bool) {
		for _, id := range b.Post.Attachments {
			if err := ctx.Err(); err != nil {
				yield(content.Node{}, err)
				return
			}
			a, ok := b.Timeline.FindAttachment(id)
			if !ok {
				continue
			}
			n := content.Node{
				Name:   a.URL,
				URN:    a.ID,
				Static: []content.Attribute{content.String(content.AttrCover, a.URL)},
				Body:   &AttachmentBody{Attachment: a, Env: b.Env},
			}
			if !yield(n, nil) {
				return
			}
		}
		for _, id := range b.Post.Comments {
			if err := ctx.Err(); err != nil {
				yield(content.Node{}, err)
				return
			}
			c, ok := b.Timeline.FindComment(id)
			if !ok {
				continue
			}
			n := content.Node{
				Name: c.Body,
				URN:  c.ID,
				Body: &CommentBody{Comment: c, Env: b.Env, Prompt: b.Options.Prompt},
			}
			if !yield(n, nil) {
				return
			}
		}
	}
}

// Attributes implements content.Describer: the relative creation time, the
// augmentation, and the tags of every metadata record.
func (b *PostBody) Attributes(ctx context.Context, _ content.Node) iter.Seq2[content.Attribute, error] {
	return func(yield func(content.Attribute, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(content.Attribute{}, err)
			return
		}
		var ago string
		if created, ok := b.Post.Created(); ok {
			ago = humanize.Time(created)
			if !yield(content.Documentation(ago), nil) {
				return
			}
		}
		if !yield(content.Documentation(ago+"\n"+b.augmentation()), nil) {
			return
		}

		tags := []string{}
		for _, m := range b.Metadata {
			tags = append(tags, m.Tags...)
		}
		yield(content.StringList(content.AttrTags, tags), nil)
	}
}

func (b *PostBody) augmentation() string {
	if len(b.Metadata) == 0 {
		return "No augmentation"
	}
	lines := make([]string, 0, len(b.Metadata))
	for _, m := range b.Metadata {
		data, err := json.Marshal(m)
		if err != nil {
			continue
		}
		lines = append(lines, string(data))
	}
	return strings.Join(lines, "\n")
}

// AlternativeChildren implements content.Redirector.
func (b *PostBody) AlternativeChildren(ctx context.Context, n content.Node, directive string) iter.Seq2[content.Node, error] {
	return content.RedirectChildren(ctx, b.Env, n, directive)
}

// CommentBody is a comment that expands into an AI elaboration of its text.
type CommentBody struct {
	Comment Comment
	Env     *content.Env
	Prompt  string
}

func (*CommentBody) Variant() string { return "comment" }

// Children implements content.Expander. The configured template is applied
// to the comment body; an unknown template name falls back to the default.
func (b *CommentBody) Children(ctx context.Context, parent content.Node) iter.Seq2[content.Node, error] {
	prompt, err := Prompt(b.Prompt, b.Comment.Body)
	if err != nil {
		prompt, _ = Prompt(DefaultPrompt, b.Comment.Body)
	}
	e := &content.Elaboration{Env: b.Env, Prompt: prompt}
	return e.Children(ctx, parent)
}

// AlternativeChildren implements content.Redirector.
func (b *CommentBody) AlternativeChildren(ctx context.Context, n content.Node, directive string) iter.Seq2[content.Node, error] {
	return content.RedirectChildren(ctx, b.Env, n, directive)
}

// AttachmentBody is an attached file. It has no children of its own but can
// be elaborated on request.
type AttachmentBody struct {
	Attachment Attachment
	Env        *content.Env
}

func (*AttachmentBody) Variant() string { return "attachment" }

// AlternativeChildren implements content.Redirector.
func (b *AttachmentBody) AlternativeChildren(ctx context.Context, n content.Node, directive string) iter.Seq2[content.Node, error] {
	return content.RedirectChildren(ctx, b.Env, n, directive)
}

// PostNode builds the node for p. Metadata comes from the AI; when that fails
// the node is still built, carrying a placeholder record.
func PostNode(ctx context.Context, env *content.Env, p Post, tl *Timeline, opts Options) content.Node {
	var meta []Metadata
	if env != nil && env.Completer != nil {
		m, err := FetchMetadata(ctx, env.Completer, p, tl)
		if err != nil {
			env.Log().Warn("metadata fetch failed", "post", p.ID, "error", err)
			m = []Metadata{{Title: "Unable to fetch metadata: " + err.Error()}}
		}
		meta = m
	}

	var static []content.Attribute
	if created, ok := p.Created(); ok {
		static = append(static, content.Timestamp(content.AttrCreatedAt, created))
	}
	if len(meta) > 0 {
		if data, err := json.Marshal(meta[0]); err == nil {
			static = append(static, content.JSON(content.AttrMetadata, string(data)))
		}
	}
	if p.Category != "" {
		static = append(static, content.String(content.AttrCategory, p.Category))
	}
	if p.Cover != "" {
		static = append(static, content.String(content.AttrCover, p.Cover))
	}

	return content.Node{
		Name:   p.Body,
		URN:    p.ID,
		Static: static,
		Body:   &PostBody{Post: p, Timeline: tl, Metadata: meta, Env: env, Options: opts},
	}
}

// TimelineBody is a user's timeline page. Expanding it fetches the page and
// builds every post concurrently; posts keep timeline order.
type TimelineBody struct {
	API      *API
	Username string
	Offset   int
	Env      *content.Env
	Options  Options
}

func (*TimelineBody) Variant() string { return "timeline" }

// Children implements content.Expander.
func (b *TimelineBody) Children(ctx context.Context, _ content.Node) iter.Seq2[content.Node, error] {
	return func(yield func(content.Node, error) bool) {
		tl, err := b.API.Timeline(ctx, b.Username, b.Offset)
		if err != nil {
			yield(content.Node{}, err)
			return
		}
		nodes, err := parallel.Map(ctx, tl.Posts, b.Options.MaxParallel, func(ctx context.Context, p Post) (content.Node, error) {
			return PostNode(ctx, b.Env, p, tl, b.Options), nil
		})
		if err != nil {
			yield(content.Node{}, err)
			return
		}
		for n, err := range content.FromSlice(ctx, nodes) {
			if !yield(n, err) || err != nil {
				return
			}
		}
	}
}

// TimelineNode returns the root node for username's timeline page at offset.
func TimelineNode(api *API, env *content.Env, username string, offset int, opts Options) content.Node {
	return content.Node{
		Name: RootName,
		URN:  RootName + "/" + username,
		Body: &TimelineBody{API: api, Username: username, Offset: offset, Env: env, Options: opts},
	}
}

// PostRoot returns a root node whose only child is the post pt.
func PostRoot(ctx context.Context, env *content.Env, pt *PostTimeline, opts Options) content.Node {
	post := PostNode(ctx, env, pt.Posts, pt.Timeline(), opts)
	return content.CollectionNode(RootName, []content.Node{post})
}
