package content

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/hpungsan/docuverse/internal/markdown"
	"github.com/hpungsan/docuverse/internal/outline"
)

// EmojiPrompt is the prompt directive attached to every markdown block.
const EmojiPrompt = "Summarize this into emojis"

// Block is a node of a markdown outline.
type Block struct {
	Tree *outline.Tree[markdown.Block]
	Env  *Env
}

func (*Block) Variant() string { return "block" }

// Children implements Expander. Child URNs are "<parent>/<index>".
func (b *Block) Children(ctx context.Context, parent Node) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		for i, child := range b.Tree.Children {
			if err := ctx.Err(); err != nil {
				yield(Node{}, err)
				return
			}
			if !yield(BlockNode(b.Env, child, childURN(parent.URN, i)), nil) {
				return
			}
		}
	}
}

// Attributes implements Describer: the block's documentation, if any.
func (b *Block) Attributes(ctx context.Context, _ Node) iter.Seq2[Attribute, error] {
	return func(yield func(Attribute, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Attribute{}, err)
			return
		}
		if doc, ok := blockDoc(b.Tree.Element); ok {
			yield(doc, nil)
		}
	}
}

// AlternativeChildren implements Redirector through AI elaboration.
func (b *Block) AlternativeChildren(ctx context.Context, n Node, directive string) iter.Seq2[Node, error] {
	return RedirectChildren(ctx, b.Env, n, directive)
}

// blockDoc derives the documentation attribute of a block. Headings carry
// none; their text is the node name.
func blockDoc(el markdown.Block) (Attribute, bool) {
	switch el.Kind {
	case markdown.KindHeading:
		return Attribute{}, false
	case markdown.KindParagraph, markdown.KindListItem, markdown.KindCode:
		return Documentation(el.Text), true
	default:
		return Documentation(el.Source), true
	}
}

// BlockNode converts an outline tree node to a content Node.
func BlockNode(env *Env, t *outline.Tree[markdown.Block], urn string) Node {
	var name string
	if t.Element.Kind == markdown.KindHeading {
		name = t.Name
	}
	static := []Attribute{Prompt(EmojiPrompt)}
	if doc, ok := blockDoc(t.Element); ok {
		static = append(static, doc)
	}
	return Node{Name: name, URN: urn, Static: static, Body: &Block{Tree: t, Env: env}}
}

// FromMarkdown parses md into one node per outline root, with positional URNs.
func FromMarkdown(env *Env, md string) []Node {
	forest := markdown.Build([]byte(md))
	nodes := make([]Node, len(forest))
	for i, t := range forest {
		nodes[i] = BlockNode(env, t, strconv.Itoa(i))
	}
	return nodes
}

func childURN(parent string, i int) string {
	if parent == "" {
		return strconv.Itoa(i)
	}
	return fmt.Sprintf("%s/%d", parent, i)
}
