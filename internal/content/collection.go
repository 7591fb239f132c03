package content

import (
	"context"
	"iter"
)

// Collection is a fixed list of children.
type Collection struct {
	Nodes []Node
}

func (*Collection) Variant() string { return "collection" }

// Children implements Expander.
func (c *Collection) Children(ctx context.Context, _ Node) iter.Seq2[Node, error] {
	return FromSlice(ctx, c.Nodes)
}

// CollectionNode returns a node whose children are nodes.
func CollectionNode(name string, nodes []Node, static ...Attribute) Node {
	return Node{Name: name, URN: name, Static: static, Body: &Collection{Nodes: nodes}}
}

// Placeholder marks a diagnostic leaf standing in for content that could not
// be produced.
type Placeholder struct {
	Message string
}

func (*Placeholder) Variant() string { return "placeholder" }

// NewPlaceholder returns a diagnostic leaf node.
func NewPlaceholder(message, urn string) Node {
	return Node{Name: message, URN: urn, Body: &Placeholder{Message: message}}
}
