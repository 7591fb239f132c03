package ops

import (
	"context"
	"iter"
	"slices"

	"github.com/hpungsan/docuverse/internal/content"
)

// NodeView is the serializable view of a content node.
type NodeView struct {
	Index      *int                `json:"index,omitempty"`
	Name       string              `json:"name,omitempty"`
	URN        string              `json:"urn"`
	Variant    string              `json:"variant"`
	Leaf       bool                `json:"leaf"`
	Redirect   bool                `json:"redirect"`
	Attributes []content.Attribute `json:"attributes,omitempty"`
}

// BrowseInput contains parameters for the Browse operation.
type BrowseInput struct {
	Source Source
	Path   string // child indices from the root, e.g. "0/2"; empty is the root
	Limit  int    // max children listed; default 100, max 1000
}

// BrowseOutput contains the result of the Browse operation.
type BrowseOutput struct {
	Node     NodeView   `json:"node"`
	Children []NodeView `json:"children"`
	HasMore  bool       `json:"has_more"`
}

// Browse returns the node at Path with all of its attributes, and its
// children with their static attributes.
func Browse(ctx context.Context, deps *Deps, input BrowseInput) (*BrowseOutput, error) {
	path, err := content.ParsePath(input.Path)
	if err != nil {
		return nil, err
	}
	root, err := Root(ctx, deps, input.Source)
	if err != nil {
		return nil, err
	}
	n, err := content.Traverse(ctx, root, path)
	if err != nil {
		return nil, err
	}

	view, err := describe(ctx, n)
	if err != nil {
		return nil, err
	}
	children, hasMore, err := listChildren(n.Children(ctx), clampLimit(input.Limit))
	if err != nil {
		return nil, err
	}
	return &BrowseOutput{Node: view, Children: children, HasMore: hasMore}, nil
}

// describe views n with its static and on-demand attributes.
func describe(ctx context.Context, n content.Node) (NodeView, error) {
	v := staticView(n)
	dynamic, err := content.Collect(n.Attributes(ctx))
	if err != nil {
		return NodeView{}, err
	}
	v.Attributes = slices.Concat(v.Attributes, dynamic)
	return v, nil
}

func staticView(n content.Node) NodeView {
	_, redirect := n.Body.(content.Redirector)
	v := NodeView{
		Name:       n.Name,
		URN:        n.URN,
		Leaf:       n.IsLeaf(),
		Redirect:   redirect,
		Attributes: n.Static,
	}
	if n.Body != nil {
		v.Variant = n.Body.Variant()
	}
	return v
}

// listChildren pulls at most limit children, plus one to detect more.
func listChildren(seq iter.Seq2[content.Node, error], limit int) ([]NodeView, bool, error) {
	views := []NodeView{}
	for c, err := range seq {
		if err != nil {
			return nil, false, err
		}
		if len(views) == limit {
			return views, true, nil
		}
		i := len(views)
		v := staticView(c)
		v.Index = &i
		views = append(views, v)
	}
	return views, false, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultChildrenLimit
	}
	return min(limit, MaxChildrenLimit)
}
