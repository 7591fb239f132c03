package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
)

// ElaborateInput contains parameters for the Elaborate operation.
type ElaborateInput struct {
	Source    Source
	Path      string // child indices from the root; empty is the root
	Directive string // required; "$title" is replaced with the node's name
	Limit     int
}

// ElaborateOutput contains the result of the Elaborate operation.
type ElaborateOutput struct {
	Node     NodeView   `json:"node"`
	Children []NodeView `json:"children"`
	HasMore  bool       `json:"has_more"`
}

// Elaborate expands the node at Path along the directive instead of its
// regular children. Only nodes whose body supports redirection qualify.
func Elaborate(ctx context.Context, deps *Deps, input ElaborateInput) (*ElaborateOutput, error) {
	directive := strings.TrimSpace(input.Directive)
	if directive == "" {
		return nil, errors.NewInvalidRequest("directive is required")
	}
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

	seq, ok := n.AlternativeChildren(ctx, directive)
	if !ok {
		variant := "leaf"
		if n.Body != nil {
			variant = n.Body.Variant()
		}
		return nil, errors.NewInvalidRequest("node " + n.URN + " (" + variant + ") cannot be elaborated")
	}
	children, hasMore, err := listChildren(seq, clampLimit(input.Limit))
	if err != nil {
		return nil, err
	}
	return &ElaborateOutput{Node: staticView(n), Children: children, HasMore: hasMore}, nil
}
