package ops

import (
	"os"

	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/markdown"
	"github.com/hpungsan/docuverse/internal/outline"
)

// OutlineInput contains parameters for the Outline operation.
// Exactly one of Path and Text must be set.
type OutlineInput struct {
	Path string
	Text string
}

// OutlineNode is one element of a parsed outline.
type OutlineNode struct {
	Name     string         `json:"name,omitempty"`
	Kind     string         `json:"kind"`
	Level    int            `json:"level,omitempty"`
	Text     string         `json:"text,omitempty"`
	Language string         `json:"language,omitempty"`
	Children []*OutlineNode `json:"children,omitempty"`
}

// OutlineOutput contains the result of the Outline operation.
type OutlineOutput struct {
	Roots []*OutlineNode `json:"roots"`
	Count int            `json:"count"`
}

// Outline parses markdown into its heading outline.
func Outline(input OutlineInput) (*OutlineOutput, error) {
	hasPath := input.Path != ""
	hasText := input.Text != ""
	if hasPath == hasText {
		return nil, errors.NewInvalidRequest("must specify exactly one of path or text")
	}

	src := []byte(input.Text)
	if hasPath {
		path, err := readablePath(input.Path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		src = data
	}

	forest := markdown.Build(src)
	roots := make([]*OutlineNode, 0, len(forest))
	for _, t := range forest {
		roots = append(roots, toOutlineNode(t))
	}
	return &OutlineOutput{Roots: roots, Count: outline.Count(forest)}, nil
}

func toOutlineNode(t *outline.Tree[markdown.Block]) *OutlineNode {
	n := &OutlineNode{
		Kind:     string(t.Element.Kind),
		Language: t.Element.Language,
	}
	if t.Element.Kind == markdown.KindHeading {
		n.Name = t.Name
		n.Level = t.Level
	} else {
		n.Text = t.Element.Text
	}
	for _, c := range t.Children {
		n.Children = append(n.Children, toOutlineNode(c))
	}
	return n
}
