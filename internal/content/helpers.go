package content

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/docuverse/internal/errors"
)

// StaticString returns the text of the first static string attribute named
// name.
func StaticString(n Node, name string) (string, bool) {
	for _, a := range n.Static {
		if a.Name == name && a.Kind == KindString {
			return a.Text, true
		}
	}
	return "", false
}

// StaticJSON returns the first static JSON attribute named name.
func StaticJSON(n Node, name string) (string, bool) {
	for _, a := range n.Static {
		if a.Name == name && a.Kind == KindJSON {
			return a.Text, true
		}
	}
	return "", false
}

// FirstDocumentation returns the first static documentation attribute.
func FirstDocumentation(n Node) (string, bool) {
	for _, a := range n.Static {
		if a.Kind == KindDocumentation {
			return a.Text, true
		}
	}
	return "", false
}

// CreatedAt returns the static creation timestamp, if any.
func CreatedAt(n Node) (time.Time, bool) {
	for _, a := range n.Static {
		if a.Name == AttrCreatedAt && a.Kind == KindTimestamp {
			return a.Time, true
		}
	}
	return time.Time{}, false
}

// Category returns the static category, or DefaultCategory.
func Category(n Node) string {
	if c, ok := StaticString(n, AttrCategory); ok {
		return c
	}
	return DefaultCategory
}

// Tags returns n's tags: a static tags list if present, else the first
// on-demand tags list, else the tags of the static metadata document. Only
// the attributes up to the first tags list are pulled.
func Tags(ctx context.Context, n Node) ([]string, error) {
	for _, a := range n.Static {
		if a.Name == AttrTags && a.Kind == KindList {
			return a.Strings(), nil
		}
	}

	for a, err := range n.Attributes(ctx) {
		if err != nil {
			return nil, err
		}
		if a.Name == AttrTags && a.Kind == KindList {
			return a.Strings(), nil
		}
	}

	if doc, ok := StaticJSON(n, AttrMetadata); ok {
		var meta struct {
			Tags []string `json:"tags"`
		}
		if json.Unmarshal([]byte(doc), &meta) == nil {
			return meta.Tags, nil
		}
	}
	return nil, nil
}

// Traverse follows path from root, one child index per step. An empty path
// returns root.
func Traverse(ctx context.Context, root Node, path []int) (Node, error) {
	n := root
	for depth, want := range path {
		if n.IsLeaf() {
			return Node{}, errors.NewNotFound(formatPath(path[:depth+1]))
		}
		found := false
		i := 0
		for child, err := range n.Children(ctx) {
			if err != nil {
				return Node{}, err
			}
			if i == want {
				n = child
				found = true
				break
			}
			i++
		}
		if !found {
			return Node{}, errors.NewNotFound(formatPath(path[:depth+1]))
		}
	}
	return n, nil
}

// ParsePath parses "0/2/1" into an index path. Empty input is the root.
func ParsePath(s string) ([]int, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	path := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return nil, errors.NewInvalidRequest("path must be slash-separated child indexes, got " + strconv.Quote(s))
		}
		path[i] = v
	}
	return path, nil
}

func formatPath(path []int) string {
	parts := make([]string, len(path))
	for i, v := range path {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "/")
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeTag folds a tag for grouping: trimmed, lowercased, internal
// whitespace collapsed to a single dash.
func NormalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRegex.ReplaceAllString(s, "-")
}
