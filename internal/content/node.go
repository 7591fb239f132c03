// Package content defines the lazy content tree.
//
// A Node is a value description of how to produce content: a name, an opaque
// URN, attributes computed at construction, and a Body variant that knows how
// to expand lazily. Bodies opt into capabilities (Expander, Describer,
// Redirector). Every sequence they return is cold: creating it does no work,
// each range re-runs the producer, and stopping the range stops the producer.
package content

import (
	"context"
	"iter"
	"log/slog"
)

// Node is one element of the content tree.
type Node struct {
	Name   string
	URN    string
	Static []Attribute
	Body   Body
}

// Body is the variant part of a Node.
type Body interface {
	Variant() string
}

// Expander is a Body with children.
type Expander interface {
	Children(ctx context.Context, parent Node) iter.Seq2[Node, error]
}

// Describer is a Body with attributes computed on demand.
type Describer interface {
	Attributes(ctx context.Context, n Node) iter.Seq2[Attribute, error]
}

// Redirector is a Body that can produce an alternative expansion steered by a
// free-text directive. It is never invoked automatically.
type Redirector interface {
	AlternativeChildren(ctx context.Context, n Node, directive string) iter.Seq2[Node, error]
}

// Completer completes prompts. fetch.Client is the production implementation.
type Completer interface {
	Complete(ctx context.Context, prompt string) ([]string, error)
}

// Env carries what bodies need to expand: the completion endpoint and a logger.
type Env struct {
	Completer Completer
	Logger    *slog.Logger
}

// Log returns the configured logger or slog.Default.
func (e *Env) Log() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// WithURN returns a copy of n anchored at urn. Descendants derive their URNs
// from it when expanded.
func (n Node) WithURN(urn string) Node {
	n.URN = urn
	return n
}

// IsLeaf reports whether n has no children producer.
func (n Node) IsLeaf() bool {
	_, ok := n.Body.(Expander)
	return !ok
}

// Children returns n's children. Leaves yield nothing.
func (n Node) Children(ctx context.Context) iter.Seq2[Node, error] {
	if e, ok := n.Body.(Expander); ok {
		return e.Children(ctx, n)
	}
	return empty[Node]
}

// Attributes returns n's on-demand attributes, excluding Static.
func (n Node) Attributes(ctx context.Context) iter.Seq2[Attribute, error] {
	if d, ok := n.Body.(Describer); ok {
		return d.Attributes(ctx, n)
	}
	return empty[Attribute]
}

// AlternativeChildren returns the redirected expansion of n, if its body
// supports one.
func (n Node) AlternativeChildren(ctx context.Context, directive string) (iter.Seq2[Node, error], bool) {
	r, ok := n.Body.(Redirector)
	if !ok {
		return nil, false
	}
	return r.AlternativeChildren(ctx, n, directive), true
}

func empty[T any](func(T, error) bool) {}

// Collect drains seq, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FromSlice yields nodes in order, ending early with ctx.Err() on cancellation.
func FromSlice(ctx context.Context, nodes []Node) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		for _, n := range nodes {
			if err := ctx.Err(); err != nil {
				yield(Node{}, err)
				return
			}
			if !yield(n, nil) {
				return
			}
		}
	}
}
