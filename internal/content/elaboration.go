package content

import (
	"context"
	"iter"
	"strings"
)

// ElaborationPreamble steers completions toward markdown with a deep heading
// structure, so the response can be parsed back into an outline.
const ElaborationPreamble = `Format your response in valid Markdown syntax. Liberally use headings. Machine will extract an outline of it.
In particular, go very deep with the structure of the candidate's response.
Prefer use headings instead of bullet items. But include some non-heading text too.`

// Elaboration expands into the outline of an AI completion of Prompt.
type Elaboration struct {
	Env    *Env
	Prompt string
}

func (*Elaboration) Variant() string { return "elaboration" }

// Children implements Expander. Every candidate response is parsed as
// markdown and its roots are yielded in order. A failed completion yields one
// placeholder carrying the error text.
func (e *Elaboration) Children(ctx context.Context, parent Node) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		if e.Env == nil || e.Env.Completer == nil {
			e.Env.Log().Warn("elaboration skipped: no completer", "urn", parent.URN)
			return
		}

		responses, err := e.Env.Completer.Complete(ctx, e.Prompt)
		if err != nil {
			if ctx.Err() != nil {
				yield(Node{}, ctx.Err())
				return
			}
			e.Env.Log().Warn("elaboration failed", "urn", parent.URN, "error", err)
			yield(NewPlaceholder(err.Error(), childURN(parent.URN, 0)), nil)
			return
		}

		i := 0
		for _, response := range responses {
			for _, n := range FromMarkdown(e.Env, response) {
				if err := ctx.Err(); err != nil {
					yield(Node{}, err)
					return
				}
				if !yield(n.WithURN(childURN(parent.URN, i)), nil) {
					return
				}
				i++
			}
		}
	}
}

// AlternativeChildren implements Redirector: a re-elaboration of n steered by
// directive instead of the original prompt.
func (e *Elaboration) AlternativeChildren(ctx context.Context, n Node, directive string) iter.Seq2[Node, error] {
	return RedirectChildren(ctx, e.Env, n, directive)
}

// Redirect builds the elaboration of n steered by directive. "$title" in the
// directive is replaced by n's name.
func Redirect(env *Env, n Node, directive string) *Elaboration {
	prompt := ElaborationPreamble + "\n\n" + directive
	return &Elaboration{Env: env, Prompt: strings.ReplaceAll(prompt, "$title", n.Name)}
}

// RedirectChildren is the stock AlternativeChildren implementation.
func RedirectChildren(ctx context.Context, env *Env, n Node, directive string) iter.Seq2[Node, error] {
	return Redirect(env, n, directive).Children(ctx, n)
}

// ElaborationNode returns a node that expands into the completion of prompt.
func ElaborationNode(env *Env, name, urn, prompt string) Node {
	return Node{Name: name, URN: urn, Body: &Elaboration{Env: env, Prompt: prompt}}
}
