package content

import (
	"context"
	"fmt"
	"iter"
	"os"

	"github.com/hpungsan/docuverse/internal/markdown"
)

// File is a markdown document on disk. It is read each time its children are
// produced, so a re-run always sees current contents.
type File struct {
	Path string
	Env  *Env
}

func (*File) Variant() string { return "file" }

// Children implements Expander. Roots get URN "<path>#<offset>". An unreadable
// file yields a single placeholder instead of failing.
func (f *File) Children(ctx context.Context, _ Node) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Node{}, err)
			return
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			f.Env.Log().Warn("unable to read markdown file", "path", f.Path, "error", err)
			yield(NewPlaceholder(fmt.Sprintf("Unable to read %s", f.Path), f.Path+"#0"), nil)
			return
		}

		forest := markdown.Build(data)
		for i, t := range forest {
			if err := ctx.Err(); err != nil {
				yield(Node{}, err)
				return
			}
			if !yield(BlockNode(f.Env, t, fmt.Sprintf("%s#%d", f.Path, i)), nil) {
				return
			}
		}
	}
}

// FromFile returns a node for the markdown file at path, named and anchored by
// its path.
func FromFile(env *Env, path string, static ...Attribute) Node {
	return Node{Name: path, URN: path, Static: static, Body: &File{Path: path, Env: env}}
}
