// Package site flattens a content tree into a static site: one page per child
// of the root plus an index that groups pages by tag and by category.
package site

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/hpungsan/docuverse/internal/cas"
	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/metrics"
	"github.com/hpungsan/docuverse/internal/parallel"
)

// IndexFile is the name of the index page in the output tree.
const IndexFile = "index.html"

// Naming selects how page file names are derived.
type Naming string

const (
	// NamingContent hashes the rendered page, so changed pages get new names
	// and distinct pages never collide.
	NamingContent Naming = "content"
	// NamingTitle hashes the display name. Pages sharing a name collide.
	NamingTitle Naming = "title"
)

// Item is a page-level node as handed to the delegate. Href is the page's
// file name, empty when the node produced no page.
type Item struct {
	Node content.Node
	Href string
}

// NoSummary is shown for a group whose summary is unavailable.
const NoSummary = "No summary"

// Delegate renders index entries. A SummarizeGroup failure other than
// cancellation is logged and the group is shown with NoSummary.
type Delegate interface {
	RenderItem(ctx context.Context, item Item) (string, error)
	SummarizeGroup(ctx context.Context, nodes []content.Node) (string, error)
}

// Store is the content-addressable store the site is written into.
type Store interface {
	StoreDirectory(ctx context.Context, files map[string][]byte) (cas.ID, error)
	MergeTrees(ctx context.Context, ids []cas.ID) (cas.ID, error)
}

// Result describes a materialized site.
type Result struct {
	Tree  cas.ID
	Pages int
}

// Materializer builds sites.
type Materializer struct {
	Store       Store
	Delegate    Delegate
	Naming      Naming
	MaxParallel int
	Logger      *slog.Logger
	Recorder    metrics.Recorder
	// Now stands in for missing creation times. Defaults to time.Now.
	Now func() time.Time
}

func (m *Materializer) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func (m *Materializer) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

type page struct {
	node content.Node
	href string
	tree cas.ID
}

// Materialize writes one page per child of root and an index, merged into a
// single tree. ok is false when root has no children: there is nothing to
// publish. A root without a children producer is a misuse.
func (m *Materializer) Materialize(ctx context.Context, root content.Node) (Result, bool, error) {
	if root.IsLeaf() {
		return Result{}, false, errors.NewMisuse("root " + root.Name + " has no children to materialize")
	}

	nodes, err := content.Collect(root.Children(ctx))
	if err != nil {
		return Result{}, false, err
	}
	if len(nodes) == 0 {
		m.logger().Info("nothing to publish", "root", root.Name)
		return Result{}, false, nil
	}

	pages, err := parallel.Map(ctx, nodes, m.MaxParallel, m.generatePage)
	if err != nil {
		return Result{}, false, err
	}

	indexTree, err := m.generateIndex(ctx, pages)
	if err != nil {
		return Result{}, false, err
	}

	trees := make([]cas.ID, 0, len(pages)+1)
	rendered := 0
	for _, p := range pages {
		if p.tree != "" {
			trees = append(trees, p.tree)
			rendered++
		}
	}
	trees = append(trees, indexTree)

	id, err := m.Store.MergeTrees(ctx, trees)
	if err != nil {
		return Result{}, false, err
	}
	metrics.OrNoop(m.Recorder).AddPagesRendered(rendered)
	m.logger().Info("materialized site", "root", root.Name, "pages", rendered, "tree", id)
	return Result{Tree: id, Pages: rendered}, true, nil
}

// generatePage renders n and its sections as one file. A leaf yields no page.
func (m *Materializer) generatePage(ctx context.Context, n content.Node) (page, error) {
	if n.IsLeaf() {
		return page{node: n}, nil
	}
	m.logger().Debug("generating page", "urn", n.URN, "name", n.Name)

	var sections []string
	for child, err := range n.Children(ctx) {
		if err != nil {
			return page{}, err
		}
		sections = append(sections, sectionTitle(child))
	}

	html, err := renderPage(n.Name, sections)
	if err != nil {
		return page{}, errors.NewInternal(err)
	}

	href := m.fileName(n, html)
	tree, err := m.Store.StoreDirectory(ctx, map[string][]byte{href: html})
	if err != nil {
		return page{}, err
	}
	return page{node: n, href: href, tree: tree}, nil
}

func (m *Materializer) fileName(n content.Node, html []byte) string {
	if m.Naming == NamingTitle {
		return Checksum([]byte(n.Name)) + ".html"
	}
	return Checksum(html) + ".html"
}

// sectionTitle is the child's name, or its first documentation when unnamed.
func sectionTitle(n content.Node) string {
	if n.Name != "" {
		return n.Name
	}
	if doc, ok := content.FirstDocumentation(n); ok {
		return doc
	}
	return ""
}

// Checksum is the lowercase hex sha256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
