package site

import (
	"cmp"
	"context"
	"html/template"
	"slices"
	"time"

	"github.com/hpungsan/docuverse/internal/cas"
	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/parallel"
)

const (
	groupCategory = "category"
	groupTag      = "tag"
)

type group struct {
	kind    string
	key     string
	members []page
}

// generateIndex renders the category sections, then the tag sections, then
// the tag cloud. Categories run in reverse lexicographic order; tags run from
// most to least populated.
func (m *Materializer) generateIndex(ctx context.Context, pages []page) (cas.ID, error) {
	tags, err := parallel.Map(ctx, pages, m.MaxParallel, func(ctx context.Context, p page) ([]string, error) {
		raw, err := content.Tags(ctx, p.node)
		if err != nil {
			return nil, err
		}
		return normalizeTags(raw), nil
	})
	if err != nil {
		return "", err
	}

	byTag := map[string][]page{}
	byCategory := map[string][]page{}
	for i, p := range pages {
		for _, t := range tags[i] {
			byTag[t] = append(byTag[t], p)
		}
		cat := content.Category(p.node)
		byCategory[cat] = append(byCategory[cat], p)
	}

	categories := groupsOf(groupCategory, byCategory)
	slices.SortFunc(categories, func(a, b group) int { return cmp.Compare(b.key, a.key) })

	tagGroups := groupsOf(groupTag, byTag)
	slices.SortFunc(tagGroups, byPopularity)

	now := m.now()
	rendered, err := parallel.Map(ctx, slices.Concat(categories, tagGroups), m.MaxParallel, func(ctx context.Context, g group) (groupData, error) {
		return m.renderGroup(ctx, g, now)
	})
	if err != nil {
		return "", err
	}

	cloud := make([]cloudEntry, len(tagGroups))
	for i, g := range tagGroups {
		cloud[i] = cloudEntry{Tag: g.key, Count: len(g.members)}
	}

	html, err := renderIndex(indexData{Title: "Index", Groups: rendered, Cloud: cloud})
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return m.Store.StoreDirectory(ctx, map[string][]byte{IndexFile: html})
}

func groupsOf(kind string, members map[string][]page) []group {
	out := make([]group, 0, len(members))
	for k, ps := range members {
		out = append(out, group{kind: kind, key: k, members: ps})
	}
	return out
}

// byPopularity orders by member count descending, then key ascending.
func byPopularity(a, b group) int {
	if c := cmp.Compare(len(b.members), len(a.members)); c != 0 {
		return c
	}
	return cmp.Compare(a.key, b.key)
}

type renderedItem struct {
	created time.Time
	html    string
}

// renderGroup renders every member concurrently, then orders them newest
// first. Members without a creation time count as now.
func (m *Materializer) renderGroup(ctx context.Context, g group, now time.Time) (groupData, error) {
	items, err := parallel.Map(ctx, g.members, m.MaxParallel, func(ctx context.Context, p page) (renderedItem, error) {
		html, err := m.Delegate.RenderItem(ctx, Item{Node: p.node, Href: p.href})
		if err != nil {
			return renderedItem{}, err
		}
		created, ok := content.CreatedAt(p.node)
		if !ok {
			created = now
		}
		return renderedItem{created: created, html: html}, nil
	})
	if err != nil {
		return groupData{}, err
	}
	slices.SortStableFunc(items, func(a, b renderedItem) int { return b.created.Compare(a.created) })

	nodes := make([]content.Node, len(g.members))
	for i, p := range g.members {
		nodes[i] = p.node
	}
	summary, err := m.Delegate.SummarizeGroup(ctx, nodes)
	if err != nil {
		if ctx.Err() != nil {
			return groupData{}, ctx.Err()
		}
		m.logger().Warn("group summary failed", "group", g.key, "error", err)
		summary = NoSummary
	}

	renders := make([]template.HTML, len(items))
	for i, it := range items {
		// Delegates return trusted markup.
		renders[i] = template.HTML(it.html)
	}
	return groupData{Kind: g.kind, Key: g.key, Count: len(g.members), Summary: summary, Renders: renders}, nil
}

func normalizeTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = content.NormalizeTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
