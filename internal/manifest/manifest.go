// Package manifest loads the category manifest: an ordered mapping from
// category name to the markdown files published under it.
package manifest

import (
	stderrors "errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/docuverse/internal/config"
	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
)

// RootName is the name of the outline root built from a manifest.
const RootName = "Outline"

// Entry is one published file.
type Entry struct {
	Path  string `yaml:"path" json:"path"`
	Cover string `yaml:"cover,omitempty" json:"cover,omitempty"`
}

// Category is a named, ordered group of entries.
type Category struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Manifest keeps categories and entries in file order. Paths are expanded.
type Manifest struct {
	Categories []Category

	byPath map[string]Entry
	catOf  map[string]string
}

// Load reads a manifest file. JSON manifests are accepted as YAML.
func Load(path string) (*Manifest, error) {
	expanded, err := config.ExpandHome(path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewFileNotFound(expanded)
		}
		return nil, errors.NewInternal(err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewDecodeFailed("manifest", err)
	}

	m := &Manifest{byPath: map[string]Entry{}, catOf: map[string]string{}}
	if len(doc.Content) == 0 {
		return m, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.NewDecodeFailed("manifest", fmt.Errorf("line %d: expected a mapping of category to entries", root.Line))
	}

	// yaml.Node keeps mapping keys in document order.
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var entries []Entry
		if err := root.Content[i+1].Decode(&entries); err != nil {
			return nil, errors.NewDecodeFailed("manifest category "+name, err)
		}

		cat := Category{Name: name}
		for _, e := range entries {
			if e.Path == "" {
				return nil, errors.NewDecodeFailed("manifest category "+name, fmt.Errorf("entry without path"))
			}
			p, err := config.ExpandHome(e.Path)
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			e.Path = p
			cat.Entries = append(cat.Entries, e)
			if _, dup := m.byPath[p]; !dup {
				m.byPath[p] = e
				m.catOf[p] = name
			}
		}
		m.Categories = append(m.Categories, cat)
	}
	return m, nil
}

// Paths returns every distinct path in manifest order.
func (m *Manifest) Paths() []string {
	seen := make(map[string]bool, len(m.byPath))
	var paths []string
	for _, c := range m.Categories {
		for _, e := range c.Entries {
			if !seen[e.Path] {
				seen[e.Path] = true
				paths = append(paths, e.Path)
			}
		}
	}
	return paths
}

// Category returns the category a path was first listed under.
func (m *Manifest) Category(path string) (string, bool) {
	c, ok := m.catOf[path]
	return c, ok
}

// Cover returns the cover image of path, if any.
func (m *Manifest) Cover(path string) (string, bool) {
	e, ok := m.byPath[path]
	if !ok || e.Cover == "" {
		return "", false
	}
	return e.Cover, true
}

// Outline builds the root node with one markdown file child per path. Each
// child carries its category and optional cover as static attributes.
func Outline(env *content.Env, m *Manifest) content.Node {
	paths := m.Paths()
	files := make([]content.Node, 0, len(paths))
	for _, p := range paths {
		cat, _ := m.Category(p)
		static := []content.Attribute{content.String(content.AttrCategory, cat)}
		if cover, ok := m.Cover(p); ok {
			static = append(static, content.String(content.AttrCover, cover))
		}
		files = append(files, content.FromFile(env, p, static...))
	}
	return content.CollectionNode(RootName, files)
}
