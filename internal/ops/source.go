package ops

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hpungsan/docuverse/internal/config"
	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/manifest"
)

// Source selects the root a tree operation runs against. At most one of
// File, Manifest and Feed may be set; with none, the configured manifest is used.
type Source struct {
	File     string     `json:"file,omitempty"`
	Manifest string     `json:"manifest,omitempty"`
	Feed     *FeedInput `json:"feed,omitempty"`
}

// Label names the source in build history, e.g. "manifest:/home/a/docuverse.json".
func (s Source) Label(cfg *config.Config) string {
	switch {
	case s.File != "":
		return "file:" + s.File
	case s.Feed != nil:
		if s.Feed.PostID != "" {
			return "post:" + s.Feed.PostID
		}
		user := s.Feed.User
		if user == "" {
			user = cfg.FeedUsername
		}
		return fmt.Sprintf("feed:%s@%d", user, s.Feed.Offset)
	case s.Manifest != "":
		return "manifest:" + s.Manifest
	default:
		return "manifest:" + cfg.ManifestPath
	}
}

// Root resolves src into a content root.
func Root(ctx context.Context, deps *Deps, src Source) (content.Node, error) {
	set := 0
	for _, ok := range []bool{src.File != "", src.Manifest != "", src.Feed != nil} {
		if ok {
			set++
		}
	}
	if set > 1 {
		return content.Node{}, errors.NewInvalidRequest("specify at most one of file, manifest or feed")
	}

	switch {
	case src.File != "":
		return FileRoot(deps, src.File)
	case src.Feed != nil:
		return FeedRoot(ctx, deps, *src.Feed)
	case src.Manifest != "":
		return ManifestRoot(deps, src.Manifest)
	default:
		return ManifestRoot(deps, deps.Config.ManifestPath)
	}
}

// ManifestRoot loads the manifest at path and returns its outline root.
func ManifestRoot(deps *Deps, path string) (content.Node, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return content.Node{}, err
	}
	return manifest.Outline(deps.Env(), m), nil
}

// FileRoot returns a single markdown file as a root.
// Unlike manifest entries, a missing file here is the caller's mistake.
func FileRoot(deps *Deps, path string) (content.Node, error) {
	path, err := readablePath(path)
	if err != nil {
		return content.Node{}, err
	}
	return content.FromFile(deps.Env(), path), nil
}

func readablePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	expanded, err := config.ExpandHome(path)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewFileNotFound(path)
		}
		return "", errors.NewInternal(err)
	}
	if info.IsDir() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%s is a directory", path))
	}
	return expanded, nil
}
