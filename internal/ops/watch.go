package ops

import (
	"context"

	"github.com/hpungsan/docuverse/internal/config"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/manifest"
	"github.com/hpungsan/docuverse/internal/watch"
)

// WatchInput contains parameters for the Watch operation.
type WatchInput struct {
	Manifest  string // defaults to config manifest_path
	OutputDir string // defaults to config output_dir

	// Backend overrides the fsnotify watcher.
	Backend watch.Backend
	// OnPublish, if set, observes the result of every run.
	OnPublish func(*PublishOutput, error)
}

// Watch publishes the manifest outline once, then again every time a watched
// file changes. Every run rebuilds the root from scratch. A failed run is
// logged and the loop keeps going. Watch returns when ctx ends or every
// watched file is gone.
//
// The manifest itself is watched too. An edit that parses replaces the
// categories used by the next run; files it adds are not watched until
// Watch is restarted.
func Watch(ctx context.Context, deps *Deps, input WatchInput) error {
	path := input.Manifest
	if path == "" {
		path = deps.Config.ManifestPath
	}
	expanded, err := config.ExpandHome(path)
	if err != nil {
		return errors.NewInternal(err)
	}
	m, err := manifest.Load(expanded)
	if err != nil {
		return err
	}

	paths := append([]string{expanded}, m.Paths()...)
	stream, err := watch.Watch(ctx, paths, watch.Options{Logger: deps.Logger, Backend: input.Backend})
	if err != nil {
		return err
	}
	defer stream.Close()

	source := Source{Manifest: expanded}.Label(deps.Config)
	events := watch.Prime(ctx, watch.Event{Kind: watch.KindInitial}, stream.Events())

	for ev := range events {
		if ev.Kind != watch.KindInitial {
			deps.Logger.Info("file changed", "path", ev.Path, "kind", ev.Kind)
		}
		if ev.Path == expanded && ev.Kind == watch.KindWrite {
			// Keep the last good manifest when an edit does not parse.
			if next, err := manifest.Parse([]byte(ev.Contents)); err != nil {
				deps.Logger.Warn("manifest reload failed", "path", ev.Path, "error", err)
			} else {
				m = next
			}
		}

		out, err := Publish(ctx, deps, PublishInput{
			Root:      manifest.Outline(deps.Env(), m),
			Source:    source,
			OutputDir: input.OutputDir,
		})
		if err != nil && ctx.Err() == nil {
			deps.Logger.Error("watch build failed", "error", err)
		}
		if input.OnPublish != nil {
			input.OnPublish(out, err)
		}
	}
	return nil
}
