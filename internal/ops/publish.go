package ops

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/db"
	"github.com/hpungsan/docuverse/internal/metrics"
)

// PublishInput contains parameters for the Publish operation.
type PublishInput struct {
	Root      content.Node
	Source    string // label recorded in build history
	OutputDir string // defaults to config output_dir
}

// PublishOutput contains the result of the Publish operation.
type PublishOutput struct {
	BuildID   string `json:"build_id"`
	Status    string `json:"status"`
	TreeID    string `json:"tree_id,omitempty"`
	Pages     int    `json:"pages"`
	OutputDir string `json:"output_dir"`
}

// Publish materializes the root into the store, exports the merged tree to
// the output directory, and records the run in build history.
//
// A root with no children is not an error: the run is recorded as empty and
// the output directory is left untouched. A failed run leaves previously
// exported files in place.
func Publish(ctx context.Context, deps *Deps, input PublishInput) (*PublishOutput, error) {
	dir := input.OutputDir
	if dir == "" {
		dir = deps.Config.OutputDir
	}
	dir, err := ValidateOutputDir(dir)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	build := &db.Build{
		ID:        newRunID(),
		Source:    input.Source,
		OutputDir: dir,
		StartedAt: started.Unix(),
	}

	res, ok, err := deps.Materializer().Materialize(ctx, input.Root)
	if err == nil && ok {
		err = deps.Store.Export(ctx, res.Tree, dir)
	}

	rec := metrics.OrNoop(deps.Recorder)
	rec.ObserveBuildDuration(time.Since(started))

	switch {
	case err != nil:
		build.Status = db.BuildStatusFailed
		msg := err.Error()
		build.Error = &msg
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			rec.IncBuildOutcome(metrics.BuildCanceled)
		} else {
			rec.IncBuildOutcome(metrics.BuildFailed)
		}
	case !ok:
		build.Status = db.BuildStatusEmpty
		rec.IncBuildOutcome(metrics.BuildEmpty)
	default:
		build.Status = db.BuildStatusPublished
		tree := string(res.Tree)
		build.TreeID = &tree
		build.Pages = res.Pages
		rec.IncBuildOutcome(metrics.BuildPublished)
	}
	build.FinishedAt = time.Now().Unix()

	// The run is recorded even when ctx was canceled mid-build.
	if insertErr := db.InsertBuild(context.WithoutCancel(ctx), deps.DB, build); insertErr != nil {
		if err != nil {
			deps.Logger.Error("record failed build", "build", build.ID, "error", insertErr)
			return nil, err
		}
		return nil, insertErr
	}

	if err != nil {
		deps.Logger.Warn("publish failed", "build", build.ID, "source", build.Source, "error", err)
		return nil, err
	}

	deps.Logger.Info("published",
		"build", build.ID, "source", build.Source, "status", build.Status,
		"pages", build.Pages, "output_dir", dir)

	out := &PublishOutput{
		BuildID:   build.ID,
		Status:    build.Status,
		Pages:     build.Pages,
		OutputDir: dir,
	}
	if build.TreeID != nil {
		out.TreeID = *build.TreeID
	}
	return out, nil
}
