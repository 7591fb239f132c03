package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/docuverse/internal/db"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	ID    string // a single build; overrides Limit
	Limit int    // default: 20, max: 100
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Builds []db.Build `json:"builds"`
	Sort   string     `json:"sort"`
}

// History lists recent publish runs, newest first.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	if id := strings.TrimSpace(input.ID); id != "" {
		b, err := db.GetBuild(ctx, database, id)
		if err != nil {
			return nil, err
		}
		return &HistoryOutput{Builds: []db.Build{*b}, Sort: "started_at_desc"}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	builds, err := db.ListBuilds(ctx, database, limit)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Builds: builds, Sort: "started_at_desc"}, nil
}
