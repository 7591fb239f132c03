package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/feed"
)

// FeedInput selects a feed root: a single post when PostID is set, otherwise
// one timeline page.
type FeedInput struct {
	User      string `json:"user,omitempty"`   // defaults to config feed_username
	Offset    int    `json:"offset,omitempty"` // timeline paging offset
	PostID    string `json:"post_id,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"` // busts the post cache after edits
}

// FeedRoot builds the root node for publishing a feed. Timeline roots are
// lazy: nothing is fetched until the root is expanded.
func FeedRoot(ctx context.Context, deps *Deps, input FeedInput) (content.Node, error) {
	if deps.Client.Env().Token == "" {
		return content.Node{}, errors.NewInvalidRequest("feed token is required (set FREEFEED_TOKEN)")
	}
	if input.Offset < 0 {
		return content.Node{}, errors.NewInvalidRequest("offset must not be negative")
	}

	api := feed.NewAPI(deps.Config.FeedBaseURL, deps.Client)

	if postID := strings.TrimSpace(input.PostID); postID != "" {
		pt, err := api.Post(ctx, postID, input.UpdatedAt)
		if err != nil {
			return content.Node{}, err
		}
		return feed.PostRoot(ctx, deps.Env(), pt, deps.FeedOptions()), nil
	}

	user := strings.TrimSpace(input.User)
	if user == "" {
		user = deps.Config.FeedUsername
	}
	if user == "" {
		return content.Node{}, errors.NewInvalidRequest("feed user is required (set feed_username or pass a user)")
	}
	return feed.TimelineNode(api, deps.Env(), user, input.Offset, deps.FeedOptions()), nil
}
