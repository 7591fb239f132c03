package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/hpungsan/docuverse/internal/errors"
)

// DefaultBaseURL is the public FreeFeed API root.
const DefaultBaseURL = "https://freefeed.net/v2"

// Getter issues authenticated GETs. fetch.Client is the production Getter.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetFresh(ctx context.Context, url string) ([]byte, error)
}

// API is a FreeFeed client.
type API struct {
	BaseURL string
	Client  Getter
}

// NewAPI returns an API rooted at baseURL, or DefaultBaseURL when empty.
func NewAPI(baseURL string, client Getter) *API {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &API{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

// Timeline fetches one page of username's posts. Listings change between runs
// and are never served from cache.
func (a *API) Timeline(ctx context.Context, username string, offset int) (*Timeline, error) {
	u := fmt.Sprintf("%s/timelines/%s?offset=%d&maxComments=all", a.BaseURL, url.PathEscape(username), offset)
	data, err := a.Client.GetFresh(ctx, u)
	if err != nil {
		return nil, err
	}
	var tl Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, errors.NewDecodeFailed("timeline", err)
	}
	return &tl, nil
}

// Post fetches one post with all comments. updatedAt is part of the request
// so an edited post misses the cache.
func (a *API) Post(ctx context.Context, postID, updatedAt string) (*PostTimeline, error) {
	q := url.Values{}
	q.Set("maxComments", "all")
	q.Set("updatedAt", updatedAt)
	u := fmt.Sprintf("%s/posts/%s?%s", a.BaseURL, url.PathEscape(postID), q.Encode())
	data, err := a.Client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	var pt PostTimeline
	if err := json.Unmarshal(data, &pt); err != nil {
		return nil, errors.NewDecodeFailed("post", err)
	}
	return &pt, nil
}

// User fetches a user profile.
func (a *API) User(ctx context.Context, username string) (*User, error) {
	data, err := a.Client.Get(ctx, fmt.Sprintf("%s/users/%s", a.BaseURL, url.PathEscape(username)))
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, errors.NewDecodeFailed("user", err)
	}
	return &u, nil
}
