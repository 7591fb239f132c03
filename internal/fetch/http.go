package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hpungsan/docuverse/internal/errors"
)

// HTTPResult is the raw payload of a successful GET.
type HTTPResult struct {
	Data []byte `json:"data"`
}

// HTTPKey is an authenticated GET of URL.
type HTTPKey struct {
	URL string `json:"url"`
	env *Env
}

// NewHTTPKey binds a GET of rawURL to env.
func NewHTTPKey(rawURL string, env *Env) HTTPKey {
	return HTTPKey{URL: rawURL, env: env}
}

func (HTTPKey) KeyType() string { return "FetchHTTP" }
func (HTTPKey) Version() int    { return 5 }

// Compute performs the request. Any status outside 2xx is a request error.
func (k HTTPKey) Compute(ctx context.Context) (HTTPResult, error) {
	u, err := url.Parse(k.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return HTTPResult{}, errors.NewRequestFailed(fmt.Sprintf("invalid URL: %s", k.URL), map[string]any{"url": k.URL})
	}
	if k.env == nil || k.env.Token == "" {
		return HTTPResult{}, errors.NewInvalidRequest("feed token is required (set FREEFEED_TOKEN)")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return HTTPResult{}, errors.NewRequestFailed(fmt.Sprintf("build request: %v", err), map[string]any{"url": k.URL})
	}
	req.Header.Set("X-Authentication-Token", k.env.Token)

	resp, err := k.env.httpClient().Do(req)
	if err != nil {
		return HTTPResult{}, errors.NewRequestFailed(fmt.Sprintf("GET %s: %v", k.URL, err), map[string]any{"url": k.URL})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return HTTPResult{}, errors.NewRequestFailed(
			fmt.Sprintf("GET %s returned status %d", k.URL, resp.StatusCode),
			map[string]any{"url": k.URL, "status": resp.StatusCode},
		)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return HTTPResult{}, errors.NewRequestFailed(fmt.Sprintf("read %s: %v", k.URL, err), map[string]any{"url": k.URL})
	}
	k.env.logger().Debug("fetched", "url", k.URL, "bytes", len(data))
	return HTTPResult{Data: data}, nil
}
