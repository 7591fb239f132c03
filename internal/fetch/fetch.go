// Package fetch holds the memoized external calls: HTTP GETs against the feed
// API and prompt completions against the AI endpoint.
package fetch

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/hpungsan/docuverse/internal/ai"
	"github.com/hpungsan/docuverse/internal/engine"
)

// LevelCritical sits above slog.LevelError. AI prompts and responses are
// logged at this level so they stand out in otherwise quiet runs.
const LevelCritical = slog.Level(12)

// ReplaceLevel is a slog.HandlerOptions.ReplaceAttr that names LevelCritical.
func ReplaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
			a.Value = slog.StringValue("CRITICAL")
		}
	}
	return a
}

// Env is the ambient context every fetch key computes against.
type Env struct {
	Engine    *engine.Engine
	HTTP      *http.Client
	Token     string
	Generator ai.Generator
	JitterMin time.Duration
	JitterMax time.Duration
	Logger    *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Env) httpClient() *http.Client {
	if e == nil || e.HTTP == nil {
		return http.DefaultClient
	}
	return e.HTTP
}

// jitter returns a random delay in [JitterMin, JitterMax].
func (e *Env) jitter() time.Duration {
	if e == nil {
		return 0
	}
	lo := max(e.JitterMin, 0)
	if e.JitterMax <= lo {
		return lo
	}
	return lo + rand.N(e.JitterMax-lo+1)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client issues fetch keys through the engine.
type Client struct {
	env *Env
}

// NewClient returns a Client over env. A nil env.Engine disables caching.
func NewClient(env *Env) *Client {
	if env == nil {
		env = &Env{}
	}
	return &Client{env: env}
}

// Env returns the client's ambient context.
func (c *Client) Env() *Env {
	return c.env
}

// Get fetches url through the cache.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	res, err := build(ctx, c.env.Engine, HTTPKey{URL: url, env: c.env})
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// GetFresh fetches url bypassing the cache. Used for listings that change
// between runs, such as timelines.
func (c *Client) GetFresh(ctx context.Context, url string) ([]byte, error) {
	res, err := HTTPKey{URL: url, env: c.env}.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Complete returns one response string per candidate for prompt.
func (c *Client) Complete(ctx context.Context, prompt string) ([]string, error) {
	res, err := build(ctx, c.env.Engine, CompletionKey{Prompt: prompt, env: c.env})
	if err != nil {
		return nil, err
	}
	return res.Response, nil
}

func build[V any](ctx context.Context, e *engine.Engine, key engine.Key[V]) (V, error) {
	if e == nil {
		return key.Compute(ctx)
	}
	return engine.Build(ctx, e, key)
}
