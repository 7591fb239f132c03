package fetch

import (
	"context"

	"github.com/hpungsan/docuverse/internal/errors"
)

// CompletionResult holds one response string per returned candidate.
type CompletionResult struct {
	Response []string `json:"response"`
}

// CompletionKey submits Prompt to the AI endpoint.
type CompletionKey struct {
	Prompt string `json:"prompt"`
	env    *Env
}

// NewCompletionKey binds a completion of prompt to env.
func NewCompletionKey(prompt string, env *Env) CompletionKey {
	return CompletionKey{Prompt: prompt, env: env}
}

func (CompletionKey) KeyType() string { return "FetchGPT" }
func (CompletionKey) Version() int    { return 4 }

// Compute waits a random jitter, then asks the generator. Zero candidates is a
// request error.
func (k CompletionKey) Compute(ctx context.Context) (CompletionResult, error) {
	if k.env == nil || k.env.Generator == nil {
		return CompletionResult{}, errors.NewInvalidRequest("no completion endpoint configured")
	}
	log := k.env.logger()
	log.Log(ctx, LevelCritical, "[AI] probing", "prompt", k.Prompt)

	if err := sleep(ctx, k.env.jitter()); err != nil {
		return CompletionResult{}, err
	}

	candidates, err := k.env.Generator.Generate(ctx, k.Prompt)
	if err != nil {
		return CompletionResult{}, err
	}
	if len(candidates) == 0 {
		return CompletionResult{}, errors.NewRequestFailed("AI did not return any response", nil)
	}

	res := make([]string, 0, len(candidates))
	for _, c := range candidates {
		res = append(res, c.Text())
	}

	log.Log(ctx, LevelCritical, "[AI] response", "candidates", res)
	return CompletionResult{Response: res}, nil
}
