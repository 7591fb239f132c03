// Package ai talks to a generative completion endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hpungsan/docuverse/internal/errors"
)

// Candidate is one completion returned for a prompt.
type Candidate struct {
	Parts []string
}

// Text joins the candidate's parts with spaces.
func (c Candidate) Text() string {
	return strings.Join(c.Parts, " ")
}

// Generator produces completion candidates for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]Candidate, error)
}

// noText stands in for a part that carries no text (inline data, function calls).
const noText = "<No text>"

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

// NewGemini returns a Gemini client with a bounded HTTP timeout.
func NewGemini(baseURL, model, apiKey string) *Gemini {
	return &Gemini{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text *string `json:"text,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, prompt string) ([]Candidate, error) {
	if g.APIKey == "" {
		return nil, errors.NewInvalidRequest("GEMINI_API_KEY is required")
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: &prompt}}}}})
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.BaseURL, url.PathEscape(g.Model), url.QueryEscape(g.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewRequestFailed(fmt.Sprintf("invalid completion endpoint: %v", err), nil)
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewRequestFailed(fmt.Sprintf("completion request failed: %v", err), nil)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewRequestFailed(fmt.Sprintf("read completion response: %v", err), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewRequestFailed(
			fmt.Sprintf("completion endpoint returned status %d", resp.StatusCode),
			map[string]any{"status": resp.StatusCode},
		)
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, errors.NewDecodeFailed("completion response", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Candidates))
	for _, c := range parsed.Candidates {
		parts := make([]string, 0, len(c.Content.Parts))
		for _, p := range c.Content.Parts {
			if p.Text == nil {
				parts = append(parts, noText)
				continue
			}
			parts = append(parts, *p.Text)
		}
		candidates = append(candidates, Candidate{Parts: parts})
	}
	return candidates, nil
}

// Static returns fixed candidates, or the result of Func when set.
// Used for offline runs and tests.
type Static struct {
	Candidates []Candidate
	Err        error
	Func       func(prompt string) ([]Candidate, error)
}

// Generate implements Generator.
func (s *Static) Generate(ctx context.Context, prompt string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Func != nil {
		return s.Func(prompt)
	}
	return s.Candidates, s.Err
}

// Texts builds one single-part candidate per text.
func Texts(texts ...string) []Candidate {
	out := make([]Candidate, len(texts))
	for i, t := range texts {
		out[i] = Candidate{Parts: []string{t}}
	}
	return out
}
