package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hpungsan/docuverse/internal/content"
)

// Metadata is the structured augmentation the AI suggests for a post.
type Metadata struct {
	Title                 string   `json:"title,omitempty"`
	Slug                  string   `json:"slug,omitempty"`
	Tags                  []string `json:"tags,omitempty"`
	Summary               string   `json:"summary,omitempty"`
	Categories            []string `json:"categories,omitempty"`
	Quality               *float64 `json:"quality,omitempty"`
	ImageURLs             []string `json:"imageURLs,omitempty"`
	RelatedWikipediaPages []string `json:"relatedWikipediaPages,omitempty"`
	Pinned                *bool    `json:"pinned,omitempty"`
	Chi                   string   `json:"chi,omitempty"`
}

// DecodeMetadata parses a metadata JSON document.
func DecodeMetadata(doc string) (Metadata, error) {
	var m Metadata
	err := json.Unmarshal([]byte(doc), &m)
	return m, err
}

// FetchMetadata asks the AI for metadata on p, one record per candidate. A
// candidate that does not decode becomes a record titled "Unable to decode".
func FetchMetadata(ctx context.Context, c content.Completer, p Post, tl *Timeline) ([]Metadata, error) {
	responses, err := c.Complete(ctx, MetadataPrompt(p, tl))
	if err != nil {
		return nil, err
	}
	out := make([]Metadata, 0, len(responses))
	for _, r := range responses {
		m, err := DecodeMetadata(stripFence(r))
		if err != nil {
			m = Metadata{Title: "Unable to decode " + r}
		}
		out = append(out, m)
	}
	return out, nil
}

// stripFence removes a surrounding ```json fence.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	lines := strings.Split(t, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// MetadataPrompt asks for metadata on the post body and its comments.
func MetadataPrompt(p Post, tl *Timeline) string {
	var comments []string
	for _, id := range p.Comments {
		if c, ok := tl.FindComment(id); ok {
			comments = append(comments, c.Body)
		}
	}
	return fmt.Sprintf(metadataTemplate, p.Body, strings.Join(comments, "\n\n"))
}

const metadataTemplate = "Here is a blog post (more like a wiki page). Suggest a\n" +
	"* `title`\n" +
	"* `slug`\n" +
	"* `tags`\n" +
	"* `summary` (A multiline string in Markdown containing short text and key points as bullet items)\n" +
	"* `categories`\n" +
	"* `imageURLs`: [String]             A list of valid image URLs from Wikipedia and Wikipedia Commons that match the summary\n" +
	"* `relatedWikipediaPages`: [String]     (a list of string URLs)\n" +
	"* `quality`: Int    A floating number from 0 to 1000 describing its `quality` (polish, articulation, depth of the writing). If the content is in draft mode, give it a below 500 score.\n" +
	"* `pinned`: Bool    If I had 500 blog posts and wanted to pick 3-5 starred posts, would you pick this blog post in this exact shape and form?\n" +
	"* `chi`: String     Pretend you are a reviewer for CHI conference. Provide a review and critique of this submission and rate it based on strongly against to strongly pro. Make sure to provide suggestions to improve the work.\n" +
	"\n" +
	"Give that in JSON format. (Use emojis but not in slugs. Keep it sharp but light).\n" +
	"Make sure values in JSON are properly escaped.\n" +
	"\n" +
	"Make sure tags are in slug format. Ensure the output can be parsed using an off-the-shelf JSON parser AS IS. Do not include extra markdown in there. Pure JSON. DO NOT include triple backticks in the answer.\n" +
	"\n" +
	"```blog-post\n%s\n\n%s\n```\n"
