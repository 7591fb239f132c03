package feed

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/errors"
)

// DefaultPrompt is the elaboration template used when none is configured.
const DefaultPrompt = "socratic"

var prompts = map[string]func(body string) string{
	"socratic": func(body string) string {
		return content.ElaborationPreamble + "\n\n" +
			"Think clearly about the following paragraph. Follow the philosophy that AI should challenge, not obey. Guide the reader via smart questions to think clearly:\n\n" +
			fence(body)
	},
	"interview": func(body string) string {
		return "Give interview question prompts that would test out the expertise of a candidate on the given problem.\n" +
			"Also provide creative response that top candidates provide to a question like this.\n\n" +
			strings.Replace(content.ElaborationPreamble, "valid Markdown syntax", "Markdown", 1) + "\n\n" +
			"Follow the philosophy that AI should challenge, not obey. Guide the reader via smart questions to think clearly.\n" +
			"The problem:\n\n" +
			fence(body)
	},
	"spanish": func(body string) string {
		return content.ElaborationPreamble + "\n\n" +
			"Use this quoted text as context to teach me basic Spanish. I'm a beginner but I can read some of the alphabet. My primary language is English and Farsi.\n\n" +
			"Make sure to unpack it for me and keep it fun. Use emojis as yet another layer that I can connect to. Feel free to mix Farsi, Spanish and English so I can remember better. Toss in some etymology to help me find the rhizome between natural languages.\n\n" +
			"Quoted text\n\n" +
			fence(body)
	},
	"farsi": func(body string) string {
		return content.ElaborationPreamble + "\n\n" +
			"Use this quoted text as context to teach me basic Farsi. I'm a beginner but I can read some of the alphabet. My primary language is English.\n\n" +
			"Make sure to unpack it for me and keep it fun. Use emojis as yet another layer that I can connect to. Feel free to mix Farsi and English so I can remember better.\n\n" +
			"Quoted text\n\n" +
			fence(body)
	},
	"toki-pona": func(body string) string {
		return content.ElaborationPreamble + "\n\n" +
			"Use this item extracted from my todo list to teach me toki pona. I'm a beginner.\n\n" +
			"Make sure to unpack it for me and keep it fun. Use emojis as yet another layer that I can connect to.\n\n" +
			fence(body)
	},
}

func fence(body string) string {
	return fmt.Sprintf("```\n%s\n```\n", body)
}

// PromptNames lists the available elaboration templates.
func PromptNames() []string {
	names := make([]string, 0, len(prompts))
	for n := range prompts {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Prompt renders the named elaboration template around body. An empty name
// selects DefaultPrompt.
func Prompt(name, body string) (string, error) {
	if name == "" {
		name = DefaultPrompt
	}
	tmpl, ok := prompts[name]
	if !ok {
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown elaboration prompt %q (want one of %s)", name, strings.Join(PromptNames(), ", ")))
	}
	return tmpl(body), nil
}
