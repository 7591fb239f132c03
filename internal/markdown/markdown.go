// Package markdown tokenizes markdown documents into leveled outline items and
// renders markdown to HTML.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/hpungsan/docuverse/internal/outline"
)

// BlockKind classifies a top-level block.
type BlockKind string

const (
	KindHeading   BlockKind = "heading"
	KindParagraph BlockKind = "paragraph"
	KindListItem  BlockKind = "list_item"
	KindCode      BlockKind = "code"
	KindOther     BlockKind = "other"
)

// Block is one tokenized top-level element.
type Block struct {
	Kind BlockKind `json:"kind"`
	// Text is the plain text of headings, paragraphs and list items, or the
	// raw contents of a code block.
	Text string `json:"text"`
	// Source is the block's markdown source.
	Source   string `json:"source"`
	Language string `json:"language,omitempty"`
	Level    int    `json:"level"`
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Items splits src into outline items. Headings keep their text and level;
// every list item and every other block becomes a LeafLevel item named by
// its markdown source.
func Items(src []byte) []outline.Item[Block] {
	doc := md.Parser().Parse(text.NewReader(src))

	var items []outline.Item[Block]
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *gmast.Heading:
			b := Block{Kind: KindHeading, Text: PlainText(n, src), Source: source(n, src), Level: n.Level}
			items = append(items, outline.Item[Block]{Name: b.Text, Element: b, Level: n.Level})
		case *gmast.List:
			for li := n.FirstChild(); li != nil; li = li.NextSibling() {
				b := Block{Kind: KindListItem, Text: PlainText(li, src), Source: source(li, src), Level: outline.LeafLevel}
				items = append(items, outline.Item[Block]{Name: b.Source, Element: b, Level: outline.LeafLevel})
			}
		default:
			b := toBlock(child, src)
			items = append(items, outline.Item[Block]{Name: b.Source, Element: b, Level: outline.LeafLevel})
		}
	}
	return items
}

// Build tokenizes src and nests it into an outline forest.
func Build(src []byte) []*outline.Tree[Block] {
	return outline.Build(Items(src))
}

func toBlock(n gmast.Node, src []byte) Block {
	switch v := n.(type) {
	case *gmast.Paragraph:
		return Block{Kind: KindParagraph, Text: PlainText(v, src), Source: source(v, src), Level: outline.LeafLevel}
	case *gmast.FencedCodeBlock:
		lang := string(v.Language(src))
		code := rawLines(v, src)
		return Block{
			Kind:     KindCode,
			Text:     code,
			Source:   fmt.Sprintf("```%s\n%s```", lang, code),
			Language: lang,
			Level:    outline.LeafLevel,
		}
	case *gmast.CodeBlock:
		code := rawLines(v, src)
		return Block{Kind: KindCode, Text: code, Source: strings.TrimRight(source(v, src), " \t\n"), Level: outline.LeafLevel}
	case *gmast.ThematicBreak:
		return Block{Kind: KindOther, Source: "---", Level: outline.LeafLevel}
	default:
		s := source(n, src)
		if s == "" {
			// Tables keep their text in inline segments only
			s = PlainText(n, src)
		}
		return Block{Kind: KindOther, Text: s, Source: s, Level: outline.LeafLevel}
	}
}

// rawLines returns a leaf block's lines verbatim.
func rawLines(n gmast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// source returns the markdown text spanned by n: from the start of the line
// holding its first segment to the end of its last segment. Extending to the
// line start keeps list markers, heading hashes and quote prefixes.
func source(n gmast.Node, src []byte) string {
	start, stop := -1, -1
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering || c.Type() != gmast.TypeBlock {
			return gmast.WalkContinue, nil
		}
		lines := c.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if start < 0 || seg.Start < start {
				start = seg.Start
			}
			if seg.Stop > stop {
				stop = seg.Stop
			}
		}
		return gmast.WalkContinue, nil
	})
	if start < 0 {
		return ""
	}
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	return strings.TrimRight(string(src[start:stop]), " \t\r\n")
}

// PlainText returns the text content of n with markup removed. Soft line
// breaks become spaces; separate blocks are separated by newlines.
func PlainText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			if c.Type() == gmast.TypeBlock && c != n && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
			return gmast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *gmast.Text:
			b.Write(v.Segment.Value(src))
			if v.HardLineBreak() {
				b.WriteByte('\n')
			} else if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(v.Value)
		case *gmast.AutoLink:
			b.Write(v.Label(src))
			return gmast.WalkSkipChildren, nil
		case *gmast.RawHTML, *gmast.HTMLBlock:
			return gmast.WalkSkipChildren, nil
		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			b.WriteString(rawLines(c, src))
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// ToHTML renders markdown to HTML.
func ToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
