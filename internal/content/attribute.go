package content

import (
	"encoding/json"
	"time"
)

// AttributeKind tags the value held by an Attribute.
type AttributeKind string

const (
	KindTimestamp     AttributeKind = "timestamp"
	KindDocumentation AttributeKind = "documentation"
	KindString        AttributeKind = "string"
	KindJSON          AttributeKind = "json"
	KindList          AttributeKind = "list"
	KindPrompt        AttributeKind = "prompt"
)

// Well-known attribute names.
const (
	AttrCreatedAt = "createdAt"
	AttrCategory  = "category"
	AttrCover     = "cover"
	AttrMetadata  = "GPT"
	AttrTags      = "tags"
)

// DefaultCategory is used for nodes without a category attribute.
const DefaultCategory = "No category"

// Attribute is a named, tagged value. Documentation and prompt attributes are
// usually unnamed.
type Attribute struct {
	Name string
	Kind AttributeKind
	Time time.Time
	Text string
	List []Attribute
}

// Timestamp returns a timestamp attribute.
func Timestamp(name string, t time.Time) Attribute {
	return Attribute{Name: name, Kind: KindTimestamp, Time: t}
}

// Documentation returns a free-text documentation attribute.
func Documentation(text string) Attribute {
	return Attribute{Kind: KindDocumentation, Text: text}
}

// String returns a string attribute.
func String(name, value string) Attribute {
	return Attribute{Name: name, Kind: KindString, Text: value}
}

// JSON returns an attribute holding a JSON document.
func JSON(name, doc string) Attribute {
	return Attribute{Name: name, Kind: KindJSON, Text: doc}
}

// List returns a list attribute.
func List(name string, items ...Attribute) Attribute {
	return Attribute{Name: name, Kind: KindList, List: items}
}

// StringList returns a list attribute of string items.
func StringList(name string, values []string) Attribute {
	items := make([]Attribute, len(values))
	for i, v := range values {
		items[i] = String("", v)
	}
	return List(name, items...)
}

// Prompt returns a prompt-directive attribute.
func Prompt(text string) Attribute {
	return Attribute{Kind: KindPrompt, Text: text}
}

// Strings returns the text of every string item of a list attribute.
func (a Attribute) Strings() []string {
	out := make([]string, 0, len(a.List))
	for _, item := range a.List {
		if item.Kind == KindString {
			out = append(out, item.Text)
		}
	}
	return out
}

type attributeJSON struct {
	Name  string `json:"name,omitempty"`
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// MarshalJSON encodes the attribute as {name, kind, value}.
func (a Attribute) MarshalJSON() ([]byte, error) {
	out := attributeJSON{Name: a.Name, Kind: string(a.Kind)}
	switch a.Kind {
	case KindTimestamp:
		out.Value = a.Time.UTC().Format(time.RFC3339)
	case KindList:
		items := a.List
		if items == nil {
			items = []Attribute{}
		}
		out.Value = items
	case KindJSON:
		if json.Valid([]byte(a.Text)) {
			out.Value = json.RawMessage(a.Text)
		} else {
			out.Value = a.Text
		}
	default:
		out.Value = a.Text
	}
	return json.Marshal(out)
}
