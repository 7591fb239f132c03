package site

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	pageTmpl  = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/page.html"))
	indexTmpl = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/index.html"))
)

type pageData struct {
	Title    string
	Sections []string
}

type groupData struct {
	Kind    string
	Key     string
	Count   int
	Summary string
	Renders []template.HTML
}

type cloudEntry struct {
	Tag   string
	Count int
}

type indexData struct {
	Title  string
	Groups []groupData
	Cloud  []cloudEntry
}

func renderPage(title string, sections []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, "layout", pageData{Title: title, Sections: sections}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderIndex(data indexData) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
