// ABOUTME: Static route table for the authenticated shell's content pages
// ABOUTME: Page bodies are embedded markdown rendered once with goldmark

package routes

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/yuin/goldmark"
)

//go:embed pages/*.md
var pageFS embed.FS

// Route maps a path to a placeholder content page.
type Route struct {
	Path  string
	Title string
	page  string
}

// Page is a rendered content page.
type Page struct {
	Path  string
	Title string
	Body  template.HTML
}

var table = []Route{
	{Path: "/", Title: "Dashboard", page: "dashboard"},
	{Path: "/content", Title: "Content", page: "content"},
	{Path: "/project-1460", Title: "Project 1460", page: "project-1460"},
	{Path: "/youtube-systems", Title: "YouTube Systems", page: "youtube-systems"},
	{Path: "/linkedin-systems", Title: "LinkedIn Systems", page: "linkedin-systems"},
	{Path: "/video-revenue", Title: "Video Revenue", page: "video-revenue"},
	{Path: "/goals", Title: "Goals", page: "goals"},
	{Path: "/settings", Title: "Settings", page: "settings"},
}

var (
	renderOnce sync.Once
	rendered   map[string]Page
	renderErr  error
)

// Paths returns every routed path in table order.
func Paths() []string {
	paths := make([]string, len(table))
	for i, r := range table {
		paths[i] = r.Path
	}
	return paths
}

// Lookup returns the page for path. Only exact paths match.
func Lookup(path string) (Page, bool) {
	pages, err := load()
	if err != nil {
		return Page{}, false
	}
	p, ok := pages[path]
	return p, ok
}

// Load renders all pages, reporting the first failure. Servers call it at
// startup so a broken page fails fast instead of at first request.
func Load() error {
	_, err := load()
	return err
}

func load() (map[string]Page, error) {
	renderOnce.Do(func() {
		rendered, renderErr = renderAll()
	})
	return rendered, renderErr
}

func renderAll() (map[string]Page, error) {
	md := goldmark.New()
	pages := make(map[string]Page, len(table))

	for _, r := range table {
		src, err := pageFS.ReadFile("pages/" + r.page + ".md")
		if err != nil {
			return nil, fmt.Errorf("reading page %s: %w", r.page, err)
		}

		var buf bytes.Buffer
		if err := md.Convert(src, &buf); err != nil {
			return nil, fmt.Errorf("rendering page %s: %w", r.page, err)
		}

		pages[r.Path] = Page{
			Path:  r.Path,
			Title: r.Title,
			Body:  template.HTML(buf.String()),
		}
	}

	return pages, nil
}
