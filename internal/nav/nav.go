// ABOUTME: Static sidebar navigation entries and active-route matching
// ABOUTME: IsActive is pure so the sidebar needs no router dispatch logic

package nav

import (
	"path"
	"strings"
)

// Entry is one sidebar destination.
type Entry struct {
	Path  string
	Label string
	Icon  string
}

var entries = []Entry{
	{Path: "/", Label: "Dashboard", Icon: "layout-dashboard"},
	{Path: "/content", Label: "Content", Icon: "file-text"},
	{Path: "/project-1460", Label: "Project 1460", Icon: "rocket"},
	{Path: "/youtube-systems", Label: "YouTube Systems", Icon: "youtube"},
	{Path: "/linkedin-systems", Label: "LinkedIn Systems", Icon: "linkedin"},
	{Path: "/video-revenue", Label: "Video Revenue", Icon: "dollar-sign"},
	{Path: "/goals", Label: "Goals", Icon: "target"},
	{Path: "/settings", Label: "Settings", Icon: "settings"},
}

// Entries returns the sidebar entries in display order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// IsActive reports whether the entry at entryPath should be highlighted
// while currentPath is shown. The root entry matches only the root. Other
// entries match themselves and their sub-paths, on segment boundaries.
func IsActive(currentPath, entryPath string) bool {
	current := clean(currentPath)
	entry := clean(entryPath)

	if entry == "/" {
		return current == "/"
	}
	return current == entry || strings.HasPrefix(current, entry+"/")
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Item is an entry prepared for rendering.
type Item struct {
	Entry
	Active bool
}

// Items returns the sidebar entries with the active flag set for currentPath.
func Items(currentPath string) []Item {
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = Item{Entry: e, Active: IsActive(currentPath, e.Path)}
	}
	return items
}
