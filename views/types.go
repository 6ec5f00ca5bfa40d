package views

import (
	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/state"
)

// SiteConfig holds the site-wide settings templates need.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}

// Page is the per-request frame every full page is rendered in.
type Page struct {
	Site    SiteConfig
	Meta    PageMeta
	User    *client.User // nil when signed out
	CSRF    string
	Notices []state.Notice
	Path    string
	Google  bool // Google sign-in is configured
}

// Listing is the blog index: the current filter, its results and the
// category sidebar.
type Listing struct {
	Blogs      []client.Blog // nil while the first fetch is pending
	Filter     state.Filter
	Categories []CategoryCount
	Saved      map[string]bool
}

// CategoryCount is a sidebar entry. Count is -1 when unknown.
type CategoryCount struct {
	Name  string
	Count int
}
