package views

import (
	"encoding/json"
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eringen/retreat/client"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// BlogPath is the site-relative URL of a blog's detail page.
func BlogPath(id string) string {
	return "/blog/" + url.PathEscape(id) + "/"
}

// CategoryPath is the listing URL filtered to category, keeping the search text.
func CategoryPath(category, search string) string {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("q", search)
	}
	if len(q) == 0 {
		return "/blogs/"
	}
	return "/blogs/?" + q.Encode()
}

// CategoryClass returns CSS classes for a category pill, with active variant.
func CategoryClass(active bool) string {
	base := "inline-flex items-center rounded border border-ink px-2.5 py-1 text-[11px] font-semibold uppercase tracking-[0.12em] transition"
	if active {
		base += " bg-ink text-white"
	}
	return base
}

var reTag = regexp.MustCompile(`<[^>]*>`)

// PlainText strips tags from the HTML body of a blog and collapses whitespace.
func PlainText(s string) string {
	s = html.UnescapeString(reTag.ReplaceAllString(s, " "))
	return strings.Join(strings.Fields(s), " ")
}

// Excerpt returns at most n runes of text, cut at a word boundary.
func Excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

// safeHref returns a link the author entered on their profile if it is an
// http(s) URL. Bare hosts get an https scheme.
func safeHref(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// FormatDate renders the service's created_at timestamp as "Jan 2, 2006".
// Unparseable values are returned unchanged.
func FormatDate(s string) string {
	t, ok := ParseCreatedAt(s)
	if !ok {
		return s
	}
	return t.Format("Jan 2, 2006")
}

// ParseCreatedAt parses the timestamp formats the blog service emits.
func ParseCreatedAt(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a blog.
func BlogPostingJsonLD(cfg SiteConfig, detail client.BlogDetail) string {
	postURL := buildURL(cfg.URL, "blog", detail.Blog.ID)
	data := map[string]interface{}{
		"@context":       "https://schema.org",
		"@type":          "BlogPosting",
		"headline":       detail.Blog.Title,
		"description":    detail.Blog.Description,
		"articleSection": detail.Blog.Category,
		"url":            postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if t, ok := ParseCreatedAt(detail.Blog.CreatedAt); ok {
		data["datePublished"] = t.Format(time.RFC3339)
	}
	if detail.Author.Name != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  detail.Author.Name,
		}
	}
	if detail.Blog.Image != "" {
		data["image"] = detail.Blog.Image
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
