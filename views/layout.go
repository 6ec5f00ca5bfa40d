package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/retreat/state"
)

// DatastarScript is the datastar client bundle the layout loads.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Layout wraps body in the document shell: head metadata, navigation and
// the notice area.
func Layout(p Page, body templ.Component) templ.Component {
	return component(func(m *markup) {
		title := p.Site.Name
		if p.Meta.Title != "" {
			title = p.Meta.Title + " · " + p.Site.Name
		}
		desc := p.Meta.Description
		if desc == "" {
			desc = p.Site.Description
		}
		ogType := p.Meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		m.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/>`)
		m.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		m.raw(`<title>`)
		m.text(title)
		m.raw(`</title><meta name="description"`)
		m.attr("content", desc)
		m.raw(`/><meta property="og:title"`)
		m.attr("content", title)
		m.raw(`/><meta property="og:type"`)
		m.attr("content", ogType)
		m.raw(`/>`)
		if p.Meta.URL != "" {
			m.raw(`<link rel="canonical"`)
			m.attr("href", p.Meta.URL)
			m.raw(`/><meta property="og:url"`)
			m.attr("content", p.Meta.URL)
			m.raw(`/>`)
		}
		m.raw(`<meta name="csrf-token"`)
		m.attr("content", p.CSRF)
		m.raw(`/><link rel="alternate" type="application/rss+xml" href="/feed.xml"`)
		m.attr("title", p.Site.Name)
		m.raw(`/><link rel="stylesheet" href="/public/styles.css"/>`)
		m.raw(`<link rel="icon" type="image/svg+xml" href="/favicon.svg"/>`)
		m.raw(`<script type="module"`)
		m.attr("src", DatastarScript)
		m.raw(`></script>`)
		m.raw(`<script type="application/ld+json">`, WebsiteJsonLD(p.Site), `</script>`)
		m.raw(`</head><body class="min-h-screen bg-stone-50 text-ink">`)

		nav(m, p)

		m.raw(`<div id="notices">`)
		m.render(Notices(p.Notices))
		m.raw(`</div><main class="mx-auto max-w-5xl px-4 py-8">`)
		m.render(body)
		m.raw(`</main><footer class="mx-auto max-w-5xl px-4 py-8 text-xs">`)
		m.text(p.Site.Name)
		m.raw(` · <a href="/feed.xml">RSS</a></footer></body></html>`)
	})
}

func nav(m *markup, p Page) {
	m.raw(`<header class="border-b border-ink"><nav class="mx-auto flex max-w-5xl items-center gap-4 px-4 py-3">`)
	m.raw(`<a href="/blogs/" class="font-bold">`)
	m.text(p.Site.Name)
	m.raw(`</a><span class="flex-1"></span>`)
	if p.User == nil {
		m.raw(`<a href="/login/">Login</a><a href="/register/">Register</a>`)
	} else {
		m.raw(`<a href="/blog/new/">Write</a><a href="/blog/saved/">Saved</a><a href="/profile/">`)
		m.text(p.User.Name)
		m.raw(`</a><form method="post" action="/logout/">`)
		csrfField(m, p.CSRF)
		m.raw(`<button type="submit">Logout</button></form>`)
	}
	m.raw(`</nav></header>`)
}

func csrfField(m *markup, token string) {
	m.raw(`<input type="hidden" name="_csrf"`)
	m.attr("value", token)
	m.raw(`/>`)
}

// Notices renders action feedback as dismissible banners.
func Notices(notices []state.Notice) templ.Component {
	return component(func(m *markup) {
		for _, n := range notices {
			class := "notice notice-success"
			role := "status"
			if n.Level == state.LevelError {
				class = "notice notice-error"
				role = "alert"
			}
			m.raw(`<div`)
			m.attr("class", class)
			m.attr("role", role)
			m.raw(`>`)
			m.text(n.Message)
			m.raw(`</div>`)
		}
	})
}

// NotFound is rendered for unknown routes and missing blogs.
func NotFound(site SiteConfig) templ.Component {
	return errorPage(site, "Not found", "The page you are looking for does not exist.")
}

// ServerError is rendered when a handler fails unexpectedly.
func ServerError(site SiteConfig) templ.Component {
	return errorPage(site, "Something went wrong", "Please try again in a moment.")
}

func errorPage(site SiteConfig, heading, detail string) templ.Component {
	body := component(func(m *markup) {
		m.raw(`<section class="py-16 text-center"><h1 class="text-3xl font-bold">`)
		m.text(heading)
		m.raw(`</h1><p class="mt-4">`)
		m.text(detail)
		m.raw(`</p><p class="mt-8"><a href="/blogs/" class="underline">Back to blogs</a></p></section>`)
	})
	return Layout(Page{Site: site, Meta: PageMeta{Title: heading}}, body)
}
