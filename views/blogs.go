package views

import (
	"encoding/json"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/state"
)

// Blogs is the listing page: search box, category sidebar and blog grid.
// Filter changes refetch through /blogs/filter, which patches #blog-grid.
func Blogs(p Page, l Listing) templ.Component {
	return Layout(p, component(func(m *markup) {
		signals, _ := json.Marshal(map[string]any{
			"search":   l.Filter.SearchQuery,
			"category": l.Filter.Category,
			"loading":  false,
		})
		m.raw(`<div class="grid gap-8 md:grid-cols-[200px_1fr]"`)
		m.attr("data-signals", string(signals))
		m.raw(`>`)

		m.raw(`<aside><h2 class="mb-3 text-sm font-bold uppercase">Categories</h2><ul id="categories" class="flex flex-wrap gap-2 md:flex-col">`)
		m.render(CategoryList(l))
		m.raw(`</ul></aside>`)

		m.raw(`<section><form method="get" action="/blogs/" class="mb-6 flex gap-2" data-on:submit__prevent="@get('/blogs/filter')">`)
		m.raw(`<input type="search" name="q" placeholder="Search blogs" class="flex-1 border border-ink px-3 py-2"`)
		m.attr("value", l.Filter.SearchQuery)
		m.raw(` data-bind:search data-on:input__debounce.400ms="@get('/blogs/filter')" data-indicator:loading/>`)
		if l.Filter.Category != "" {
			m.raw(`<input type="hidden" name="category"`)
			m.attr("value", l.Filter.Category)
			m.raw(`/>`)
		}
		m.raw(`<button type="submit" class="border border-ink px-3">Search</button></form>`)
		m.raw(`<p data-show="$loading" class="text-sm">Loading…</p>`)
		m.raw(`<div id="blog-grid">`)
		m.render(BlogGrid(l))
		m.raw(`</div></section></div>`)
	}))
}

// CategoryList renders the sidebar entries, marking the active category.
func CategoryList(l Listing) templ.Component {
	return component(func(m *markup) {
		categoryLink(m, "All", "", l.Filter)
		for _, c := range l.Categories {
			label := c.Name
			if c.Count >= 0 {
				label += " (" + strconv.Itoa(c.Count) + ")"
			}
			categoryLink(m, label, c.Name, l.Filter)
		}
	})
}

func categoryLink(m *markup, label, category string, f state.Filter) {
	m.raw(`<li><a`)
	m.attr("href", CategoryPath(category, f.SearchQuery))
	m.attr("class", CategoryClass(f.Category == category))
	m.attr("data-on:click__prevent", "$category = '"+category+"'; @get('/blogs/filter')")
	m.raw(`>`)
	m.text(label)
	m.raw(`</a></li>`)
}

// BlogGrid renders the blog cards of a listing. It is patched into #blog-grid
// on every filter change.
func BlogGrid(l Listing) templ.Component {
	return component(func(m *markup) {
		switch {
		case l.Blogs == nil:
			m.raw(`<p class="py-8 text-center">Loading blogs…</p>`)
			return
		case len(l.Blogs) == 0:
			m.raw(`<p class="py-8 text-center">No blogs match your search.</p>`)
			return
		}
		m.raw(`<div class="grid gap-6 sm:grid-cols-2">`)
		for _, b := range l.Blogs {
			blogCard(m, b, l.Saved[b.ID])
		}
		m.raw(`</div>`)
	})
}

func blogCard(m *markup, b client.Blog, saved bool) {
	m.raw(`<article class="border border-ink bg-white">`)
	if b.Image != "" {
		m.raw(`<img loading="lazy" class="aspect-video w-full object-cover"`)
		m.attr("src", b.Image)
		m.attr("alt", b.Title)
		m.raw(`/>`)
	}
	m.raw(`<div class="p-4"><p class="text-xs uppercase">`)
	m.text(b.Category)
	m.raw(` · `)
	m.text(FormatDate(b.CreatedAt))
	if saved {
		m.raw(` · <span class="font-semibold">Saved</span>`)
	}
	m.raw(`</p><h3 class="mt-1 text-lg font-bold"><a`)
	m.attr("href", BlogPath(b.ID))
	m.raw(`>`)
	m.text(b.Title)
	m.raw(`</a></h3><p class="mt-2 text-sm">`)
	m.text(Excerpt(b.Description, 160))
	m.raw(`</p></div></article>`)
}

// Post is the detail page of one blog.
func Post(p Page, detail client.BlogDetail, saved bool) templ.Component {
	return Layout(p, component(func(m *markup) {
		b := detail.Blog
		m.raw(`<article class="mx-auto max-w-3xl"><p class="text-xs uppercase"><a`)
		m.attr("href", CategoryPath(b.Category, ""))
		m.raw(`>`)
		m.text(b.Category)
		m.raw(`</a> · `)
		m.text(FormatDate(b.CreatedAt))
		m.raw(`</p><h1 class="mt-2 text-4xl font-bold">`)
		m.text(b.Title)
		m.raw(`</h1><p class="mt-3 text-lg">`)
		m.text(b.Description)
		m.raw(`</p>`)

		authorCard(m, detail.Author)

		if p.User != nil {
			m.raw(`<form method="post" class="mt-4"`)
			m.attr("action", BlogPath(b.ID)+"save/")
			m.raw(`>`)
			csrfField(m, p.CSRF)
			if saved {
				m.raw(`<button type="submit" class="border border-ink px-3 py-1">Unsave</button>`)
			} else {
				m.raw(`<button type="submit" class="border border-ink px-3 py-1">Save</button>`)
			}
			m.raw(`</form>`)
		}
		if b.Image != "" {
			m.raw(`<img class="mt-6 w-full"`)
			m.attr("src", b.Image)
			m.attr("alt", b.Title)
			m.raw(`/>`)
		}
		m.raw(`<div class="prose mt-8">`)
		// Content is editor HTML stored by the blog service and rendered
		// unsanitized. Authors are signed-in users; the page CSP limits
		// scripts to self and the datastar CDN.
		m.render(templ.Raw(b.Content))
		m.raw(`</div></article>`)
		m.raw(`<script type="application/ld+json">`, BlogPostingJsonLD(p.Site, detail), `</script>`)
	}))
}

func authorCard(m *markup, u client.User) {
	if u.Name == "" {
		return
	}
	m.raw(`<div class="mt-6 flex items-center gap-3">`)
	if u.Image != "" {
		m.raw(`<img class="h-10 w-10 rounded-full object-cover" alt=""`)
		m.attr("src", u.Image)
		m.raw(`/>`)
	}
	m.raw(`<div><p class="font-semibold">`)
	m.text(u.Name)
	m.raw(`</p>`)
	if u.Bio != "" {
		m.raw(`<p class="text-sm">`)
		m.text(u.Bio)
		m.raw(`</p>`)
	}
	m.raw(`</div>`)
	for _, link := range []struct{ label, href string }{
		{"Instagram", u.Instagram},
		{"Facebook", u.Facebook},
		{"LinkedIn", u.LinkedIn},
	} {
		if href := safeHref(link.href); href != "" {
			m.raw(`<a rel="noopener noreferrer" target="_blank" class="text-sm underline"`)
			m.attr("href", href)
			m.raw(`>`)
			m.text(link.label)
			m.raw(`</a>`)
		}
	}
	m.raw(`</div>`)
}

// Saved lists the blogs the signed-in user has bookmarked.
func Saved(p Page, posts []client.Blog) templ.Component {
	return Layout(p, component(func(m *markup) {
		m.raw(`<div class="mb-6 flex items-center gap-4"><h1 class="text-2xl font-bold">Saved blogs</h1>`)
		if len(posts) > 0 {
			m.raw(`<a href="/blog/saved/export.xlsx" class="text-sm underline">Download spreadsheet</a>`)
		}
		m.raw(`</div>`)
		if len(posts) == 0 {
			m.raw(`<p>You have not saved any blogs yet.</p>`)
			return
		}
		m.render(BlogGrid(Listing{Blogs: posts}))
	}))
}
