package views

import (
	"encoding/json"

	"github.com/a-h/templ"

	"github.com/eringen/retreat/state"
)

// NewBlog is the editor for a blog draft. The text fields are bound to
// datastar signals so the AI assist endpoints can rewrite them in place; the
// form itself posts as multipart so an image can be attached.
func NewBlog(p Page, d state.Draft, categories []string, publishing bool) templ.Component {
	return Layout(p, component(func(m *markup) {
		signals, _ := json.Marshal(map[string]any{
			"title":       d.Title,
			"description": d.Description,
			"category":    d.Category,
			"content":     d.Content,
			"assisting":   false,
		})
		m.raw(`<h1 class="mb-6 text-2xl font-bold">Write a blog</h1>`)
		m.raw(`<form method="post" action="/blog/new/" enctype="multipart/form-data" class="grid gap-4"`)
		m.attr("data-signals", string(signals))
		m.raw(`>`)
		csrfField(m, p.CSRF)

		m.raw(`<label class="grid gap-1"><span class="flex items-center justify-between">Title`)
		assistButton(m, p.CSRF, "title", "Polish title")
		m.raw(`</span><input name="title" required class="border border-ink px-3 py-2" data-bind:title`)
		m.attr("value", d.Title)
		m.raw(`/></label>`)

		m.raw(`<label class="grid gap-1"><span class="flex items-center justify-between">Description`)
		assistButton(m, p.CSRF, "description", "Generate description")
		m.raw(`</span><textarea name="description" rows="3" required class="border border-ink px-3 py-2" data-bind:description>`)
		m.text(d.Description)
		m.raw(`</textarea></label>`)

		m.raw(`<label class="grid gap-1">Category<select name="category" required class="border border-ink px-3 py-2" data-bind:category>`)
		m.raw(`<option value="">Select a category</option>`)
		for _, c := range categories {
			m.raw(`<option`)
			m.attr("value", c)
			if c == d.Category {
				m.raw(` selected`)
			}
			m.raw(`>`)
			m.text(c)
			m.raw(`</option>`)
		}
		m.raw(`</select></label>`)

		m.raw(`<label class="grid gap-1">Image<input type="file" name="image" accept="image/*"/></label>`)

		m.raw(`<label class="grid gap-1"><span class="flex items-center justify-between">Content`)
		assistButton(m, p.CSRF, "content", "Fix grammar")
		m.raw(`</span><textarea name="content" rows="16" required class="border border-ink px-3 py-2 font-mono" data-bind:content>`)
		m.text(d.Content)
		m.raw(`</textarea></label>`)

		m.raw(`<button type="submit" class="border border-ink bg-ink px-4 py-2 text-white"`)
		if publishing {
			m.raw(` disabled`)
		}
		m.raw(`>Publish</button></form>`)
	}))
}

func assistButton(m *markup, csrf, field, label string) {
	action := "@post('/blog/new/ai/" + field + "', {headers: {'X-CSRF-Token': '" + csrf + "'}})"
	m.raw(`<button type="button" class="text-xs underline" data-indicator:assisting data-attr:disabled="$assisting"`)
	m.attr("data-on:click", action)
	m.raw(`>`)
	m.text(label)
	m.raw(`</button>`)
}
