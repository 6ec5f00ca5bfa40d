// Package markdown converts the Markdown drafts written in a terminal into the
// HTML body the blog service stores for a post.
package markdown

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	reBold        = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	reItalic      = regexp.MustCompile(`\*([^*]+)\*|_([^_]+)_`)
	reInlineCode  = regexp.MustCompile("`([^`]+)`")
	reImg         = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	reLink        = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reOrderedItem = regexp.MustCompile(`^\d+\.\s`)
)

// ToHTML renders md as HTML. Raw HTML in md is escaped.
func ToHTML(md string) string {
	var r renderer
	for _, raw := range strings.Split(md, "\n") {
		r.line(strings.TrimRight(raw, "\r"))
	}
	r.close()
	return r.buf.String()
}

// renderer tracks the single block element currently open.
type renderer struct {
	buf  strings.Builder
	open string // "", "p", "ul", "ol", "blockquote" or "pre"
}

func (r *renderer) line(line string) {
	if strings.HasPrefix(line, "```") {
		if r.open == "pre" {
			r.close()
			return
		}
		r.close()
		if lang := strings.TrimSpace(line[3:]); lang != "" {
			r.buf.WriteString(`<pre><code class="language-` + html.EscapeString(lang) + `">`)
		} else {
			r.buf.WriteString("<pre><code>")
		}
		r.open = "pre"
		return
	}
	if r.open == "pre" {
		r.buf.WriteString(html.EscapeString(line))
		r.buf.WriteByte('\n')
		return
	}

	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		r.close()
	case trimmed == "---":
		r.close()
		r.buf.WriteString("<hr/>")
	case strings.HasPrefix(line, "### "):
		r.heading(3, line[4:])
	case strings.HasPrefix(line, "## "):
		r.heading(2, line[3:])
	case strings.HasPrefix(line, "# "):
		r.heading(1, line[2:])
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
		r.enter("ul")
		r.buf.WriteString("<li>" + Inline(strings.TrimSpace(line[2:])) + "</li>")
	case reOrderedItem.MatchString(line):
		r.enter("ol")
		r.buf.WriteString("<li>" + Inline(strings.TrimSpace(reOrderedItem.ReplaceAllString(line, ""))) + "</li>")
	case strings.HasPrefix(line, "> "):
		if !r.enter("blockquote") {
			r.buf.WriteByte(' ')
		}
		r.buf.WriteString(Inline(strings.TrimSpace(line[2:])))
	default:
		if !r.enter("p") {
			r.buf.WriteByte(' ')
		}
		r.buf.WriteString(Inline(trimmed))
	}
}

func (r *renderer) heading(level int, text string) {
	r.close()
	n := strconv.Itoa(level)
	r.buf.WriteString("<h" + n + ">" + Inline(strings.TrimSpace(text)) + "</h" + n + ">")
}

// enter opens tag unless it is already open. It reports whether it opened it.
func (r *renderer) enter(tag string) bool {
	if r.open == tag {
		return false
	}
	r.close()
	r.buf.WriteString("<" + tag + ">")
	r.open = tag
	return true
}

func (r *renderer) close() {
	switch r.open {
	case "":
		return
	case "pre":
		r.buf.WriteString("</code></pre>")
	default:
		r.buf.WriteString("</" + r.open + ">")
	}
	r.open = ""
}

// Inline escapes s and applies code spans, images, links, bold and italic.
func Inline(s string) string {
	out := html.EscapeString(s)

	// Code spans are swapped for placeholders so no other rule touches them.
	var spans []string
	out = reInlineCode.ReplaceAllStringFunc(out, func(m string) string {
		spans = append(spans, "<code>"+reInlineCode.FindStringSubmatch(m)[1]+"</code>")
		return "\x00" + strconv.Itoa(len(spans)-1) + "\x00"
	})

	out = reImg.ReplaceAllStringFunc(out, func(m string) string {
		match := reImg.FindStringSubmatch(m)
		src := SafeURL(match[2])
		if src == "" {
			return match[1]
		}
		return `<img src="` + src + `" alt="` + match[1] + `" loading="lazy"/>`
	})
	out = reLink.ReplaceAllStringFunc(out, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		return `<a href="` + href + `" rel="noopener noreferrer">` + match[1] + `</a>`
	})

	out = outsideTags(out, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1$2</strong>")
		return reItalic.ReplaceAllString(seg, "<em>$1$2</em>")
	})

	for i, code := range spans {
		out = strings.Replace(out, "\x00"+strconv.Itoa(i)+"\x00", code, 1)
	}
	return out
}

// outsideTags applies fn to the text between HTML tags only.
func outsideTags(s string, fn func(string) string) string {
	var b strings.Builder
	for len(s) > 0 {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(fn(s))
			break
		}
		b.WriteString(fn(s[:lt]))
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			b.WriteString(s[lt:])
			break
		}
		b.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return b.String()
}

// SafeURL returns raw HTML-escaped if it is a relative URL or uses an http,
// https or mailto scheme, and "" otherwise.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	u, err := url.Parse(val)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return html.EscapeString(val)
	}
	return ""
}
