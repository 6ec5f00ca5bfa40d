package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// markup writes HTML to w and keeps the first error.
type markup struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (m *markup) raw(parts ...string) {
	for _, s := range parts {
		if m.err != nil {
			return
		}
		_, m.err = io.WriteString(m.w, s)
	}
}

func (m *markup) text(s string) {
	m.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (m *markup) attr(name, value string) {
	m.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (m *markup) render(c templ.Component) {
	if m.err == nil && c != nil {
		m.err = c.Render(m.ctx, m.w)
	}
}

// component adapts fn to a templ.Component.
func component(fn func(m *markup)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{ctx: ctx, w: w}
		fn(m)
		return m.err
	})
}
