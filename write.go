package retreat

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/eringen/retreat/state"
	"github.com/eringen/retreat/views"
)

func (a *App) writeMeta() views.PageMeta {
	return views.PageMeta{
		Title:  "Write",
		URL:    BuildURL(a.Config.URL, "blog", "new"),
		OGType: "website",
	}
}

func (a *App) handleNewBlog(c echo.Context) error {
	return Render(c, views.NewBlog(a.page(c, a.writeMeta()), state.Draft{}, state.Categories, false))
}

// handlePublish creates a blog from the multipart editor form. The image is
// optional; when present it is downscaled and re-encoded before upload.
func (a *App) handlePublish(c echo.Context) error {
	vis := visitorFrom(c)
	ctx := c.Request().Context()
	draft := state.Draft{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
		Content:     c.FormValue("content"),
	}

	image, err := formImage(c, "image")
	switch {
	case errors.Is(err, errNoImage):
		image = nil
	case err != nil:
		vis.Inbox.Notify(ctx, state.Notice{Level: state.LevelError, Message: "Could not read the image: " + err.Error()})
		return RenderStatus(c, http.StatusUnprocessableEntity,
			views.NewBlog(a.page(c, a.writeMeta()), draft, state.Categories, false))
	}

	if err := vis.Provider.Publish(ctx, draft, image); err != nil {
		c.Logger().Warnf("publish: %v", err)
		return RenderStatus(c, http.StatusUnprocessableEntity,
			views.NewBlog(a.page(c, a.writeMeta()), draft, state.Categories, false))
	}

	// The blog service indexes new posts asynchronously.
	time.AfterFunc(a.Config.RefreshDelay, a.Feed.Invalidate)
	return c.Redirect(http.StatusSeeOther, "/blogs/")
}

// handleAssist runs one AI helper against the editor's signals and patches
// the rewritten field back. The field is left untouched when the call fails.
func (a *App) handleAssist(c echo.Context) error {
	vis := visitorFrom(c)
	ctx := c.Request().Context()

	var draft state.Draft
	if err := datastar.ReadSignals(c.Request(), &draft); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signals")
	}

	field := c.Param("field")
	var assist func(context.Context, *state.Draft) error
	switch field {
	case "title":
		assist = vis.Provider.PolishTitle
	case "description":
		assist = vis.Provider.GenerateDescription
	case "content":
		assist = vis.Provider.FixGrammar
	default:
		return echo.NewHTTPError(http.StatusNotFound)
	}
	err := assist(ctx, &draft)
	if errors.Is(err, state.ErrBusy) {
		return c.NoContent(http.StatusConflict)
	}

	notices := vis.Inbox.Drain()
	sse := datastar.NewSSE(c.Response(), c.Request())
	if err == nil {
		if perr := sse.MarshalAndPatchSignals(map[string]string{field: draftField(draft, field)}); perr != nil {
			return perr
		}
	}
	if len(notices) > 0 {
		return sse.PatchElementTempl(views.Notices(notices), datastar.WithSelectorID("notices"), datastar.WithModeInner())
	}
	return nil
}

func draftField(d state.Draft, field string) string {
	switch field {
	case "title":
		return d.Title
	case "description":
		return d.Description
	}
	return d.Content
}
