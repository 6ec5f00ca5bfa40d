package retreat

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/state"
	"github.com/eringen/retreat/views"
)

func handleRoot(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/blogs/")
}

// handleBlogs renders the listing. The q and category query parameters
// replace the visitor's filter, so filtered listings are linkable.
func (a *App) handleBlogs(c echo.Context) error {
	vis := visitorFrom(c)
	ctx := c.Request().Context()

	if params := c.QueryParams(); params.Has("q") || params.Has("category") {
		vis.Provider.SetFilter(ctx, state.Filter{
			SearchQuery: c.QueryParam("q"),
			Category:    c.QueryParam("category"),
		})
	}
	l := a.listing(c, vis)
	if l.Blogs == nil {
		if l.Filter == (state.Filter{}) {
			// Unfiltered and not yet fetched: serve the shared cached listing.
			l.Blogs, _ = a.Feed.List(ctx)
		} else {
			_ = vis.Provider.FetchBlogs(ctx)
			l.Blogs = vis.Provider.Blogs()
		}
	}

	meta := views.PageMeta{
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL, "blogs"),
		OGType:      "website",
	}
	return Render(c, views.Blogs(a.page(c, meta), l))
}

// filterSignals are the datastar signals the listing's search form binds.
type filterSignals struct {
	Search   string `json:"search"`
	Category string `json:"category"`
}

// handleBlogsFilter applies the filter signals and patches the grid. The
// grid shows whatever collection is current once the fetch settles, which
// may be a newer request's.
func (a *App) handleBlogsFilter(c echo.Context) error {
	vis := visitorFrom(c)
	var sig filterSignals
	if err := datastar.ReadSignals(c.Request(), &sig); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signals")
	}
	ctx := c.Request().Context()
	vis.Provider.SetFilter(ctx, state.Filter{SearchQuery: sig.Search, Category: sig.Category})
	if vis.Provider.Blogs() == nil {
		_ = vis.Provider.FetchBlogs(ctx)
	}

	l := a.listing(c, vis)
	notices := vis.Inbox.Drain()
	sse := datastar.NewSSE(c.Response(), c.Request())
	if err := sse.PatchElementTempl(views.BlogGrid(l), datastar.WithSelectorID("blog-grid"), datastar.WithModeInner()); err != nil {
		return err
	}
	if err := sse.PatchElementTempl(views.CategoryList(l), datastar.WithSelectorID("categories"), datastar.WithModeInner()); err != nil {
		return err
	}
	if len(notices) > 0 {
		return sse.PatchElementTempl(views.Notices(notices), datastar.WithSelectorID("notices"), datastar.WithModeInner())
	}
	return nil
}

func (a *App) listing(c echo.Context, vis *Visitor) views.Listing {
	saved := make(map[string]bool)
	for _, s := range vis.Provider.SavedBlogs() {
		saved[s.BlogID] = true
	}
	return views.Listing{
		Blogs:      vis.Provider.Blogs(),
		Filter:     vis.Provider.Filter(),
		Categories: a.Feed.Categories(c.Request().Context()),
		Saved:      saved,
	}
}

func (a *App) handlePost(c echo.Context) error {
	id := c.Param("id")
	detail, err := a.Client.GetBlog(c.Request().Context(), id)
	if err != nil {
		if client.IsStatus(err, http.StatusNotFound) {
			return RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
		}
		return err
	}
	vis := visitorFrom(c)
	meta := views.PageMeta{
		Title:       detail.Blog.Title,
		Description: views.Excerpt(views.PlainText(detail.Blog.Description), 160),
		URL:         BuildURL(a.Config.URL, "blog", id),
		OGType:      "article",
	}
	return Render(c, views.Post(a.page(c, meta), detail, vis.Provider.IsSaved(id)))
}

func (a *App) handleToggleSave(c echo.Context) error {
	id := c.Param("id")
	vis := visitorFrom(c)
	if err := vis.Provider.ToggleSave(c.Request().Context(), id); err != nil {
		c.Logger().Warnf("toggle save %s: %v", id, err)
	}
	back := safeRedirect(c.FormValue("next"), views.BlogPath(id))
	return c.Redirect(http.StatusSeeOther, back)
}

// savedPosts joins the visitor's bookmarks with the cached listing.
func (a *App) savedPosts(c echo.Context) ([]client.Blog, error) {
	vis := visitorFrom(c)
	ctx := c.Request().Context()
	if err := vis.Provider.GetSavedBlogs(ctx); err != nil {
		c.Logger().Warnf("refresh saved blogs: %v", err)
	}
	all, err := a.Feed.List(ctx)
	if err != nil {
		return nil, err
	}
	return state.SavedPosts(all, vis.Provider.SavedBlogs()), nil
}

func (a *App) handleSaved(c echo.Context) error {
	posts, err := a.savedPosts(c)
	if err != nil {
		return err
	}
	meta := views.PageMeta{
		Title:  "Saved blogs",
		URL:    BuildURL(a.Config.URL, "blog", "saved"),
		OGType: "website",
	}
	return Render(c, views.Saved(a.page(c, meta), posts))
}

func (a *App) handleSavedExport(c echo.Context) error {
	posts, err := a.savedPosts(c)
	if err != nil {
		return err
	}
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, XLSXContentType)
	h.Set(echo.HeaderContentDisposition, `attachment; filename="saved-blogs.xlsx"`)
	c.Response().WriteHeader(http.StatusOK)
	return WriteSavedWorkbook(c.Response(), posts, a.Config.URL)
}

func (a *App) handleSitemap(c echo.Context) error {
	blogs, err := a.Feed.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, blogs)
}

func (a *App) handleFeed(c echo.Context) error {
	blogs, err := a.Feed.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, blogs)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	for _, p := range []string{"/blog/new/", "/blog/saved/", "/profile/", "/login/", "/register/"} {
		fmt.Fprintf(&b, "Disallow: %s\n", p)
	}
	fmt.Fprintf(&b, "\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, b.String())
}

func handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.logger.Error("server error", "path", c.Request().URL.Path, "error", err)
		_ = RenderStatus(c, code, views.ServerError(a.site()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
