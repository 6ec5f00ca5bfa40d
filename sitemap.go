package retreat

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) buildSitemap(blogs []client.Blog) sitemapURLSet {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base, "blogs")},
	}
	for _, b := range blogs {
		u := sitemapURL{Loc: BuildURL(base, "blog", b.ID)}
		if t, ok := views.ParseCreatedAt(b.CreatedAt); ok {
			u.LastMod = t.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func (a *App) renderSitemap(c echo.Context, blogs []client.Blog) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(a.buildSitemap(blogs))
}
