package retreat

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/views"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Category    string `xml:"category,omitempty"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

func (a *App) buildRSS(blogs []client.Blog) rssXML {
	base := a.Config.URL
	items := make([]rssItem, 0, len(blogs))
	for _, b := range blogs {
		pubDate := ""
		if t, ok := views.ParseCreatedAt(b.CreatedAt); ok {
			pubDate = t.Format(time.RFC1123Z)
		}
		link := BuildURL(base, "blog", b.ID)
		items = append(items, rssItem{
			Title:       b.Title,
			Link:        link,
			Description: views.Excerpt(views.PlainText(b.Description), 300),
			Category:    b.Category,
			PubDate:     pubDate,
			GUID:        link,
		})
	}
	return rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(base, "blogs"),
			Description: a.Config.Description,
			Items:       items,
		},
	}
}

func (a *App) renderRSS(c echo.Context, blogs []client.Blog) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(a.buildRSS(blogs))
}
