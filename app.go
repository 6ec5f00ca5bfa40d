// Package retreat is the web frontend of a blog platform built with Go, Echo,
// templ and datastar. It renders the listing, detail, editor and account
// pages for visitors and keeps, per visitor, a state.Provider synchronized
// with the user, author and blog services.
package retreat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"

	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/state"
	"github.com/eringen/retreat/views"
)

// App is the central retreat application. It wires together the service
// client, visitor registry, caches, handlers and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Client   *client.Client
	Visitors *Visitors
	Feed     *FeedCache

	logger       *slog.Logger
	httpClient   *http.Client
	loginLimiter *LoginLimiter
	oauth        *oauth2.Config
	customRoutes []func(*App)
	staticDir    string
	ready        bool
}

// New creates a new retreat App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		logger: slog.Default(),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup builds the service client, visitor registry and caches and registers
// middleware and routes. Start calls it; tests call it directly and drive
// a.Echo as an http.Handler.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("retreat: SessionSecret is required")
	}

	a.Client = client.New(client.Endpoints{
		User:   a.Config.UserService,
		Author: a.Config.AuthorService,
		Blog:   a.Config.BlogService,
	}, a.httpClient)
	a.Visitors = NewVisitors(a.Config.VisitorTTL, a.Config.MaxVisitors, a.newProvider)
	a.Feed = NewFeedCache(a.Client, a.Config.FeedCacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.oauth = newOAuthConfig(a.Config)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start sets the app up and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.logger.Info("serving", "addr", a.Config.Addr, "user_service", a.Config.UserService,
		"author_service", a.Config.AuthorService, "blog_service", a.Config.BlogService)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close stops background loops. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Visitors != nil {
		a.Visitors.Close()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	return nil
}

func (a *App) newProvider(tokens state.TokenStore, notifier state.Notifier) *state.Provider {
	return state.New(a.Client, tokens,
		state.WithNotifier(notifier),
		state.WithLogger(a.logger),
		state.WithRefreshDelay(a.Config.RefreshDelay),
	)
}

func (a *App) setupRoutes() {
	e := a.Echo

	if a.staticDir == "" {
		e.StaticFS("/public", echo.MustSubFS(Assets, "public"))
		e.FileFS("/favicon.svg", "public/favicon.svg", Assets)
	} else {
		e.Static("/public", a.staticDir)
		e.File("/favicon.svg", a.staticDir+"/favicon.svg")
	}
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/healthz", handleHealthz)

	e.GET("/", handleRoot)
	e.GET("/blogs/", a.handleBlogs)
	e.GET("/blogs/filter", a.handleBlogsFilter)
	e.GET("/blog/:id/", a.handlePost)
	e.POST("/blog/:id/save/", a.handleToggleSave, requireUser)

	e.GET("/blog/saved/", a.handleSaved, requireUser)
	e.GET("/blog/saved/export.xlsx", a.handleSavedExport, requireUser)

	e.GET("/blog/new/", a.handleNewBlog, requireUser)
	e.POST("/blog/new/", a.handlePublish, requireUser)
	e.POST("/blog/new/ai/:field", a.handleAssist, requireUser)

	e.GET("/login/", a.handleLoginPage)
	e.POST("/login/", a.handleLogin)
	e.GET("/register/", a.handleRegisterPage)
	e.POST("/register/", a.handleRegister)
	e.POST("/logout/", a.handleLogout)
	e.GET("/auth/google/", a.handleGoogleLogin)
	e.GET("/auth/google/callback", a.handleGoogleCallback)

	e.GET("/profile/", a.handleProfile, requireUser)
	e.POST("/profile/", a.handleProfileUpdate, requireUser)
	e.POST("/profile/avatar/", a.handleAvatar, requireUser)
}

func (a *App) site() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
	}
}

// page builds the frame of a full page for the current visitor, consuming
// its pending notices.
func (a *App) page(c echo.Context, meta views.PageMeta) views.Page {
	vis := visitorFrom(c)
	p := views.Page{
		Site:    a.site(),
		Meta:    meta,
		CSRF:    CsrfToken(c),
		Notices: popNotices(c, vis),
		Path:    c.Request().URL.Path,
		Google:  a.oauth != nil,
	}
	if vis != nil {
		p.User = vis.Provider.User()
	}
	return p
}
