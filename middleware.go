package retreat

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/retreat/state"
)

const (
	sessionName = "retreat_session"
	tokenCookie = "token"

	visitorSessionKey = "visitor"
	noticeFlashKey    = "notices"
	visitorContextKey = "retreat.visitor"
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.Pre(middleware.NonWWWRedirect())

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				a.logger.Error("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "error", v.Error)
				return nil
			}
			a.logger.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			// SSE responses must stream unbuffered.
			return strings.HasPrefix(path, "/public/") ||
				path == "/blogs/filter" ||
				strings.HasPrefix(path, "/blog/new/ai/")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-eval' https://cdn.jsdelivr.net; style-src 'self' 'unsafe-inline'; img-src 'self' https: data:; font-src 'self'; connect-src 'self'",
		HSTSMaxAge:            31536000,
	}))

	e.Use(session.Middleware(a.newSessionStore()))

	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:     middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup:    "header:X-CSRF-Token,form:_csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   a.Config.secureCookies(),
		ErrorHandler: func(err error, c echo.Context) error {
			return c.String(http.StatusForbidden, "Forbidden")
		},
	}))

	e.Use(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			return isMachinePath(c.Request().URL.Path) ||
				c.Request().URL.Path == "/blogs/filter" ||
				strings.HasPrefix(c.Request().URL.Path, "/blog/new/ai/") ||
				strings.HasPrefix(c.Request().URL.Path, "/auth/google/callback") ||
				strings.HasSuffix(c.Request().URL.Path, ".xlsx")
		},
	}))

	e.Use(cacheControlMiddleware)

	e.Use(a.visitorMiddleware)
}

// isMachinePath reports paths served to crawlers and probes rather than to a
// visitor's browser session.
func isMachinePath(path string) bool {
	return strings.HasPrefix(path, "/public") ||
		path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt" ||
		path == "/healthz" || path == "/favicon.svg"
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		switch {
		case strings.HasPrefix(path, "/public/"):
			c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		case path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt":
			c.Response().Header().Set("Cache-Control", "public, max-age=3600")
		default:
			// Every page depends on who is signed in.
			c.Response().Header().Set("Cache-Control", "private, no-store")
		}
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(a.Config.VisitorTTL / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.secureCookies(),
	}
	return store
}

// visitorMiddleware attaches the request's Visitor. The token cookie is the
// source of truth for authentication: when it differs from the token the
// visitor's provider holds, the session is restored from the cookie. Before
// the response is written, the cookie is brought in line with the provider
// and pending notices are moved into the session as flashes.
func (a *App) visitorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if isMachinePath(c.Request().URL.Path) {
			return next(c)
		}
		sess, err := session.Get(sessionName, c)
		if sess == nil {
			return err
		}
		if err != nil {
			// Undecodable cookie, e.g. after a secret rotation; start afresh.
			c.Logger().Warnf("discarding session: %v", err)
		}

		sent := ""
		if ck, err := c.Cookie(tokenCookie); err == nil {
			sent = ck.Value
		}

		ctx := c.Request().Context()
		id, _ := sess.Values[visitorSessionKey].(string)
		vis, ok := a.Visitors.Get(id)
		switch {
		case !ok && sess.IsNew:
			// No session cookie came back: crawlers, probes and first hits.
			// Only a browser that returns the cookie gets a registered visitor.
			vis = a.Visitors.Transient(ctx, sent)
		case !ok:
			vis = a.Visitors.Create(ctx, sent)
			sess.Values[visitorSessionKey] = vis.ID
		default:
			if held, _ := vis.Tokens.Token(); held != sent {
				_ = vis.Tokens.SetToken(sent)
				vis.Provider.RestoreSession(ctx)
			}
		}
		c.Set(visitorContextKey, vis)

		c.Response().Before(func() {
			a.syncTokenCookie(c, vis, sent)
			for _, n := range vis.Inbox.Drain() {
				sess.AddFlash(string(n.Level)+":"+n.Message, noticeFlashKey)
			}
			if err := sess.Save(c.Request(), c.Response()); err != nil {
				c.Logger().Errorf("save session: %v", err)
			}
		})
		return next(c)
	}
}

// syncTokenCookie writes the provider's token to the token cookie if it
// changed during the request, or expires the cookie if the token was dropped.
func (a *App) syncTokenCookie(c echo.Context, vis *Visitor, sent string) {
	held, err := vis.Tokens.Token()
	if err != nil || held == sent {
		return
	}
	ck := &http.Cookie{
		Name:     tokenCookie,
		Value:    held,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Config.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	}
	if held == "" {
		ck.MaxAge = -1
	} else {
		ck.MaxAge = int(state.TokenTTL / time.Second)
		ck.Expires = time.Now().Add(state.TokenTTL)
	}
	c.SetCookie(ck)
}

// requireUser redirects visitors who are not signed in to the login page.
func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		vis := visitorFrom(c)
		if vis == nil || !vis.Provider.Authenticated() {
			if vis != nil {
				vis.Inbox.Notify(c.Request().Context(), state.Notice{Level: state.LevelError, Message: "Please login first."})
			}
			return c.Redirect(http.StatusSeeOther, "/login/?next="+url.QueryEscape(c.Request().URL.Path))
		}
		return next(c)
	}
}

func visitorFrom(c echo.Context) *Visitor {
	vis, _ := c.Get(visitorContextKey).(*Visitor)
	return vis
}

// popNotices returns the flashed notices of the session followed by any the
// visitor produced during this request.
func popNotices(c echo.Context, vis *Visitor) []state.Notice {
	var out []state.Notice
	if sess, err := session.Get(sessionName, c); sess != nil && err == nil {
		for _, f := range sess.Flashes(noticeFlashKey) {
			s, ok := f.(string)
			if !ok {
				continue
			}
			level, msg, found := strings.Cut(s, ":")
			if !found {
				continue
			}
			out = append(out, state.Notice{Level: state.Level(level), Message: msg})
		}
	}
	if vis != nil {
		out = append(out, vis.Inbox.Drain()...)
	}
	return out
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
