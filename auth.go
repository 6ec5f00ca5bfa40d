package retreat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/state"
	"github.com/eringen/retreat/views"
)

const tooManyAttempts = "Too many login attempts. Try again later."

func (a *App) authMeta(title, path string) views.PageMeta {
	return views.PageMeta{
		Title:  title,
		URL:    BuildURL(a.Config.URL, path),
		OGType: "website",
	}
}

func (a *App) handleLoginPage(c echo.Context) error {
	if visitorFrom(c).Provider.Authenticated() {
		return c.Redirect(http.StatusSeeOther, "/blogs/")
	}
	next := safeRedirect(c.QueryParam("next"), "")
	return Render(c, views.Login(a.page(c, a.authMeta("Login", "login")), "", next))
}

// handleLogin signs in with email and password. Failed attempts count toward
// the per-IP limit; a successful one clears it.
func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	email := strings.TrimSpace(c.FormValue("email"))
	next := safeRedirect(c.FormValue("next"), "")
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, tooManyAttempts)
	}

	vis := visitorFrom(c)
	err := vis.Provider.Login(c.Request().Context(), client.Credentials{
		Email:    email,
		Password: c.FormValue("password"),
	})
	if err != nil {
		a.loginLimiter.Record(ip)
		return RenderStatus(c, http.StatusUnauthorized,
			views.Login(a.page(c, a.authMeta("Login", "login")), email, next))
	}
	a.loginLimiter.Reset(ip)
	return c.Redirect(http.StatusSeeOther, safeRedirect(next, "/blogs/"))
}

func (a *App) handleRegisterPage(c echo.Context) error {
	if visitorFrom(c).Provider.Authenticated() {
		return c.Redirect(http.StatusSeeOther, "/blogs/")
	}
	return Render(c, views.Register(a.page(c, a.authMeta("Register", "register")), client.Registration{}))
}

func (a *App) handleRegister(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Allow(ip) {
		return c.String(http.StatusTooManyRequests, tooManyAttempts)
	}
	reg := client.Registration{
		Name:     strings.TrimSpace(c.FormValue("name")),
		Email:    strings.TrimSpace(c.FormValue("email")),
		Password: c.FormValue("password"),
	}
	if err := visitorFrom(c).Provider.Register(c.Request().Context(), reg); err != nil {
		reg.Password = ""
		return RenderStatus(c, http.StatusUnprocessableEntity,
			views.Register(a.page(c, a.authMeta("Register", "register")), reg))
	}
	return c.Redirect(http.StatusSeeOther, "/blogs/")
}

func (a *App) handleLogout(c echo.Context) error {
	visitorFrom(c).Provider.Logout(c.Request().Context())
	return c.Redirect(http.StatusSeeOther, "/blogs/")
}

func (a *App) handleProfile(c echo.Context) error {
	u := visitorFrom(c).Provider.User()
	if u == nil {
		return c.Redirect(http.StatusSeeOther, "/login/")
	}
	return Render(c, views.Profile(a.page(c, a.authMeta("Profile", "profile")), *u))
}

func (a *App) handleProfileUpdate(c echo.Context) error {
	vis := visitorFrom(c)
	err := vis.Provider.UpdateProfile(c.Request().Context(), client.ProfileUpdate{
		Name:      strings.TrimSpace(c.FormValue("name")),
		Instagram: strings.TrimSpace(c.FormValue("instagram")),
		Facebook:  strings.TrimSpace(c.FormValue("facebook")),
		LinkedIn:  strings.TrimSpace(c.FormValue("linkedin")),
		Bio:       strings.TrimSpace(c.FormValue("bio")),
	})
	if err != nil {
		c.Logger().Warnf("update profile: %v", err)
	}
	return c.Redirect(http.StatusSeeOther, "/profile/")
}

func (a *App) handleAvatar(c echo.Context) error {
	vis := visitorFrom(c)
	ctx := c.Request().Context()
	up, err := formImage(c, "image")
	if err != nil {
		msg := "Image Update Failed"
		if errors.Is(err, errNoImage) {
			msg = "Please choose an image."
		}
		vis.Inbox.Notify(ctx, state.Notice{Level: state.LevelError, Message: msg})
		return c.Redirect(http.StatusSeeOther, "/profile/")
	}
	if err := vis.Provider.UpdateAvatar(ctx, *up); err != nil {
		c.Logger().Warnf("update avatar: %v", err)
	}
	return c.Redirect(http.StatusSeeOther, "/profile/")
}
