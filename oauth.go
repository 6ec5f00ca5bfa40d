package retreat

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/eringen/retreat/state"
)

const oauthStateKey = "oauth_state"

// newOAuthConfig returns the Google auth-code configuration, or nil when no
// client ID is configured. Only the consent redirect happens here; the user
// service exchanges the code for Google tokens.
func newOAuthConfig(cfg SiteConfig) *oauth2.Config {
	if cfg.GoogleClientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:    cfg.GoogleClientID,
		RedirectURL: cfg.GoogleRedirectURL,
		Scopes:      []string{"openid", "email", "profile"},
		Endpoint:    endpoints.Google,
	}
}

func (a *App) handleGoogleLogin(c echo.Context) error {
	if a.oauth == nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	st := uuid.NewString()
	sess.Values[oauthStateKey] = st
	return c.Redirect(http.StatusFound, a.oauth.AuthCodeURL(st, oauth2.AccessTypeOffline))
}

// handleGoogleCallback checks the state echoed by Google and hands the
// authorization code to the user service.
func (a *App) handleGoogleCallback(c echo.Context) error {
	if a.oauth == nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	vis := visitorFrom(c)
	ctx := c.Request().Context()

	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	want, _ := sess.Values[oauthStateKey].(string)
	delete(sess.Values, oauthStateKey)
	if want == "" || c.QueryParam("state") != want {
		vis.Inbox.Notify(ctx, state.Notice{Level: state.LevelError, Message: "Problem while login you"})
		return c.Redirect(http.StatusSeeOther, "/login/")
	}
	if e := c.QueryParam("error"); e != "" {
		a.logger.Warn("google consent", "error", e)
		vis.Inbox.Notify(ctx, state.Notice{Level: state.LevelError, Message: "Problem while login you"})
		return c.Redirect(http.StatusSeeOther, "/login/")
	}

	if err := vis.Provider.CompleteOAuthExchange(ctx, c.QueryParam("code")); err != nil {
		return c.Redirect(http.StatusSeeOther, "/login/")
	}
	return c.Redirect(http.StatusSeeOther, "/blogs/")
}
