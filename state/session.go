package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/eringen/retreat/client"
)

// RestoreSession resolves the persisted token into a signed-in user. Any
// failure leaves the provider signed out with the token removed; it never
// returns an error.
func (p *Provider) RestoreSession(ctx context.Context) {
	token, err := p.tokens.Token()
	if err != nil {
		p.logger.Error("read persisted token", "error", err)
		token = ""
	}
	if token == "" {
		p.signOut()
		return
	}

	if tokenExpired(token, p.now()) {
		p.logger.Info("persisted token expired")
		p.dropToken()
		p.signOut()
		return
	}

	user, err := p.api.Me(ctx, token)
	if err != nil {
		p.logger.Warn("restore session", "error", err)
		p.dropToken()
		p.signOut()
		return
	}

	p.mu.Lock()
	if p.user == nil || p.user.ID != user.ID {
		p.purgeSavedLocked()
	}
	p.user = &user
	p.status = StatusAuthenticated
	p.mu.Unlock()

	_ = p.GetSavedBlogs(ctx)
}

// Login signs in with email and password.
func (p *Provider) Login(ctx context.Context, creds client.Credentials) error {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		p.notify(ctx, LevelError, "Email and password are required.")
		return fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	resp, err := p.api.Login(ctx, creds)
	if err != nil {
		p.notify(ctx, LevelError, client.Message(err, "Invalid credentials"))
		return fmt.Errorf("login: %w", err)
	}
	return p.signIn(ctx, resp)
}

// Register creates an account and signs in with it.
func (p *Provider) Register(ctx context.Context, reg client.Registration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		p.notify(ctx, LevelError, "Please fill in all required fields.")
		return fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	resp, err := p.api.Register(ctx, reg)
	if err != nil {
		p.notify(ctx, LevelError, client.Message(err, "Registration failed. Please try again."))
		return fmt.Errorf("register: %w", err)
	}
	return p.signIn(ctx, resp)
}

// CompleteOAuthExchange signs in with an authorization code from Google.
func (p *Provider) CompleteOAuthExchange(ctx context.Context, code string) error {
	if code == "" {
		p.notify(ctx, LevelError, "Problem while login you")
		return fmt.Errorf("%w: missing authorization code", ErrInvalidInput)
	}
	resp, err := p.api.OAuthLogin(ctx, code)
	if err != nil {
		p.notify(ctx, LevelError, client.Message(err, "Problem while login you"))
		return fmt.Errorf("oauth exchange: %w", err)
	}
	return p.signIn(ctx, resp)
}

// UpdateProfile replaces the profile fields of the signed-in user.
func (p *Provider) UpdateProfile(ctx context.Context, update client.ProfileUpdate) error {
	done, err := p.begin(ActionUpdateProfile)
	if err != nil {
		return err
	}
	defer done()

	token, err := p.requireToken(ctx)
	if err != nil {
		return err
	}
	resp, err := p.api.UpdateProfile(ctx, token, update)
	if err != nil {
		p.notify(ctx, LevelError, client.Message(err, "Update Failed"))
		return fmt.Errorf("update profile: %w", err)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Update Failed"
		}
		p.notify(ctx, LevelError, msg)
		return fmt.Errorf("update profile: %w", ErrRejected)
	}
	return p.replaceSession(ctx, resp)
}

// UpdateAvatar uploads a new profile picture for the signed-in user.
func (p *Provider) UpdateAvatar(ctx context.Context, file client.Upload) error {
	done, err := p.begin(ActionUpdateAvatar)
	if err != nil {
		return err
	}
	defer done()

	token, err := p.requireToken(ctx)
	if err != nil {
		return err
	}
	resp, err := p.api.UpdateAvatar(ctx, token, file)
	if err != nil {
		p.notify(ctx, LevelError, client.Message(err, "Image Update Failed"))
		return fmt.Errorf("update avatar: %w", err)
	}
	return p.replaceSession(ctx, resp)
}

// Logout forgets the token and the user. It makes no network call and may be
// called any number of times.
func (p *Provider) Logout(ctx context.Context) {
	wasSignedIn := p.Authenticated()
	p.dropToken()
	p.signOut()
	if wasSignedIn {
		p.notify(ctx, LevelSuccess, "user Logged Out")
	}
}

// signIn persists the token from resp and moves to Authenticated.
func (p *Provider) signIn(ctx context.Context, resp client.AuthResponse) error {
	if err := p.replaceSession(ctx, resp); err != nil {
		return err
	}
	_ = p.GetSavedBlogs(ctx)
	return nil
}

func (p *Provider) replaceSession(ctx context.Context, resp client.AuthResponse) error {
	if resp.Token == "" {
		p.notify(ctx, LevelError, "The server did not return a session token.")
		return fmt.Errorf("%w: empty token", ErrRejected)
	}
	if err := p.tokens.SetToken(resp.Token); err != nil {
		p.notify(ctx, LevelError, "Could not store your session.")
		return fmt.Errorf("persist token: %w", err)
	}

	user := resp.User
	p.mu.Lock()
	if p.user == nil || p.user.ID != user.ID {
		p.purgeSavedLocked()
	}
	p.user = &user
	p.status = StatusAuthenticated
	p.mu.Unlock()

	p.notify(ctx, LevelSuccess, resp.Message)
	return nil
}

// signOut moves to Unauthenticated and purges the saved-blog collection so a
// later sign-in never sees another user's bookmarks.
func (p *Provider) signOut() {
	p.mu.Lock()
	p.user = nil
	p.status = StatusUnauthenticated
	p.purgeSavedLocked()
	p.mu.Unlock()
}

// purgeSavedLocked drops the saved-blog collection and discards any fetch
// still in flight. p.mu must be held.
func (p *Provider) purgeSavedLocked() {
	p.saved = nil
	p.savedApplied = p.savedSeq
}

func (p *Provider) dropToken() {
	if err := p.tokens.ClearToken(); err != nil {
		p.logger.Error("clear persisted token", "error", err)
	}
}

// requireToken returns the persisted token of a signed-in user.
func (p *Provider) requireToken(ctx context.Context) (string, error) {
	if !p.Authenticated() {
		p.notify(ctx, LevelError, "Please login first.")
		return "", ErrUnauthenticated
	}
	token, err := p.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		p.notify(ctx, LevelError, "Please login first.")
		return "", ErrUnauthenticated
	}
	return token, nil
}
