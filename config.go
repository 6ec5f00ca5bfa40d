package retreat

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SiteConfig holds all configuration for a retreat site.
type SiteConfig struct {
	Name        string `mapstructure:"name"`        // Site name (default "Retreat")
	URL         string `mapstructure:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"description"` // Site description for RSS and meta tags

	Addr string `mapstructure:"addr"` // Listen address (default ":3000")

	UserService   string `mapstructure:"user_service"`   // default "http://localhost:5000"
	AuthorService string `mapstructure:"author_service"` // default "http://localhost:5001"
	BlogService   string `mapstructure:"blog_service"`   // default "http://localhost:5002"

	SessionSecret   string `mapstructure:"session_secret"`   // Required to serve: session encryption secret
	InsecureCookies bool   `mapstructure:"insecure_cookies"` // Drop the Secure cookie flag for plain-HTTP development

	GoogleClientID    string `mapstructure:"google_client_id"`    // Enables Google sign-in when set
	GoogleRedirectURL string `mapstructure:"google_redirect_url"` // default URL + "/auth/google/callback"

	FeedCacheTTL time.Duration `mapstructure:"feed_cache_ttl"` // Unfiltered listing cache TTL (default 5min)
	RefreshDelay time.Duration `mapstructure:"refresh_delay"`  // Listing refresh after publish (default 4s)
	VisitorTTL   time.Duration `mapstructure:"visitor_ttl"`    // Idle visitor eviction (default 12h)
	MaxVisitors  int           `mapstructure:"max_visitors"`   // Registered visitor cap (default 10000)

	TokenDBPath string `mapstructure:"token_db_path"` // CLI token store (default "data/tokens.db")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Retreat"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.UserService == "" {
		c.UserService = "http://localhost:5000"
	}
	if c.AuthorService == "" {
		c.AuthorService = "http://localhost:5001"
	}
	if c.BlogService == "" {
		c.BlogService = "http://localhost:5002"
	}
	if c.GoogleRedirectURL == "" {
		c.GoogleRedirectURL = c.URL + "/auth/google/callback"
	}
	if c.FeedCacheTTL == 0 {
		c.FeedCacheTTL = 5 * time.Minute
	}
	if c.RefreshDelay == 0 {
		c.RefreshDelay = 4 * time.Second
	}
	if c.VisitorTTL == 0 {
		c.VisitorTTL = 12 * time.Hour
	}
	if c.MaxVisitors <= 0 {
		c.MaxVisitors = 10000
	}
	if c.TokenDBPath == "" {
		c.TokenDBPath = "data/tokens.db"
	}
}

func (c SiteConfig) secureCookies() bool {
	return !c.InsecureCookies
}

// configKeys are registered with viper so environment variables bind even
// when no config file mentions them. Real defaults come from setDefaults.
var configKeys = map[string]any{
	"name":                "",
	"url":                 "",
	"description":         "",
	"addr":                "",
	"user_service":        "",
	"author_service":      "",
	"blog_service":        "",
	"session_secret":      "",
	"insecure_cookies":    false,
	"google_client_id":    "",
	"google_redirect_url": "",
	"feed_cache_ttl":      time.Duration(0),
	"refresh_delay":       time.Duration(0),
	"visitor_ttl":         time.Duration(0),
	"max_visitors":        0,
	"token_db_path":       "",
}

// LoadConfig reads configuration from the YAML file at path and from
// RETREAT_* environment variables, which take precedence. With an empty path
// a retreat.yaml in the working directory is used if present.
func LoadConfig(path string) (SiteConfig, error) {
	v := viper.New()
	if path == "" {
		v.SetConfigName("retreat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. RETREAT_BLOG_SERVICE=http://blogs:5002
	v.SetEnvPrefix("RETREAT")
	v.AutomaticEnv()
	for key, zero := range configKeys {
		v.SetDefault(key, zero)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return SiteConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c SiteConfig
	if err := v.Unmarshal(&c); err != nil {
		return SiteConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.setDefaults()
	return c, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the structured logger used by the app and its visitors.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithHTTPClient sets the HTTP client used to call the backing services.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) {
		a.httpClient = hc
	}
}

// WithStaticDir serves static assets from dir instead of the embedded Assets.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
