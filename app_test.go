package retreat

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/eringen/retreat/client"
)

// backend fakes the user, author and blog services behind one server.
type backend struct {
	*httptest.Server

	mu        sync.Mutex
	blogs     []client.Blog
	saved     map[string]bool
	user      client.User
	token     string
	listCalls int
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		blogs: []client.Blog{
			{ID: "1", Title: "Learning Go", Description: "Goroutines and channels", Category: "Study", CreatedAt: "2026-03-01T10:00:00.000Z"},
			{ID: "2", Title: "Lisbon on foot", Description: "Seven hills", Category: "Travel", CreatedAt: "2026-02-14T09:30:00.000Z"},
		},
		saved: make(map[string]bool),
		user:  client.User{ID: "u1", Name: "Ada", Email: "a@b.com"},
		token: "T1",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/blog/all", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.listCalls++
		q := strings.ToLower(r.URL.Query().Get("searchQuery"))
		category := r.URL.Query().Get("category")
		out := []client.Blog{}
		for _, blog := range b.blogs {
			if q != "" && !strings.Contains(strings.ToLower(blog.Title), q) {
				continue
			}
			if category != "" && blog.Category != category {
				continue
			}
			out = append(out, blog)
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /api/v1/blog/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, blog := range b.blogs {
			if blog.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, client.BlogDetail{Blog: blog, Author: b.user})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Blog not found"})
	})
	mux.HandleFunc("GET /api/v1/blog/saved/all", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Please login"})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []client.SavedBlog{}
		for id := range b.saved {
			out = append(out, client.SavedBlog{ID: "s" + id, UserID: b.user.ID, BlogID: id})
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /api/v1/save/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Please login"})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		id := r.PathValue("id")
		if b.saved[id] {
			delete(b.saved, id)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Blog Unsaved"})
			return
		}
		b.saved[id] = true
		writeJSON(w, http.StatusOK, map[string]string{"message": "Blog Saved"})
	})
	mux.HandleFunc("GET /api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Please login"})
			return
		}
		writeJSON(w, http.StatusOK, b.user)
	})
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds client.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad request"})
			return
		}
		if creds.Email != b.user.Email || creds.Password != "secret" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, client.AuthResponse{Success: true, Token: b.token, Message: "Logged in", User: b.user})
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *backend) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+b.token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestApp(t *testing.T) (*App, *backend) {
	t.Helper()
	be := newBackend(t)
	cfg := SiteConfig{
		Name:          "Retreat",
		URL:           "http://example.com",
		SessionSecret: "0123456789abcdef0123456789abcdef",
		UserService:   be.URL,
		AuthorService: be.URL,
		BlogService:   be.URL,
	}
	app := New(cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithHTTPClient(be.Client()),
	)
	if err := app.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app, be
}

// browser drives the app in process and keeps cookies between requests.
type browser struct {
	t   *testing.T
	app *App
	jar *cookiejar.Jar
}

var testSiteURL, _ = url.Parse("https://example.com/")

func newBrowser(t *testing.T, app *App) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, app: app, jar: jar}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, ck := range b.jar.Cookies(testSiteURL) {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	b.app.Echo.ServeHTTP(rec, req)
	b.jar.SetCookies(testSiteURL, rec.Result().Cookies())
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, target, nil))
}

// post submits form with the CSRF token from the cookie jar.
func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("_csrf", b.cookie("_csrf"))
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) cookie(name string) string {
	for _, ck := range b.jar.Cookies(testSiteURL) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (b *browser) login() {
	b.t.Helper()
	b.get("/login/")
	rec := b.post("/login/", url.Values{"email": {"a@b.com"}, "password": {"secret"}})
	if rec.Code != http.StatusSeeOther {
		b.t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRootRedirectsToBlogs(t *testing.T) {
	app, _ := newTestApp(t)
	rec := newBrowser(t, app).get("/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/blogs/" {
		t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestBlogsPageListsBlogs(t *testing.T) {
	app, _ := newTestApp(t)
	rec := newBrowser(t, app).get("/blogs/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Learning Go", "Lisbon on foot", `id="blog-grid"`, "Travel (1)"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if got := rec.Header().Get("Cache-Control"); got != "private, no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestBlogsPageAppliesQueryFilter(t *testing.T) {
	app, _ := newTestApp(t)
	rec := newBrowser(t, app).get("/blogs/?category=Travel")
	body := rec.Body.String()
	if !strings.Contains(body, "Lisbon on foot") || strings.Contains(body, "Learning Go") {
		t.Fatalf("filtered listing wrong:\n%s", body)
	}
}

func TestBlogsFilterPatchesGrid(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)
	b.get("/blogs/")

	signals := url.QueryEscape(`{"search":"go","category":""}`)
	rec := b.get("/blogs/filter?datastar=" + signals)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "datastar-patch-elements") {
		t.Fatalf("no patch event:\n%s", body)
	}
	if !strings.Contains(body, "Learning Go") || strings.Contains(body, "Lisbon on foot") {
		t.Fatalf("grid not filtered:\n%s", body)
	}
}

func TestPostPage(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)

	rec := b.get("/blog/1/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Learning Go") {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := b.get("/blog/nope/"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing blog status = %d", rec.Code)
	}
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)

	for _, path := range []string{"/blog/saved/", "/blog/new/", "/profile/"} {
		rec := b.get(path)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
		want := "/login/?next=" + url.QueryEscape(path)
		if got := rec.Header().Get("Location"); got != want {
			t.Fatalf("%s: Location = %q, want %q", path, got, want)
		}
	}

	// The notice is flashed and shown on the login page.
	rec := b.get("/login/?next=%2Fprofile%2F")
	if !strings.Contains(rec.Body.String(), "Please login first.") {
		t.Fatalf("login page missing flashed notice")
	}
	if !strings.Contains(rec.Body.String(), `name="next" value="/profile/"`) {
		t.Fatalf("login page missing next field")
	}
}

func TestLoginSetsTokenCookie(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)
	b.get("/login/")

	rec := b.post("/login/", url.Values{"email": {"a@b.com"}, "password": {"secret"}, "next": {"/profile/"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/profile/" {
		t.Fatalf("Location = %q", got)
	}
	if got := b.cookie("token"); got != "T1" {
		t.Fatalf("token cookie = %q, want T1", got)
	}
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "token" && (!ck.Secure || !ck.HttpOnly) {
			t.Fatalf("token cookie flags: Secure=%v HttpOnly=%v", ck.Secure, ck.HttpOnly)
		}
	}

	rec = b.get("/profile/")
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Ada") || !strings.Contains(body, "Logged in") {
		t.Fatalf("profile page missing user or notice:\n%s", body)
	}
}

func TestLoginFailureShowsNotice(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)
	b.get("/login/")

	rec := b.post("/login/", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Fatalf("missing error notice")
	}
	if b.cookie("token") != "" {
		t.Fatalf("token cookie set after failed login")
	}
}

func TestLoginRequiresCSRF(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)
	b.get("/login/")

	req := httptest.NewRequest(http.MethodPost, "/login/", strings.NewReader("email=a%40b.com&password=secret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rec := b.do(req); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)
	b.get("/login/")

	for i := 0; i < 5; i++ {
		b.post("/login/", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})
	}
	rec := b.post("/login/", url.Values{"email": {"a@b.com"}, "password": {"secret"}})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestLogoutClearsToken(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)
	b.login()

	rec := b.post("/logout/", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if b.cookie("token") != "" {
		t.Fatalf("token cookie survived logout")
	}
	if rec := b.get("/profile/"); rec.Code != http.StatusSeeOther {
		t.Fatalf("profile after logout: status = %d", rec.Code)
	}
}

func TestTokenCookieRestoresSession(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)
	b.jar.SetCookies(testSiteURL, []*http.Cookie{{Name: "token", Value: "T1", Path: "/"}})

	rec := b.get("/profile/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "a@b.com") {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRejectedTokenCookieIsCleared(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)
	b.jar.SetCookies(testSiteURL, []*http.Cookie{{Name: "token", Value: "stale", Path: "/"}})

	rec := b.get("/blogs/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if b.cookie("token") != "" {
		t.Fatalf("rejected token cookie was kept")
	}
}

func TestToggleSaveAndSavedPage(t *testing.T) {
	app, be := newTestApp(t)
	b := newBrowser(t, app)
	b.login()

	rec := b.post("/blog/2/save/", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/blog/2/" {
		t.Fatalf("save: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	be.mu.Lock()
	saved := be.saved["2"]
	be.mu.Unlock()
	if !saved {
		t.Fatalf("backend did not record the save")
	}

	rec = b.get("/blog/saved/")
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "Lisbon on foot") || strings.Contains(body, "Learning Go") {
		t.Fatalf("saved page wrong (%d):\n%s", rec.Code, body)
	}
	if !strings.Contains(body, "Blog Saved") {
		t.Fatalf("saved page missing flashed notice")
	}
}

func TestFeedSitemapRobotsHealthz(t *testing.T) {
	app, _ := newTestApp(t)
	b := newBrowser(t, app)

	rec := b.get("/feed.xml")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<link>http://example.com/blog/1/</link>") {
		t.Fatalf("feed: %d\n%s", rec.Code, rec.Body.String())
	}
	rec = b.get("/sitemap.xml")
	if !strings.Contains(rec.Body.String(), "<lastmod>2026-02-14</lastmod>") {
		t.Fatalf("sitemap:\n%s", rec.Body.String())
	}
	rec = b.get("/robots.txt")
	if !strings.Contains(rec.Body.String(), "Sitemap: http://example.com/sitemap.xml") {
		t.Fatalf("robots:\n%s", rec.Body.String())
	}
	rec = b.get("/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if b.cookie(sessionName) != "" {
		t.Fatalf("machine paths should not start a session")
	}
}

func TestEmbeddedAssets(t *testing.T) {
	app, _ := newTestApp(t)
	rec := newBrowser(t, app).get("/public/styles.css")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "--ink") {
		t.Fatalf("styles.css: %d", rec.Code)
	}
}

func TestSetupRequiresSessionSecret(t *testing.T) {
	app := New(SiteConfig{})
	if err := app.Setup(); err == nil {
		t.Fatalf("expected error without SessionSecret")
	}
}

func TestCookielessRequestsDoNotRegisterVisitors(t *testing.T) {
	app, be := newTestApp(t)

	for i := 0; i < 200; i++ {
		rec := httptest.NewRecorder()
		app.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blogs/", nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Learning Go") {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	if n := app.Visitors.Len(); n != 0 {
		t.Fatalf("Visitors.Len = %d, want 0", n)
	}
	be.mu.Lock()
	calls := be.listCalls
	be.mu.Unlock()
	if calls != 1 {
		t.Fatalf("listing calls = %d, want 1 from the shared cache", calls)
	}

	// A browser that returns its session cookie gets one visitor.
	b := newBrowser(t, app)
	b.get("/blogs/")
	b.get("/blogs/")
	b.get("/blog/1/")
	if n := app.Visitors.Len(); n != 1 {
		t.Fatalf("Visitors.Len = %d, want 1", n)
	}
}
