// Package client talks to the user, author and blog services over their REST
// APIs. It holds no state of its own; tokens are passed in per call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

const apiPrefix = "/api/v1"

// maxErrorBody caps how much of a failure payload is read for its message.
const maxErrorBody = 64 << 10

// Endpoints holds the base URL of each backing service.
type Endpoints struct {
	User   string
	Author string
	Blog   string
}

// Client is a typed wrapper around the three services.
type Client struct {
	Endpoints  Endpoints
	HTTPClient *http.Client
}

// New creates a Client. A nil httpClient selects http.DefaultClient.
func New(endpoints Endpoints, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		Endpoints: Endpoints{
			User:   strings.TrimRight(endpoints.User, "/"),
			Author: strings.TrimRight(endpoints.Author, "/"),
			Blog:   strings.TrimRight(endpoints.Blog, "/"),
		},
		HTTPClient: httpClient,
	}
}

// Me returns the user owning token.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var user User
	err := c.getJSON(ctx, c.Endpoints.User+apiPrefix+"/me", token, &user)
	return user, err
}

// Login exchanges email and password for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResponse, error) {
	var resp AuthResponse
	err := c.postJSON(ctx, c.Endpoints.User+apiPrefix+"/auth/login", "", creds, &resp)
	return resp, err
}

// Register creates an account and returns its first token.
func (c *Client) Register(ctx context.Context, reg Registration) (AuthResponse, error) {
	var resp AuthResponse
	err := c.postJSON(ctx, c.Endpoints.User+apiPrefix+"/auth/register", "", reg, &resp)
	return resp, err
}

// OAuthLogin hands a Google authorization code to the user service, which
// performs the exchange and answers with a token.
func (c *Client) OAuthLogin(ctx context.Context, code string) (AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"code": code}
	err := c.postJSON(ctx, c.Endpoints.User+apiPrefix+"/login", "", body, &resp)
	return resp, err
}

// UpdateProfile replaces the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, token string, p ProfileUpdate) (AuthResponse, error) {
	var resp AuthResponse
	err := c.postJSON(ctx, c.Endpoints.User+apiPrefix+"/user/update", token, p, &resp)
	return resp, err
}

// UpdateAvatar uploads a new profile picture.
func (c *Client) UpdateAvatar(ctx context.Context, token string, file Upload) (AuthResponse, error) {
	var resp AuthResponse
	body, contentType, err := multipartBody(nil, &file)
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodPost, c.Endpoints.User+apiPrefix+"/user/update/pic", token, body, contentType, &resp)
	return resp, err
}

// ListBlogs returns the blogs matching f. An empty filter lists everything.
func (c *Client) ListBlogs(ctx context.Context, f Filter) ([]Blog, error) {
	q := url.Values{}
	q.Set("searchQuery", f.SearchQuery)
	q.Set("category", f.Category)
	var blogs []Blog
	if err := c.getJSON(ctx, c.Endpoints.Blog+apiPrefix+"/blog/all?"+q.Encode(), "", &blogs); err != nil {
		return nil, err
	}
	if blogs == nil {
		blogs = []Blog{}
	}
	return blogs, nil
}

// GetBlog returns one blog with its author.
func (c *Client) GetBlog(ctx context.Context, id string) (BlogDetail, error) {
	var detail BlogDetail
	err := c.getJSON(ctx, c.Endpoints.Blog+apiPrefix+"/blog/"+url.PathEscape(id), "", &detail)
	return detail, err
}

// ListSaved returns the bookmark records of the token's owner.
func (c *Client) ListSaved(ctx context.Context, token string) ([]SavedBlog, error) {
	var saved []SavedBlog
	if err := c.getJSON(ctx, c.Endpoints.Blog+apiPrefix+"/blog/saved/all", token, &saved); err != nil {
		return nil, err
	}
	if saved == nil {
		saved = []SavedBlog{}
	}
	return saved, nil
}

// ToggleSave bookmarks blogID, or removes the bookmark if it exists.
func (c *Client) ToggleSave(ctx context.Context, token, blogID string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.getJSON(ctx, c.Endpoints.Blog+apiPrefix+"/save/"+url.PathEscape(blogID), token, &resp)
	return resp.Message, err
}

// CreateBlog publishes a blog. image may be nil.
func (c *Client) CreateBlog(ctx context.Context, token string, b NewBlog, image *Upload) (string, error) {
	fields := [][2]string{
		{"title", b.Title},
		{"description", b.Description},
		{"blogcontent", b.Content},
		{"category", b.Category},
	}
	body, contentType, err := multipartBody(fields, image)
	if err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	err = c.do(ctx, http.MethodPost, c.Endpoints.Author+apiPrefix+"/blog/new", token, body, contentType, &resp)
	return resp.Message, err
}

// AITitle returns a polished version of a blog title.
func (c *Client) AITitle(ctx context.Context, text string) (string, error) {
	var out string
	err := c.postJSON(ctx, c.Endpoints.Author+apiPrefix+"/ai/title", "", map[string]string{"text": text}, &out)
	return out, err
}

// AIDescription generates a description from a title and an optional draft.
func (c *Client) AIDescription(ctx context.Context, title, description string) (string, error) {
	var out string
	body := map[string]string{"title": title, "description": description}
	// The author service spells the route this way.
	err := c.postJSON(ctx, c.Endpoints.Author+apiPrefix+"/ai/descripiton", "", body, &out)
	return out, err
}

// AIGrammar returns the blog HTML with grammar fixed.
func (c *Client) AIGrammar(ctx context.Context, blog string) (string, error) {
	var out struct {
		HTML string `json:"html"`
	}
	err := c.postJSON(ctx, c.Endpoints.Author+apiPrefix+"/ai/blog", "", map[string]string{"blog": blog}, &out)
	return out.HTML, err
}

func (c *Client) getJSON(ctx context.Context, u, token string, out any) error {
	return c.do(ctx, http.MethodGet, u, token, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, u, token string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, u, token, bytes.NewReader(b), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, u, token string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return parseError(resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// multipartBody encodes text fields and an optional file under the "file" field.
func multipartBody(fields [][2]string, file *Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Filename))
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
