package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an identifier the services send either as a JSON string or as a
// number. It decodes both into the same decimal string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: want string or number, got %s", data)
	}
	*id = ID(n.String())
	return nil
}

// User is the profile returned by the user service.
type User struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Image     string `json:"image"`
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
	LinkedIn  string `json:"linkedin"`
	Bio       string `json:"bio"`
}

// Blog is a published post as listed by the blog service. Its ID arrives as a
// number or a string and is kept as a string.
type Blog struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"blogcontent"` // HTML from the rich-text editor
	Image       string `json:"image"`
	Category    string `json:"category"`
	Author      string `json:"author"` // user ID of the author
	CreatedAt   string `json:"created_at"`
}

func (b *Blog) UnmarshalJSON(data []byte) error {
	type plain Blog
	aux := struct {
		*plain
		ID ID `json:"id"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.ID = string(aux.ID)
	return nil
}

// SavedBlog links a user to a bookmarked blog.
type SavedBlog struct {
	ID        string `json:"id"`
	UserID    string `json:"userid"`
	BlogID    string `json:"blogid"`
	CreatedAt string `json:"create_at"`
}

func (s *SavedBlog) UnmarshalJSON(data []byte) error {
	type plain SavedBlog
	aux := struct {
		*plain
		ID     ID `json:"id"`
		UserID ID `json:"userid"`
		BlogID ID `json:"blogid"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ID, s.UserID, s.BlogID = string(aux.ID), string(aux.UserID), string(aux.BlogID)
	return nil
}

// BlogDetail is a single blog together with its author's profile.
type BlogDetail struct {
	Blog   Blog `json:"blog"`
	Author User `json:"author"`
}

// AuthResponse is returned by every endpoint that issues a token.
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message"`
	User    User   `json:"user"`
}

// Credentials are posted to the email/password login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is posted to the register endpoint.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate is the full editable profile field set.
type ProfileUpdate struct {
	Name      string `json:"name"`
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
	LinkedIn  string `json:"linkedin"`
	Bio       string `json:"bio"`
}

// NewBlog carries the text fields of a blog to publish.
type NewBlog struct {
	Title       string
	Description string
	Content     string
	Category    string
}

// Upload is an in-memory file attached to a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Filter parameterizes the blog listing.
type Filter struct {
	SearchQuery string
	Category    string
}
