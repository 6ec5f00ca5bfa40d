package retreat

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Go 1.24 -- released!  ", "go-1-24-released"},
		{"Ünïcode", "n-code"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", nil, "https://example.com"},
		{"https://example.com", []string{"blog", "42"}, "https://example.com/blog/42/"},
		{"https://example.com/sub", []string{"blogs"}, "https://example.com/sub/blogs/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/profile/", "/profile/"},
		{"//evil.example", "/blogs/"},
		{"https://evil.example", "/blogs/"},
		{"/\\evil", "/blogs/"},
		{"", "/blogs/"},
	}
	for _, tt := range tests {
		if got := safeRedirect(tt.in, "/blogs/"); got != tt.want {
			t.Errorf("safeRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
