package tokenstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/retreat/state"
)

func setupTestStore(t *testing.T, profile string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "tokens.db"), profile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmptyStore(t *testing.T) {
	s := setupTestStore(t, "")

	tok, err := s.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "" {
		t.Fatalf("expected empty token, got %q", tok)
	}
	if s.profile != DefaultProfile {
		t.Errorf("profile = %q, want %q", s.profile, DefaultProfile)
	}
}

func TestSetAndClearToken(t *testing.T) {
	s := setupTestStore(t, "")

	if err := s.SetToken("T"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if tok, _ := s.Token(); tok != "T" {
		t.Fatalf("token = %q, want T", tok)
	}
	if err := s.SetToken("T2"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if tok, _ := s.Token(); tok != "T2" {
		t.Fatalf("token = %q, want T2", tok)
	}
	if err := s.ClearToken(); err != nil {
		t.Fatalf("ClearToken failed: %v", err)
	}
	if err := s.ClearToken(); err != nil {
		t.Fatalf("second ClearToken failed: %v", err)
	}
	if tok, _ := s.Token(); tok != "" {
		t.Fatalf("token = %q after clear", tok)
	}
}

func TestTokenExpires(t *testing.T) {
	s := setupTestStore(t, "")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.SetToken("T"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}

	now = now.Add(state.TokenTTL - time.Minute)
	if tok, _ := s.Token(); tok != "T" {
		t.Fatalf("token = %q before expiry", tok)
	}

	now = now.Add(2 * time.Minute)
	if tok, _ := s.Token(); tok != "" {
		t.Fatalf("token = %q after expiry, want empty", tok)
	}
	profiles, err := s.Profiles()
	if err != nil {
		t.Fatalf("Profiles failed: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected expired row to be removed, got %v", profiles)
	}
}

func TestProfilesAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")
	work, err := Open(path, "work")
	if err != nil {
		t.Fatalf("open work: %v", err)
	}
	if err := work.SetToken("W"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	work.Close()

	home, err := Open(path, "home")
	if err != nil {
		t.Fatalf("open home: %v", err)
	}
	defer home.Close()
	if tok, _ := home.Token(); tok != "" {
		t.Fatalf("home token = %q, want empty", tok)
	}
	if err := home.SetToken("H"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	profiles, err := home.Profiles()
	if err != nil {
		t.Fatalf("Profiles failed: %v", err)
	}
	if len(profiles) != 2 || profiles[0] != "home" || profiles[1] != "work" {
		t.Fatalf("profiles = %v", profiles)
	}
}
