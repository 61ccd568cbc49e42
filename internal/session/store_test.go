package session

import (
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "advisoriq", "session"))
}

func TestGetWithoutSession(t *testing.T) {
	s := tempStore(t)
	if token, ok := s.Get(); ok || token != "" {
		t.Fatalf("expected no session, got %q", token)
	}
}

func TestSetGetClear(t *testing.T) {
	s := tempStore(t)

	if err := s.Set("tok-123"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	token, ok := s.Get()
	if !ok || token != "tok-123" {
		t.Fatalf("expected stored token, got %q ok=%v", token, ok)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := s.Get(); ok {
		t.Fatal("token should be gone after Clear")
	}
}

func TestSetRejectsEmptyToken(t *testing.T) {
	s := tempStore(t)
	if err := s.Set("   "); err == nil {
		t.Fatal("empty token must be rejected")
	}
}

func TestClearIdempotent(t *testing.T) {
	s := tempStore(t)
	if err := s.Clear(); err != nil {
		t.Fatalf("clearing an absent session should succeed: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second clear should succeed: %v", err)
	}
}

func TestGetTrimsWhitespace(t *testing.T) {
	s := tempStore(t)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.path, []byte("  tok-456\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	token, ok := s.Get()
	if !ok || token != "tok-456" {
		t.Fatalf("expected trimmed token, got %q", token)
	}
}
