package credential

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTokenFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Vaani Virtual Assistant", "user_token.json")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	return path
}

func TestLoad_RoundTrip(t *testing.T) {
	path := writeTokenFile(t, `{"token": "abc123"}`)

	token, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "abc123" {
		t.Errorf("expected token=abc123, got %q", token)
	}
}

func TestLoad_ReturnsExactString(t *testing.T) {
	for _, want := range []string{"x", "eyJhbGciOiJIUzI1NiJ9.e30.sig", "  spaced  ", "ünïcode"} {
		path := writeTokenFile(t, `{"token": "`+want+`"}`)
		got, err := NewStore(path).Load()
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", want, err)
		}
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestLoad_MissingFileIsAbsent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "user_token.json"))

	token, err := store.Load()
	if err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token, got %q", token)
	}
}

func TestLoad_MissingFieldIsAbsent(t *testing.T) {
	path := writeTokenFile(t, `{"user": "someone"}`)

	token, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("missing field should not be an error, got %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token, got %q", token)
	}
}

func TestLoad_NonStringFieldIsAbsent(t *testing.T) {
	path := writeTokenFile(t, `{"token": 42}`)

	token, err := NewStore(path).Load()
	if err != nil || token != "" {
		t.Errorf("expected (\"\", nil), got (%q, %v)", token, err)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeTokenFile(t, `{"token": `)

	_, err := NewStore(path).Load()
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestStore_Path(t *testing.T) {
	if got := NewStore("/a/b.json").Path(); got != "/a/b.json" {
		t.Errorf("unexpected path %q", got)
	}
}
