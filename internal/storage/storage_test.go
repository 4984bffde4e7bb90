package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "uploads"), "/files")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return s
}

func TestNewLocalStore_EmptyRoot(t *testing.T) {
	if _, err := NewLocalStore("   ", "/files"); err == nil {
		t.Fatal("expected error for blank root")
	}
}

func TestPut_WritesFileUnderRoot(t *testing.T) {
	s := newTestStore(t)

	key, err := s.Put(context.Background(), "anonymous_1/req-1/document_0.pdf", "application/pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key != "anonymous_1/req-1/document_0.pdf" {
		t.Fatalf("key = %q", key)
	}

	b, err := os.ReadFile(filepath.Join(s.Root, "anonymous_1", "req-1", "document_0.pdf"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "content" {
		t.Fatalf("content = %q", b)
	}
}

func TestPut_RejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, key := range []string{"", "   ", "..", "../outside.txt", "a/../../outside.txt"} {
		if _, err := s.Put(context.Background(), key, "", strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q): expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestPut_CancelledContext(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, "a/b.txt", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected context error")
	}
}

func TestPublicURL_EscapesSegments(t *testing.T) {
	s := newTestStore(t)

	got := s.PublicURL("anonymous_1/req 1/document_0.pdf")
	if got != "/files/anonymous_1/req%201/document_0.pdf" {
		t.Fatalf("url = %q", got)
	}

	if s.PublicURL("../etc/passwd") != "" {
		t.Fatal("traversal key must yield empty URL")
	}
}
