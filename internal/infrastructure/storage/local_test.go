package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	fixed := time.UnixMilli(1718000000000)
	s.now = func() time.Time { return fixed }
	return s, dir
}

func TestLocalStore_SaveWritesTimestampedName(t *testing.T) {
	s, dir := newTestStore(t)

	path, err := s.Save(context.Background(), "ID card.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if want := filepath.ToSlash(filepath.Join(dir, "1718000000000-ID_card.pdf")); path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("unexpected content %q, err %v", data, err)
	}
}

func TestLocalStore_SaveNeverOverwrites(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.Save(context.Background(), "a.pdf", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := s.Save(context.Background(), "a.pdf", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct paths, both %s", first)
	}
	if !strings.HasSuffix(second, "-a-1.pdf") {
		t.Fatalf("expected numeric suffix, got %s", second)
	}
	data, _ := os.ReadFile(filepath.FromSlash(first))
	if string(data) != "one" {
		t.Fatalf("first file was overwritten: %q", data)
	}
}

func TestLocalStore_Remove(t *testing.T) {
	s, _ := newTestStore(t)

	path, _ := s.Save(context.Background(), "a.png", strings.NewReader("x"))
	if err := s.Remove(context.Background(), path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.FromSlash(path)); !os.IsNotExist(err) {
		t.Fatalf("expected file gone, stat err %v", err)
	}
	if err := s.Remove(context.Background(), path); err != nil {
		t.Fatalf("removing a missing file should be a no-op, got %v", err)
	}
	if err := s.Remove(context.Background(), "/etc/passwd"); err == nil {
		t.Fatalf("expected refusal outside the store directory")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":     "passwd",
		`C:\Users\me\id.pdf`:   "id.pdf",
		"my lease (final).pdf": "my_lease_final_.pdf",
		"":                     "document",
		"...":                  "document",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}

	long := strings.Repeat("x", 300) + ".pdf"
	if got := sanitizeName(long); len(got) != maxNameLen || !strings.HasSuffix(got, ".pdf") {
		t.Errorf("expected truncated name keeping extension, got %d chars %q", len(got), got[len(got)-4:])
	}
}
