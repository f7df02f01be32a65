// Package storage keeps uploaded verification documents on the local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	maxNameLen      = 100
	maxNameAttempts = 20
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalStore writes documents into a single directory. Stored paths are
// relative to the process working directory, e.g. uploads/1718000000000-id.pdf.
type LocalStore struct {
	dir string
	now func() time.Time
}

// NewLocalStore creates dir if needed and returns a store writing into it.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, now: time.Now}, nil
}

// Save writes r to <unix-millis>-<sanitized name>. An existing file is never
// overwritten; a numeric suffix is tried instead.
func (s *LocalStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	base, ext := splitName(sanitizeName(originalName))
	prefix := strconv.FormatInt(s.now().UnixMilli(), 10)

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		name := prefix + "-" + base + ext
		if attempt > 0 {
			name = fmt.Sprintf("%s-%s-%d%s", prefix, base, attempt, ext)
		}
		path := filepath.Join(s.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", name, err)
		}

		if _, err := io.Copy(f, r); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("close %s: %w", name, err)
		}
		return filepath.ToSlash(path), nil
	}

	return "", fmt.Errorf("no free file name for %q after %d attempts", originalName, maxNameAttempts)
}

// Remove deletes a stored document. Paths outside the store directory are refused.
func (s *LocalStore) Remove(_ context.Context, path string) error {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.Dir(clean) != filepath.Clean(s.dir) {
		return fmt.Errorf("refusing to remove %q outside %q", path, s.dir)
	}
	if err := os.Remove(clean); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// sanitizeName reduces a client-supplied file name to a safe base name.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "document"
	}
	if len(name) > maxNameLen {
		base, ext := splitName(name)
		if len(ext) > 10 {
			base, ext = name, ""
		}
		name = base[:maxNameLen-len(ext)] + ext
	}
	return name
}

func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		return ext, ""
	}
	return base, ext
}
