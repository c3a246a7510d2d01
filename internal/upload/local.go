// Package upload persists uploaded product images.
package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultURLPrefix is the public path under which LocalStore files are served.
const DefaultURLPrefix = "/uploads"

// LocalStore writes uploads into a directory served as static content.
type LocalStore struct {
	// Dir is the directory files are written to. It is created on demand.
	Dir string
	// URLPrefix is prepended to the file name to build the public path.
	URLPrefix string
}

// NewLocalStore returns a LocalStore rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Dir: dir, URLPrefix: DefaultURLPrefix}
}

// Save writes data to Dir/name and returns its public path.
func (s *LocalStore) Save(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	prefix := s.URLPrefix
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	return path.Join(prefix, name), nil
}
