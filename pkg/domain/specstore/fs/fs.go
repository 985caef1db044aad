// Package fs is a specstore.Store over a local directory tree,
// typically a git-synced or bucket-mounted volume of workflow documents.
package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidesys/dagmirror/pkg/domain/specstore"
)

type store struct {
	root string
}

func New(root string) specstore.Store {
	return &store{root: root}
}

var _ specstore.Store = &store{}

func (s *store) ListAllDocuments(ctx context.Context) ([]string, error) {
	found := []string{}
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			// fallthrough to record
		default:
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		found = append(found, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %s", specstore.ErrStorage, s.root, err)
	}
	return found, nil
}

func (s *store) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := filepath.Join(s.root, filepath.FromSlash(path))

	// refuse keys escaping the root.
	if rel, err := filepath.Rel(s.root, full); err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%w: %s is out of the store", specstore.ErrStorage, path)
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %s", specstore.ErrStorage, path, err)
	}
	return content, nil
}
