package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type diskStore struct {
	root string
}

func NewDiskStore(root string) (Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &diskStore{root: abs}, nil
}

func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "unnamed"
	}
	return name
}

func (s *diskStore) Save(ctx context.Context, dir, name string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	target := filepath.Join(s.root, sanitize(dir))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(target, sanitize(name))
	tmp, err := os.CreateTemp(target, ".upload-*")
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write blob: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, err
	}
	return path, n, nil
}

func (s *diskStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	if !strings.HasPrefix(filepath.Clean(path), s.root) {
		return nil, fmt.Errorf("path %s outside storage root", path)
	}
	return os.Open(path)
}
