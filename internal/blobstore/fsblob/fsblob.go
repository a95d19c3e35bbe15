// Package fsblob stores blobs as files under a root directory on the local
// filesystem.
package fsblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coalbin/dropvault/internal/blobstore"
)

// Store implements blobstore.BlobStore backed by a directory tree.
type Store struct {
	root string
}

// New returns a Store rooted at dir. dir is created if it does not exist.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fsblob: create root: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("fsblob: resolve root: %w", err)
	}
	return &Store{root: abs}, nil
}

func (s *Store) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	p := filepath.Join(s.root, clean)
	if !strings.HasPrefix(p, s.root+string(filepath.Separator)) && p != s.root {
		return "", fmt.Errorf("fsblob: invalid key %q", key)
	}
	return p, nil
}

// Put writes the object atomically: bytes land in a temp file beside the
// destination, are fsynced, then renamed into place. On any failure the temp
// file is removed and the destination is left untouched.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	_ = ctx
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("fsblob: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("fsblob: create temp: %w", err)
	}
	tmpName := tmp.Name()
	removeTemp := true
	defer func() {
		if removeTemp {
			_ = os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsblob: write: %w", err)
	}
	if size >= 0 && written != size {
		_ = tmp.Close()
		return fmt.Errorf("fsblob: short write: wrote %d, expected %d", written, size)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsblob: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fsblob: close temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("fsblob: rename: %w", err)
	}
	removeTemp = false
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, blobstore.ErrNotFound
		}
		return nil, fmt.Errorf("fsblob: open: %w", err)
	}
	return f, nil
}

func (s *Store) Head(ctx context.Context, key string) (int64, error) {
	_ = ctx
	p, err := s.path(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, blobstore.ErrNotFound
		}
		return 0, fmt.Errorf("fsblob: stat: %w", err)
	}
	return info.Size(), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("fsblob: remove: %w", err)
	}
	return nil
}

// List walks the whole root recursively and returns every key (relative,
// slash-separated path) whose string begins with prefix. An empty prefix
// lists every object, including ones nested under key paths that contain
// "/" (blobmeta's own metadata objects, for instance).
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	_ = ctx
	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ".health" {
			return nil
		}
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		keys = append(keys, rel)
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("fsblob: walk: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Healthy(ctx context.Context) error {
	_ = ctx
	probe := filepath.Join(s.root, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("fsblob: health write: %w", err)
	}
	return os.Remove(probe)
}
