package datacache

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"tunneltap/internal/domain"
)

// Dir persists tunnel data directories under <root>/<key>. One entry per
// key; Save replaces the previous entry wholesale.
type Dir struct {
	root string
	log  domain.Logger
}

// New creates a data cache rooted at root.
func New(root string, log domain.Logger) *Dir {
	return &Dir{root: root, log: log}
}

// Restore copies the cached tree for key into dir. Returns false when no
// entry exists for the key.
func (c *Dir) Restore(key, dir string) (bool, error) {
	src := filepath.Join(c.root, key)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat cache entry: %w", err)
	}
	if err := copyTree(src, dir); err != nil {
		return false, fmt.Errorf("restore data dir: %w", err)
	}
	c.log.Debug("data directory restored", "key", key, "dir", dir)
	return true, nil
}

// Save copies dir into the cache under key. The entry is staged in a temp
// directory and renamed into place.
func (c *Dir) Save(key, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}
	if err := os.MkdirAll(c.root, 0755); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}

	tmp, err := os.MkdirTemp(c.root, ".save-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	if err := copyTree(dir, tmp); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("save data dir: %w", err)
	}

	dest := filepath.Join(c.root, key)
	_ = os.RemoveAll(dest)
	if err := os.Rename(tmp, dest); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("rename cache entry: %w", err)
	}

	c.log.Debug("data directory saved", "key", key)
	return nil
}

// copyTree recursively copies src into dst, preserving file modes.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}
