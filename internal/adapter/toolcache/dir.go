package toolcache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tunneltap/internal/domain"
)

// completeMarker is written last during Store; an entry without it is
// treated as a miss so a crashed store is never served.
const completeMarker = ".complete"

// Dir is a keyed on-disk binary cache laid out as <root>/<tool>/<version>/.
type Dir struct {
	root string
	log  domain.Logger
}

// New creates a cache rooted at root.
func New(root string, log domain.Logger) *Dir {
	return &Dir{root: root, log: log}
}

func (c *Dir) entryDir(tool, version string) string {
	return filepath.Join(c.root, tool, version)
}

// Find returns the cached directory for (tool, version), or "" on a miss.
func (c *Dir) Find(tool, version string) (string, error) {
	dir := c.entryDir(tool, version)
	if _, err := os.Stat(filepath.Join(dir, completeMarker)); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("cache lookup: %w", err)
	}
	return dir, nil
}

// Store copies the binary at exePath into the cache under (tool, version)
// and returns the entry directory. The entry is staged in a temp directory
// and renamed into place, replacing any partial previous entry.
func (c *Dir) Store(exePath, tool, version string) (string, error) {
	dir := c.entryDir(tool, version)
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.MkdirTemp(filepath.Dir(dir), ".store-*")
	if err != nil {
		return "", fmt.Errorf("create temp entry: %w", err)
	}

	if err := copyFile(exePath, filepath.Join(tmp, filepath.Base(exePath))); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("copy binary into cache: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, completeMarker), nil, 0644); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("write cache marker: %w", err)
	}

	_ = os.RemoveAll(dir)
	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("rename cache entry: %w", err)
	}

	c.log.Debug("stored binary in tool cache", "tool", tool, "version", version, "dir", dir)
	return dir, nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
