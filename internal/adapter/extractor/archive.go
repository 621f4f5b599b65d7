package extractor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"tunneltap/internal/domain"
)

// Archive unpacks tool archives. Tarballs go through the system tar
// command; zip archives are unpacked in-process.
type Archive struct {
	log domain.Logger
}

// New creates an extractor.
func New(log domain.Logger) *Archive {
	return &Archive{log: log}
}

// Extract unpacks archivePath into targetDir and returns the directory the
// files landed in. The format is chosen from the file extension.
func (e *Archive) Extract(archivePath, targetDir string) (string, error) {
	e.log.Debug("extracting archive", "archive", archivePath, "target", targetDir)

	switch {
	case strings.HasSuffix(archivePath, ".zip"):
		if err := e.extractZip(archivePath, targetDir); err != nil {
			return "", err
		}
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		if err := e.extractTar(archivePath, targetDir); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}

	e.log.Debug("extraction complete", "target", targetDir)
	return targetDir, nil
}

func (e *Archive) extractTar(archivePath, targetDir string) error {
	cmd := exec.Command("tar", "xzf", archivePath, "-C", targetDir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("tar extract: %w: %s", err, bytes.TrimSpace(out))
	}
	return nil
}

func (e *Archive) extractZip(archivePath, targetDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := e.writeZipEntry(f, targetDir); err != nil {
			return err
		}
	}
	return nil
}

func (e *Archive) writeZipEntry(f *zip.File, targetDir string) error {
	// Reject entries that would escape the target directory.
	dest := filepath.Join(targetDir, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(dest, filepath.Clean(targetDir)+string(os.PathSeparator)) {
		return fmt.Errorf("zip entry escapes target dir: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create entry dir: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	w, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(w, rc); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return w.Close()
}
