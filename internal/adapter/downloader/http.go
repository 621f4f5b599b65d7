package downloader

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tunneltap/internal/domain"
)

// HTTPDownloader fetches tool archives over HTTP.
type HTTPDownloader struct {
	client *http.Client
	log    domain.Logger
}

// NewHTTP creates a downloader with a generous timeout for large archives.
func NewHTTP(log domain.Logger) *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{Timeout: 5 * time.Minute},
		log:    log,
	}
}

// Download fetches url into dest. A single attempt is made; there is no
// retry. The write is atomic: a temp file in dest's directory renamed into
// place on success.
func (d *HTTPDownloader) Download(url, dest string) error {
	d.log.Debug("downloading archive", "url", url, "dest", dest)

	resp, err := d.client.Get(url)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write archive: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename archive: %w", err)
	}

	d.log.Debug("download complete", "dest", dest)
	return nil
}
