package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"tunneltap/internal/domain"
)

const urlTemplate = "https://update.code.visualstudio.com/latest/%s/stable"

// windowsExtractDir is fixed: runner images guarantee it exists and short
// paths avoid MAX_PATH trouble during extraction.
const windowsExtractDir = `C:\tunneltap`

// Resolver maps the host OS and architecture to a tunnel CLI download target.
type Resolver struct {
	goos    string
	goarch  string
	homeDir string
}

// New creates a Resolver for the current host.
func New() (*Resolver, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return &Resolver{goos: runtime.GOOS, goarch: runtime.GOARCH, homeDir: home}, nil
}

// NewFor creates a Resolver for an explicit OS/arch pair.
func NewFor(goos, goarch, homeDir string) *Resolver {
	return &Resolver{goos: goos, goarch: goarch, homeDir: homeDir}
}

// Resolve returns the PlatformTarget for the host. The architecture is
// checked before the operating system, and neither check performs any I/O.
func (r *Resolver) Resolve() (domain.PlatformTarget, error) {
	if r.goarch != "amd64" {
		return domain.PlatformTarget{}, fmt.Errorf("unsupported architecture: %s", r.goarch)
	}

	t := domain.PlatformTarget{OS: r.goos, Arch: "x64", ExeName: "code"}
	switch r.goos {
	case "linux":
		t.DownloadURL = fmt.Sprintf(urlTemplate, "cli-alpine-x64")
		t.ArchiveName = "vscode-cli-alpine-x64.tar.gz"
		t.ExtractDir = filepath.Join(r.homeDir, ".tunneltap", "cli")
	case "darwin":
		t.DownloadURL = fmt.Sprintf(urlTemplate, "cli-darwin-x64")
		t.ArchiveName = "vscode-cli-darwin-x64.zip"
		t.ExtractDir = filepath.Join(r.homeDir, ".tunneltap", "cli")
	case "windows":
		t.DownloadURL = fmt.Sprintf(urlTemplate, "cli-win32-x64")
		t.ArchiveName = "vscode-cli-win32-x64.zip"
		t.ExeName = "code.exe"
		t.ExtractDir = windowsExtractDir
	default:
		return domain.PlatformTarget{}, fmt.Errorf("unsupported platform: %s", r.goos)
	}
	return t, nil
}

// CacheRoot returns the base directory for the tool and data caches.
func (r *Resolver) CacheRoot() string {
	return filepath.Join(r.homeDir, ".tunneltap")
}

// DataDir returns the default tunnel CLI data directory.
func (r *Resolver) DataDir() string {
	return filepath.Join(r.homeDir, ".tunneltap", "data")
}
