package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tunneltap/internal/domain"
)

// ToolName keys the tunnel CLI in the tool cache.
const ToolName = "vscode-cli"

// SessionSupervisor runs a provisioned binary to session completion.
type SessionSupervisor interface {
	Supervise(binPath string, cfg SuperviseConfig) error
}

// Config holds the resolved inputs for one tunnel session.
type Config struct {
	Target domain.PlatformTarget

	// ActorKey keys the persisted data directory; "" skips persistence.
	ActorKey string

	Supervise SuperviseConfig
}

// Service orchestrates the tunnel lifecycle: version resolution, binary
// provisioning, data-directory persistence, and session supervision.
type Service struct {
	versions  domain.VersionResolver
	download  domain.Downloader
	extract   domain.Extractor
	binCache  domain.ToolCache
	dataCache domain.DataCache
	super     SessionSupervisor
	log       domain.Logger
}

// NewService creates the application service with all dependencies injected.
func NewService(
	vr domain.VersionResolver,
	dl domain.Downloader,
	ex domain.Extractor,
	bc domain.ToolCache,
	dc domain.DataCache,
	sup SessionSupervisor,
	lg domain.Logger,
) *Service {
	return &Service{
		versions:  vr,
		download:  dl,
		extract:   ex,
		binCache:  bc,
		dataCache: dc,
		super:     sup,
		log:       lg,
	}
}

// Run provisions the tunnel CLI and supervises a full session. The data
// directory is restored before launch and saved back after a clean exit;
// both are best-effort when an actor key is configured, skipped entirely
// otherwise.
func (s *Service) Run(cfg Config) error {
	version := s.versions.LatestStable()
	if version == "" {
		return fmt.Errorf("resolve tunnel CLI version: release feed yielded no version")
	}
	s.log.Info("resolved stable version", "version", version)

	binPath, err := s.Provision(version, cfg.Target)
	if err != nil {
		return err
	}

	if cfg.ActorKey != "" {
		restored, err := s.dataCache.Restore(cfg.ActorKey, cfg.Supervise.DataDir)
		switch {
		case err != nil:
			s.log.Warn("data directory restore failed", "key", cfg.ActorKey, "err", err)
		case restored:
			s.log.Info("data directory restored", "key", cfg.ActorKey)
		default:
			s.log.Info("no cached data directory", "key", cfg.ActorKey)
		}
	}

	if err := s.super.Supervise(binPath, cfg.Supervise); err != nil {
		return err
	}

	if cfg.ActorKey != "" {
		if err := s.dataCache.Save(cfg.ActorKey, cfg.Supervise.DataDir); err != nil {
			s.log.Warn("data directory save failed", "key", cfg.ActorKey, "err", err)
		} else {
			s.log.Info("data directory saved", "key", cfg.ActorKey)
		}
	}
	return nil
}

// Provision ensures the tunnel CLI binary for version is available locally
// and returns the path to it. A cache hit performs no network or archive
// work at all; a miss does exactly one download and one extraction, then
// stores the verified binary under (ToolName, version).
func (s *Service) Provision(version string, target domain.PlatformTarget) (string, error) {
	if err := os.MkdirAll(target.ExtractDir, 0755); err != nil {
		return "", fmt.Errorf("create extract dir: %w", err)
	}

	if dir, err := s.binCache.Find(ToolName, version); err != nil {
		// Lookup failure degrades to a fresh download.
		s.log.Warn("tool cache lookup failed", "tool", ToolName, "version", version, "err", err)
	} else if dir != "" {
		s.log.Info("using cached tunnel CLI", "version", version, "dir", dir)
		return filepath.Join(dir, target.ExeName), nil
	}

	archivePath := filepath.Join(target.ExtractDir, target.ArchiveName)
	s.log.Info("downloading tunnel CLI", "version", version, "url", target.DownloadURL)
	if err := s.download.Download(target.DownloadURL, archivePath); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	extractedDir, err := s.extract.Extract(archivePath, target.ExtractDir)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}

	exePath := filepath.Join(extractedDir, target.ExeName)
	if info, err := os.Stat(exePath); err != nil || info.IsDir() {
		return "", fmt.Errorf("extracted archive missing executable %s", exePath)
	}
	if target.OS != "windows" {
		if err := os.Chmod(exePath, 0755); err != nil {
			return "", fmt.Errorf("mark executable: %w", err)
		}
	}

	dir, err := s.binCache.Store(exePath, ToolName, version)
	if err != nil {
		return "", fmt.Errorf("store in tool cache: %w", err)
	}
	_ = os.Remove(archivePath)

	return filepath.Join(dir, target.ExeName), nil
}

// ActorKey derives the data-cache key for an invoking identity. Empty
// input disables persistence; anything path-hostile is flattened.
func ActorKey(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ""
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, actor)
	return "tunnel-data-" + clean
}
