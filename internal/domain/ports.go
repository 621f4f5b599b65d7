package domain

import "io"

// VersionResolver determines the latest stable tunnel CLI version.
// LatestStable returns "" when resolution fails for any reason; callers are
// responsible for treating an empty version as fatal.
type VersionResolver interface {
	LatestStable() string
}

// Downloader fetches a tool archive from a URL to a local path.
type Downloader interface {
	Download(url, dest string) error
}

// Extractor unpacks an archive into a target directory and returns the
// directory the files landed in. The format is chosen from the archive
// file extension.
type Extractor interface {
	Extract(archivePath, targetDir string) (string, error)
}

// ToolCache is a keyed on-disk store for provisioned binaries.
// Find returns the cached directory for (tool, version), or "" on a miss.
// Store copies the binary at exePath under the (tool, version) key and
// returns the cache directory now holding it. Entries are never evicted
// here; eviction belongs to whoever owns the cache root.
type ToolCache interface {
	Find(tool, version string) (string, error)
	Store(exePath, tool, version string) (string, error)
}

// DataCache persists the tunnel CLI data directory across invocations.
// Failures are never fatal to a session; callers log and continue.
type DataCache interface {
	Restore(key, dir string) (restored bool, err error)
	Save(key, dir string) error
}

// TunnelRunner starts the tunnel binary with captured output streams.
type TunnelRunner interface {
	Start(binPath string, args []string) (TunnelProcess, error)
}

// TunnelProcess is a running tunnel child process.
type TunnelProcess interface {
	Output() io.Reader
	Errors() io.Reader
	// Wait blocks until the process exits and returns its exit code. The
	// error is non-nil only when the process could not be awaited at all.
	Wait() (int, error)
	// Kill requests best-effort termination. It never blocks on process
	// death; the exit itself is observed through Wait.
	Kill() KillResult
}

// Logger provides leveled structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
