package domain

// PlatformTarget maps the host OS and architecture to download and install
// facts for the tunnel CLI. Computed once at startup; never mutated.
type PlatformTarget struct {
	OS          string
	Arch        string
	DownloadURL string
	ArchiveName string
	ExtractDir  string
	ExeName     string
}

// KillOutcome classifies what happened when termination was requested.
type KillOutcome int

const (
	KillSignaled KillOutcome = iota
	KillAlreadyExited
	KillFailed
)

// KillResult reports a best-effort kill attempt. Err is set only for
// KillFailed.
type KillResult struct {
	Outcome KillOutcome
	Err     error
}
