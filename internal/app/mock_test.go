package app

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tunneltap/internal/domain"
)

// mockVersions returns a fixed version string.
type mockVersions struct {
	version string
}

func (m *mockVersions) LatestStable() string { return m.version }

// mockDownloader records calls and writes the dest file unless downloadFn
// overrides it.
type mockDownloader struct {
	downloadFn func(url, dest string) error
	calls      int
	lastURL    string
	lastDest   string
}

func (m *mockDownloader) Download(url, dest string) error {
	m.calls++
	m.lastURL = url
	m.lastDest = dest
	if m.downloadFn != nil {
		return m.downloadFn(url, dest)
	}
	return os.WriteFile(dest, []byte("archive"), 0644)
}

// mockExtractor records calls; by default it drops the named executable
// into the target directory.
type mockExtractor struct {
	extractFn func(archive, target string) (string, error)
	exeName   string
	calls     int
	lastPath  string
}

func (m *mockExtractor) Extract(archive, target string) (string, error) {
	m.calls++
	m.lastPath = archive
	if m.extractFn != nil {
		return m.extractFn(archive, target)
	}
	if err := os.WriteFile(filepath.Join(target, m.exeName), []byte("binary"), 0644); err != nil {
		return "", err
	}
	return target, nil
}

// mockToolCache is an in-memory ToolCache backed by real directories so
// stored binaries can be stat'd.
type mockToolCache struct {
	root    string
	entries map[string]string // "tool@version" → dir
	findErr error
	stored  []string
}

func newMockToolCache(root string) *mockToolCache {
	return &mockToolCache{root: root, entries: map[string]string{}}
}

func (m *mockToolCache) Find(tool, version string) (string, error) {
	if m.findErr != nil {
		return "", m.findErr
	}
	return m.entries[tool+"@"+version], nil
}

func (m *mockToolCache) Store(exePath, tool, version string) (string, error) {
	dir := filepath.Join(m.root, tool, version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	data, err := os.ReadFile(exePath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, filepath.Base(exePath)), data, 0755); err != nil {
		return "", err
	}
	m.entries[tool+"@"+version] = dir
	m.stored = append(m.stored, tool+"@"+version)
	return dir, nil
}

// mockDataCache records restore/save calls.
type mockDataCache struct {
	restoreHit bool
	restoreErr error
	saveErr    error
	restored   []string
	saved      []string
}

func (m *mockDataCache) Restore(key, dir string) (bool, error) {
	m.restored = append(m.restored, key)
	return m.restoreHit, m.restoreErr
}

func (m *mockDataCache) Save(key, dir string) error {
	m.saved = append(m.saved, key)
	return m.saveErr
}

// mockSupervisor records the Supervise call.
type mockSupervisor struct {
	superviseFn func(binPath string, cfg SuperviseConfig) error
	called      bool
	lastBin     string
	lastCfg     SuperviseConfig
}

func (m *mockSupervisor) Supervise(binPath string, cfg SuperviseConfig) error {
	m.called = true
	m.lastBin = binPath
	m.lastCfg = cfg
	if m.superviseFn != nil {
		return m.superviseFn(binPath, cfg)
	}
	return nil
}

// mockRunner hands out a pre-built process.
type mockRunner struct {
	proc     *mockProcess
	startErr error
	lastBin  string
	lastArgs []string
}

func (m *mockRunner) Start(binPath string, args []string) (domain.TunnelProcess, error) {
	m.lastBin = binPath
	m.lastArgs = args
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.proc, nil
}

// mockProcess is a scripted child process. Tests drive it by emitting
// lines and calling exit; Kill exits with killCode.
type mockProcess struct {
	outR, errR *io.PipeReader
	outW, errW *io.PipeWriter

	exitCh   chan struct{}
	exitOnce sync.Once
	exitCode int
	waitErr  error

	killOnce   sync.Once
	killCalled chan struct{}
	killCode   int
	killResult domain.KillResult
}

func newMockProcess() *mockProcess {
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	return &mockProcess{
		outR: outR, outW: outW,
		errR: errR, errW: errW,
		exitCh:     make(chan struct{}),
		killCalled: make(chan struct{}),
		killCode:   137,
		killResult: domain.KillResult{Outcome: domain.KillSignaled},
	}
}

func (p *mockProcess) Output() io.Reader { return p.outR }
func (p *mockProcess) Errors() io.Reader { return p.errR }

func (p *mockProcess) Wait() (int, error) {
	<-p.exitCh
	return p.exitCode, p.waitErr
}

func (p *mockProcess) Kill() domain.KillResult {
	p.killOnce.Do(func() {
		close(p.killCalled)
		p.exit(p.killCode)
	})
	return p.killResult
}

func (p *mockProcess) emit(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(p.outW, line+"\n"); err != nil {
		t.Fatalf("emit %q: %v", line, err)
	}
}

func (p *mockProcess) emitErr(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(p.errW, line+"\n"); err != nil {
		t.Fatalf("emitErr %q: %v", line, err)
	}
}

func (p *mockProcess) exit(code int) {
	p.exitOnce.Do(func() {
		p.exitCode = code
		_ = p.outW.Close()
		_ = p.errW.Close()
		close(p.exitCh)
	})
}

func (p *mockProcess) wasKilled() bool {
	select {
	case <-p.killCalled:
		return true
	default:
		return false
	}
}

// logEntry is one captured log call.
type logEntry struct {
	level string
	msg   string
}

// mockLogger captures leveled messages for assertions.
type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (m *mockLogger) record(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, logEntry{level: level, msg: msg})
}

func (m *mockLogger) Debug(msg string, args ...any) { m.record("debug", msg) }
func (m *mockLogger) Info(msg string, args ...any)  { m.record("info", msg) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.record("warn", msg) }
func (m *mockLogger) Error(msg string, args ...any) { m.record("error", msg) }

func (m *mockLogger) count(level, substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.level == level && strings.Contains(e.msg, substr) {
			n++
		}
	}
	return n
}

func (m *mockLogger) has(level, substr string) bool {
	return m.count(level, substr) > 0
}

// waitFor polls until the entry appears; scripted processes race the
// supervisor loop, so assertions on transition logs must wait.
func (m *mockLogger) waitFor(t *testing.T, level, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.has(level, substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("log entry (%s, %q) never appeared", level, substr)
}
