package extractor

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestZip(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(0755)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
	return path
}

func TestExtract_Zip(t *testing.T) {
	dir := t.TempDir()
	archive := writeTestZip(t, dir, map[string]string{
		"code":       "#!/bin/sh\necho cli\n",
		"doc/README": "docs",
	})
	target := filepath.Join(dir, "out")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatalf("mkdir target: %v", err)
	}

	got, err := New(&nopLogger{}).Extract(archive, target)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if got != target {
		t.Errorf("Extract() dir = %q, want %q", got, target)
	}

	data, err := os.ReadFile(filepath.Join(target, "code"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if !strings.Contains(string(data), "echo cli") {
		t.Errorf("extracted content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(target, "doc", "README")); err != nil {
		t.Errorf("nested entry missing: %v", err)
	}
}

func TestExtract_ZipPreservesMode(t *testing.T) {
	dir := t.TempDir()
	archive := writeTestZip(t, dir, map[string]string{"code": "bin"})
	target := filepath.Join(dir, "out")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatalf("mkdir target: %v", err)
	}

	if _, err := New(&nopLogger{}).Extract(archive, target); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	info, err := os.Stat(filepath.Join(target, "code"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("mode = %v, want owner-executable preserved", info.Mode())
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "tool.rar")
	if err := os.WriteFile(archive, []byte("x"), 0644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	_, err := New(&nopLogger{}).Extract(archive, dir)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported archive format") {
		t.Errorf("error = %q", err)
	}
}

func TestExtract_ZipEntryEscape(t *testing.T) {
	dir := t.TempDir()
	archive := writeTestZip(t, dir, map[string]string{"../escape": "x"})
	target := filepath.Join(dir, "out")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatalf("mkdir target: %v", err)
	}

	_, err := New(&nopLogger{}).Extract(archive, target)
	if err == nil {
		t.Fatal("expected error for escaping entry")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "escape")); !os.IsNotExist(statErr) {
		t.Error("escaping entry was written outside the target dir")
	}
}

type nopLogger struct{}

func (*nopLogger) Debug(string, ...any) {}
func (*nopLogger) Info(string, ...any)  {}
func (*nopLogger) Warn(string, ...any)  {}
func (*nopLogger) Error(string, ...any) {}
