package fsutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOSFileSystemWritesToDisk(t *testing.T) {
	fs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "artifacts")

	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, "series_shusha.csv")
	if err := fs.WriteFile(path, []byte("year,area\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, []byte("year,area\n")) {
		t.Errorf("contents = %q", got)
	}
}

func TestMemoryFileSystemRoundTrip(t *testing.T) {
	fs := NewMemoryFileSystem()

	if err := fs.MkdirAll("/out/reports", 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := fs.WriteFile("/out/reports/report_run-1.json", []byte(`{"id":"run-1"}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, ok := fs.ReadFile("/out/reports/report_run-1.json")
	if !ok {
		t.Fatal("ReadFile: file not recorded")
	}
	if string(data) != `{"id":"run-1"}` {
		t.Errorf("contents = %s", data)
	}
	if _, ok := fs.ReadFile("/out/reports/missing.json"); ok {
		t.Error("ReadFile reported a file that was never written")
	}
}

func TestMemoryFileSystemRequiresParentDirectory(t *testing.T) {
	fs := NewMemoryFileSystem()

	err := fs.WriteFile("/never/made/growth.png", []byte{1}, 0644)
	if err == nil {
		t.Fatal("expected an error writing into a directory that was never created")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("err = %v", err)
	}
}

func TestMemoryFileSystemPathsSorted(t *testing.T) {
	fs := NewMemoryFileSystem()
	if err := fs.MkdirAll("/out", 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"/out/c.png", "/out/a.csv", "/out/b.json"} {
		if err := fs.WriteFile(name, []byte{0}, 0644); err != nil {
			t.Fatal(err)
		}
	}

	got := fs.Paths()
	want := []string{"/out/a.csv", "/out/b.json", "/out/c.png"}
	if len(got) != len(want) {
		t.Fatalf("Paths = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Paths[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMemoryFileSystemWriteCopiesData(t *testing.T) {
	fs := NewMemoryFileSystem()
	if err := fs.MkdirAll("/out", 0755); err != nil {
		t.Fatal(err)
	}
	buf := []byte("original")
	if err := fs.WriteFile("/out/f", buf, 0644); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'X'

	data, _ := fs.ReadFile("/out/f")
	if string(data) != "original" {
		t.Errorf("stored data aliases the caller's buffer: %s", data)
	}
}
