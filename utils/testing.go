package utils

import (
	"io"
	"os"
	"path"
	"testing"
)

// CreateTestFile creates a temporary test file with the given contents and
// seek. It returns the open file handle and the seek position from the start
// of the file. If no seek was given, it defaults to the start of the file.
func CreateTestFile(t testing.TB, contents string, seekStuff ...int) (*os.File, int64) {
	t.Helper()

	filepath := path.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(filepath, []byte(contents), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	f, err := os.Open(filepath)
	if err != nil {
		t.Fatalf("Failed to open temp file: %v", err)
	}

	var seek, whence int
	switch len(seekStuff) {
	case 0:
		seek = 0
		whence = io.SeekStart
	case 1:
		seek = seekStuff[0]
		if seek >= 0 {
			whence = io.SeekStart
		} else {
			whence = io.SeekEnd
			seek = -seek
		}
	case 2:
		seek = seekStuff[0]
		whence = seekStuff[1]
	default:
		panic("Too many arguments")
	}

	var pos int64
	if seek != 0 || whence != io.SeekStart {
		pos, err = f.Seek(int64(seek), whence)
		if err != nil {
			t.Fatalf("Failed to seek temp file: %v", err)
		}
	}

	t.Cleanup(func() {
		// The file may already have been closed by the code under test.
		_ = f.Close()
	})

	return f, pos
}

// CreateTestPath writes contents to a file in a temporary directory and
// returns its path without opening it.
func CreateTestPath(t testing.TB, name string, contents []byte) string {
	t.Helper()

	filepath := path.Join(t.TempDir(), name)
	if err := os.WriteFile(filepath, contents, 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return filepath
}

// ReadTestFile returns the contents of filepath, failing the test if it
// can't be read.
func ReadTestFile(t testing.TB, filepath string) string {
	t.Helper()

	b, err := os.ReadFile(filepath)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", filepath, err)
	}
	return string(b)
}
