package rulestore

import (
	"errors"
	"io/fs"
	"strings"
)

// mockFileSystem keeps file content in memory and can be told to fail.
type mockFileSystem struct {
	files       map[string]string
	readErr     error
	appendErr   error
	appendCalls int
}

func newMockFileSystem() *mockFileSystem {
	return &mockFileSystem{files: make(map[string]string)}
}

func (f *mockFileSystem) ReadFile(filename string) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}

	s, ok := f.files[filename]
	if !ok {
		return "", fs.ErrNotExist
	}
	return s, nil
}

func (f *mockFileSystem) AppendFile(filename string, data string) error {
	f.appendCalls++
	if f.appendErr != nil {
		return f.appendErr
	}

	f.files[filename] = f.files[filename] + data
	return nil
}

func (f *mockFileSystem) lineCount(filename string, line string) int {
	return strings.Count(f.files[filename], line)
}

var errDiskBroken = errors.New("disk broken")
