package deploy

import (
	"context"
	"errors"
	"io/fs"
	"strings"
)

// mockCommandRunner replays canned results keyed by the joined command line.
type mockCommandRunner struct {
	results map[string]mockCommandResult
	calls   []string
}

type mockCommandResult struct {
	stdout string
	err    error
}

func newMockCommandRunner() *mockCommandRunner {
	return &mockCommandRunner{results: make(map[string]mockCommandResult)}
}

func (r *mockCommandRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmdline := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, cmdline)

	if res, ok := r.results[cmdline]; ok {
		return res.stdout, res.err
	}

	return "", errors.New("unexpected command: " + cmdline)
}

func (r *mockCommandRunner) called(cmdline string) bool {
	for _, c := range r.calls {
		if c == cmdline {
			return true
		}
	}
	return false
}

// mockFileSystem keeps file content in memory and can be told to fail.
type mockFileSystem struct {
	files     map[string]string
	appendErr error
}

func newMockFileSystem() *mockFileSystem {
	return &mockFileSystem{files: make(map[string]string)}
}

func (f *mockFileSystem) ReadFile(filename string) (string, error) {
	s, ok := f.files[filename]
	if !ok {
		return "", fs.ErrNotExist
	}
	return s, nil
}

func (f *mockFileSystem) AppendFile(filename string, data string) error {
	if f.appendErr != nil {
		return f.appendErr
	}

	f.files[filename] = f.files[filename] + data
	return nil
}
