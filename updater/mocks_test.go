package updater

import (
	"context"
	"io/fs"

	"modsecsync/secrule"
)

// mockFileSystem keeps file content in memory and can be told to start
// failing after a number of successful appends.
type mockFileSystem struct {
	files           map[string]string
	appendErr       error
	appendsUntilErr int
}

func newMockFileSystem() *mockFileSystem {
	return &mockFileSystem{files: make(map[string]string), appendsUntilErr: -1}
}

func (f *mockFileSystem) ReadFile(filename string) (string, error) {
	s, ok := f.files[filename]
	if !ok {
		return "", fs.ErrNotExist
	}
	return s, nil
}

func (f *mockFileSystem) AppendFile(filename string, data string) error {
	if f.appendsUntilErr == 0 && f.appendErr != nil {
		return f.appendErr
	}
	if f.appendsUntilErr > 0 {
		f.appendsUntilErr--
	}

	f.files[filename] = f.files[filename] + data
	return nil
}

// mockTrigger records deployments and can be told to fail.
type mockTrigger struct {
	deployed [][]string
	err      error
}

func (t *mockTrigger) Deploy(ctx context.Context, ruleIDs []string) error {
	t.deployed = append(t.deployed, ruleIDs)
	return t.err
}

// mockResultsLogger records the engine's reported results.
type mockResultsLogger struct {
	appended []secrule.RuleRecord
	skipped  []secrule.RuleRecord
	results  []PassResult
}

func (l *mockResultsLogger) RuleAppended(record secrule.RuleRecord) {
	l.appended = append(l.appended, record)
}

func (l *mockResultsLogger) RuleSkipped(record secrule.RuleRecord, reason string) {
	l.skipped = append(l.skipped, record)
}

func (l *mockResultsLogger) PassCompleted(result PassResult) {
	l.results = append(l.results, result)
}
