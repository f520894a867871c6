package secrule

import (
	"io/fs"
	"testing"

	"modsecsync/testutils"

	"github.com/stretchr/testify/assert"
)

type mockRuleLoaderFileSystem struct {
	files map[string]string
}

func (f *mockRuleLoaderFileSystem) ReadFile(filename string) ([]byte, error) {
	if s, ok := f.files[filename]; ok {
		return []byte(s), nil
	}
	return nil, fs.ErrNotExist
}

func newTestRuleLoader(t *testing.T, files map[string]string) RuleLoader {
	logger := testutils.NewTestLogger(t)
	return NewFileRuleLoader(logger, NewRuleParser(), NewRuleFilter(logger), &mockRuleLoaderFileSystem{files: files})
}

func TestLoadReturnsFilteredRecordsInFileOrder(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	content := sqliRuleBlock("942480", 3, "CRITICAL") + "\n" +
		sqliRuleBlock("942490", 2, "CRITICAL") + "\n" +
		sqliRuleBlock("942500", 4, "WARNING") + "\n"
	rl := newTestRuleLoader(t, map[string]string{"rules.conf": content})

	// Act
	records, err := rl.Load("rules.conf")

	// Assert
	assert.Nil(err)
	assert.Len(records, 2)
	assert.Equal("942480", records[0].OriginalID)
	assert.Equal("942500", records[1].OriginalID)
}

func TestLoadFailsWithSourceUnavailable(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	rl := newTestRuleLoader(t, map[string]string{})

	// Act
	records, err := rl.Load("missing.conf")

	// Assert
	assert.ErrorIs(err, ErrSourceUnavailable)
	assert.Empty(records)
}

func TestLoadedRecordsAreParanoiaLevel3Or4(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	content := sqliRuleBlock("942100", 1, "NOTICE") + "\n" +
		sqliRuleBlock("942101", 2, "WARNING") + "\n" +
		sqliRuleBlock("942102", 3, "ERROR") + "\n" +
		sqliRuleBlock("942103", 4, "CRITICAL") + "\n"
	rl := newTestRuleLoader(t, map[string]string{"rules.conf": content})

	// Act
	records, err := rl.Load("rules.conf")

	// Assert
	assert.Nil(err)
	for _, r := range records {
		assert.GreaterOrEqual(r.ParanoiaLevel, 3)
		assert.LessOrEqual(r.ParanoiaLevel, 4)
	}
	assert.Len(records, 2)
}
