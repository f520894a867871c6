package secrule

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// ErrSourceUnavailable means the vendor rule file could not be read. The
// synchronization pass aborts before any store mutation.
var ErrSourceUnavailable = errors.New("rule source unavailable")

// RuleLoaderFileSystem is the file access interface used by rule loaders.
type RuleLoaderFileSystem interface {
	ReadFile(filename string) ([]byte, error)
}

type ruleLoaderFileSystemImpl struct {
}

// NewRuleLoaderFileSystem creates a RuleLoaderFileSystem backed by the OS.
func NewRuleLoaderFileSystem() RuleLoaderFileSystem {
	return &ruleLoaderFileSystemImpl{}
}

func (f *ruleLoaderFileSystemImpl) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// RuleLoader reads a vendor rule file and produces the filtered candidate
// records in file order.
type RuleLoader interface {
	Load(path string) (records []RuleRecord, err error)
}

type fileRuleLoader struct {
	logger     zerolog.Logger
	parser     RuleParser
	filter     RuleFilter
	fileSystem RuleLoaderFileSystem
}

// NewFileRuleLoader creates a RuleLoader that parses and filters a rule file
// from disk.
func NewFileRuleLoader(logger zerolog.Logger, parser RuleParser, filter RuleFilter, fileSystem RuleLoaderFileSystem) RuleLoader {
	return &fileRuleLoader{logger: logger, parser: parser, filter: filter, fileSystem: fileSystem}
}

func (l *fileRuleLoader) Load(path string) (records []RuleRecord, err error) {
	bb, err := l.fileSystem.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
		return
	}

	blocks, err := l.parser.Parse(string(bb))
	if err != nil {
		err = fmt.Errorf("failed to parse rule file %s: %v", path, err)
		return
	}

	for _, block := range blocks {
		if record, eligible := l.filter.Filter(block); eligible {
			records = append(records, record)
		}
	}

	l.logger.Info().Str("path", path).Int("blocks", len(blocks)).Int("eligible", len(records)).Msg("Loaded vendor rule file")
	return
}
