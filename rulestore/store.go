package rulestore

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"modsecsync/secrule"

	"github.com/rs/zerolog"
)

// ErrStoreUnavailable means the custom rule store file could not be read or
// written. The synchronization pass aborts; records already appended in the
// same pass stay committed.
var ErrStoreUnavailable = errors.New("custom rule store unavailable")

// terminatorMarker delimits the block of rules added by one synchronization
// pass.
const terminatorMarker = "# --- end of synchronized rules ---"

var idDeclRegex = regexp.MustCompile(`id\s*:\s*(\d+)`)
var provenanceRegex = regexp.MustCompile(`^# Rule (\d+) \(Original: (\d+)\)$`)

// Store is the durable, append-only set of deployed custom rules. Load
// rebuilds the identifier index from the file; Append and Finalize only ever
// add content.
type Store interface {
	// Load reads the store file and rebuilds the identifier index. An
	// absent file yields an empty index, not an error.
	Load() error

	// Contains reports whether id, in exactly the given form, is present in
	// the index built by Load and later Appends.
	Contains(id string) bool

	// Append writes the record's body preceded by its provenance marker and
	// updates the index. Never mutates prior content.
	Append(record secrule.RuleRecord) error

	// Finalize writes the terminator marker ending a pass that appended at
	// least one rule.
	Finalize() error

	// DeclaredIDs returns the sorted rule ids declared in rule bodies
	// currently in the store.
	DeclaredIDs() []string

	// Conflicts returns the original ids for which both the original and
	// the namespaced form are declared as separate rules.
	Conflicts() []string
}

type storeImpl struct {
	logger     zerolog.Logger
	fileSystem FileSystem
	path       string

	// index holds every id form counting as already deployed: ids declared
	// in rule bodies plus both sides of each provenance marker.
	index map[string]bool

	// declared holds only ids declared in rule bodies; provenance markers
	// intentionally record both forms and are not conflicts.
	declared map[string]bool
}

// NewStore creates a Store persisted at path.
func NewStore(logger zerolog.Logger, fileSystem FileSystem, path string) Store {
	return &storeImpl{
		logger:     logger,
		fileSystem: fileSystem,
		path:       path,
		index:      make(map[string]bool),
		declared:   make(map[string]bool),
	}
}

func (s *storeImpl) Load() error {
	s.index = make(map[string]bool)
	s.declared = make(map[string]bool)

	content, err := s.fileSystem.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info().Str("path", s.path).Msg("Custom rule store does not exist yet, starting with an empty index")
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, s.path, err)
	}

	for _, m := range idDeclRegex.FindAllStringSubmatch(content, -1) {
		s.index[m[1]] = true
		s.declared[m[1]] = true
	}

	for _, line := range strings.Split(content, "\n") {
		if m := provenanceRegex.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			s.index[m[1]] = true
			s.index[m[2]] = true
		}
	}

	s.logger.Debug().Str("path", s.path).Int("ids", len(s.index)).Msg("Rebuilt custom rule store index")
	return nil
}

func (s *storeImpl) Contains(id string) bool {
	return s.index[id]
}

func (s *storeImpl) Append(record secrule.RuleRecord) error {
	entry := fmt.Sprintf("# Rule %s (Original: %s)\n%s\n\n", record.CustomID, record.OriginalID, record.Body)

	if err := s.fileSystem.AppendFile(s.path, entry); err != nil {
		return fmt.Errorf("%w: appending rule %s to %s: %v", ErrStoreUnavailable, record.CustomID, s.path, err)
	}

	s.index[record.CustomID] = true
	s.index[record.OriginalID] = true
	s.declared[record.CustomID] = true

	s.logger.Info().Str("customID", record.CustomID).Str("originalID", record.OriginalID).Msg("Appended rule to custom rule store")
	return nil
}

func (s *storeImpl) Finalize() error {
	if err := s.fileSystem.AppendFile(s.path, terminatorMarker+"\n"); err != nil {
		return fmt.Errorf("%w: writing terminator to %s: %v", ErrStoreUnavailable, s.path, err)
	}

	return nil
}

func (s *storeImpl) DeclaredIDs() []string {
	ids := make([]string, 0, len(s.declared))
	for id := range s.declared {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}

func (s *storeImpl) Conflicts() []string {
	var conflicts []string
	for id := range s.declared {
		if strings.HasPrefix(id, secrule.NamespacePrefix) {
			continue
		}
		if s.declared[secrule.NamespacePrefix+id] {
			conflicts = append(conflicts, id)
		}
	}

	sort.Strings(conflicts)
	return conflicts
}

// FindConflicts reports the original ids for which both the original and the
// namespaced form appear in ids. Used against rule content read back from
// the enforcement point, where no provenance context is available.
func FindConflicts(ids []string) []string {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	var conflicts []string
	for id := range present {
		if strings.HasPrefix(id, secrule.NamespacePrefix) {
			continue
		}
		if present[secrule.NamespacePrefix+id] {
			conflicts = append(conflicts, id)
		}
	}

	sort.Strings(conflicts)
	return conflicts
}

// ScanDeclaredIDs extracts the rule ids declared in the given rule file
// content.
func ScanDeclaredIDs(content string) []string {
	var ids []string
	for _, m := range idDeclRegex.FindAllStringSubmatch(content, -1) {
		ids = append(ids, m[1])
	}

	return ids
}
