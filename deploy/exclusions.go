package deploy

import (
	"errors"
	"io/fs"
	"strings"

	"modsecsync/rulestore"
	"modsecsync/secrule"

	"github.com/rs/zerolog"
)

// exclusionDirective suppresses a stock CRS rule by id so the vendor's copy
// does not fire alongside the custom derivative.
const exclusionDirective = "SecRuleRemoveById"

type exclusionWriter struct {
	logger     zerolog.Logger
	fileSystem rulestore.FileSystem
	namespacer secrule.Namespacer
	path       string
}

// ensure appends an exclusion directive for every deployed rule id whose
// vendor form is not yet excluded. Existing lines are never rewritten or
// removed.
func (w *exclusionWriter) ensure(ruleIDs []string) error {
	content, err := w.fileSystem.ReadFile(w.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	existing := make(map[string]bool)
	for _, line := range strings.Split(content, "\n") {
		existing[strings.TrimSpace(line)] = true
	}

	var added []string
	for _, id := range ruleIDs {
		line := exclusionDirective + " " + w.namespacer.OriginalID(id)
		if existing[line] {
			continue
		}

		existing[line] = true
		added = append(added, line)
	}

	if len(added) == 0 {
		return nil
	}

	if err := w.fileSystem.AppendFile(w.path, strings.Join(added, "\n")+"\n"); err != nil {
		return err
	}

	w.logger.Info().Int("count", len(added)).Str("path", w.path).Msg("Added rule exclusions")
	return nil
}
