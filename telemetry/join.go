package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"modsecsync/secrule"

	"github.com/rs/zerolog"
)

// Hit is one triggered-rule observation from the telemetry collaborator's
// export. A rule that fired n times appears n times.
type Hit struct {
	RuleID        string `json:"rule_id"`
	ParanoiaLevel int    `json:"paranoia_level"`
	Severity      string `json:"severity"`
}

// Candidate is a rule id with its aggregated trigger count, ready to hand to
// the sync engine.
type Candidate struct {
	RuleID        string
	ParanoiaLevel int
	Severity      secrule.Severity
	TriggerCount  int
}

// ReadExport parses a JSON export of triggered-rule observations.
func ReadExport(r io.Reader) (hits []Hit, err error) {
	if err = json.NewDecoder(r).Decode(&hits); err != nil {
		err = fmt.Errorf("failed to decode telemetry export: %v", err)
		return
	}

	return
}

// Join aggregates hits per rule id, drops rules below minParanoiaLevel and
// returns candidates ordered by trigger count descending, ties broken by id
// so repeated joins over the same export are deterministic.
func Join(logger zerolog.Logger, hits []Hit, minParanoiaLevel int) []Candidate {
	byID := make(map[string]*Candidate)

	for _, h := range hits {
		if h.ParanoiaLevel < minParanoiaLevel {
			continue
		}

		if c, ok := byID[h.RuleID]; ok {
			c.TriggerCount++
			continue
		}

		byID[h.RuleID] = &Candidate{
			RuleID:        h.RuleID,
			ParanoiaLevel: h.ParanoiaLevel,
			Severity:      secrule.ParseSeverity(h.Severity),
			TriggerCount:  1,
		}
	}

	candidates := make([]Candidate, 0, len(byID))
	for _, c := range byID {
		candidates = append(candidates, *c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].TriggerCount != candidates[j].TriggerCount {
			return candidates[i].TriggerCount > candidates[j].TriggerCount
		}
		return candidates[i].RuleID < candidates[j].RuleID
	})

	logger.Info().Int("hits", len(hits)).Int("candidates", len(candidates)).Msg("Joined telemetry export")
	return candidates
}
