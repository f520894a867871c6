package secrule

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
)

var paranoiaTagRegex = regexp.MustCompile(`tag:'paranoia-level/([34])'`)
var ruleIDRegex = regexp.MustCompile(`id\s*:\s*(\d+)`)
var severityRegex = regexp.MustCompile(`severity:'(\w+)`)
var anomalyScoreRegex = regexp.MustCompile(`setvar:'tx\.inbound_anomaly_score_pl[34]=\+%\{tx\..*?_anomaly_score\}'`)

// RuleFilter selects rule blocks tagged with paranoia level 3 or 4 and
// derives their metadata. Ineligible blocks are dropped, never an error.
type RuleFilter interface {
	Filter(block string) (record RuleRecord, eligible bool)
}

type ruleFilterImpl struct {
	logger zerolog.Logger
}

// NewRuleFilter creates a secrule.RuleFilter.
func NewRuleFilter(logger zerolog.Logger) RuleFilter {
	return &ruleFilterImpl{logger: logger}
}

// Filter decides eligibility for one raw rule block and, for eligible
// blocks, rewrites the anomaly score increment according to the declared
// severity.
func (f *ruleFilterImpl) Filter(block string) (record RuleRecord, eligible bool) {
	tagMatch := paranoiaTagRegex.FindStringSubmatch(block)
	if tagMatch == nil {
		return
	}

	idMatch := ruleIDRegex.FindStringSubmatch(block)
	if idMatch == nil {
		f.logger.Debug().Msg("Dropping paranoia level 3/4 rule block without an id declaration")
		return
	}

	// The tag declares 3 or 4, so Atoi cannot fail here.
	level, _ := strconv.Atoi(tagMatch[1])

	record = RuleRecord{
		OriginalID:    idMatch[1],
		Body:          block,
		ParanoiaLevel: level,
		Severity:      SeverityUnknown,
	}

	if sevMatch := severityRegex.FindStringSubmatch(block); sevMatch != nil {
		record.Severity = ParseSeverity(sevMatch[1])
	}

	if n, ok := record.Severity.ScoreIncrement(); ok {
		replacement := fmt.Sprintf("setvar:'tx.inbound_anomaly_score_pl%d=+%d'", level, n)
		record.Body = anomalyScoreRegex.ReplaceAllString(record.Body, replacement)
	}

	eligible = true
	return
}
