package logging

import (
	"encoding/json"

	"modsecsync/secrule"
	"modsecsync/updater"

	"github.com/rs/zerolog"
)

// NewZerologResultsLogger creates a results logger that writes the operator
// facing synchronization report to zerolog.
func NewZerologResultsLogger(logger zerolog.Logger) updater.ResultsLogger {
	return &zerologResultsLogger{logger: logger}
}

type zerologResultsLogger struct {
	logger zerolog.Logger
}

type passReportEntry struct {
	AppendedCount int      `json:"appendedCount"`
	AppendedIDs   []string `json:"appendedIds"`
	TriggerOK     bool     `json:"triggerOk"`
	Errors        []string `json:"errors,omitempty"`
}

func (l *zerologResultsLogger) RuleAppended(record secrule.RuleRecord) {
	l.logger.Info().
		Str("customID", record.CustomID).
		Str("originalID", record.OriginalID).
		Int("paranoiaLevel", record.ParanoiaLevel).
		Str("severity", string(record.Severity)).
		Int("triggerCount", record.TriggerCount).
		Msg("Deployed new custom rule")
}

func (l *zerologResultsLogger) RuleSkipped(record secrule.RuleRecord, reason string) {
	l.logger.Info().
		Str("customID", record.CustomID).
		Str("originalID", record.OriginalID).
		Str("reason", reason).
		Msg("Skipped rule")
}

func (l *zerologResultsLogger) PassCompleted(result updater.PassResult) {
	entry := passReportEntry{
		AppendedCount: result.AppendedCount(),
		AppendedIDs:   make([]string, 0, len(result.Appended)),
		TriggerOK:     result.TriggerOK,
	}

	for _, r := range result.Appended {
		entry.AppendedIDs = append(entry.AppendedIDs, r.CustomID)
	}

	for _, err := range result.Errors {
		entry.Errors = append(entry.Errors, err.Error())
	}

	bb, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		l.logger.Error().Err(err).Msg("Error while marshaling JSON pass report")
		return
	}

	l.logger.Info().Msgf("Synchronization pass report:\n%s\n", bb)
}
