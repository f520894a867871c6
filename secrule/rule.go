package secrule

import "strings"

// RuleRecord is one rule unit extracted from a vendor rule file.
type RuleRecord struct {
	// OriginalID is the vendor-assigned decimal rule id.
	OriginalID string

	// CustomID is the namespaced derivative of OriginalID. Empty until the
	// record has passed through a Namespacer.
	CustomID string

	// Body is the rule definition text, verbatim except for the identifier
	// and anomaly-score substitutions.
	Body string

	// ParanoiaLevel is the paranoia level the rule is tagged with (1-4).
	ParanoiaLevel int

	// Severity is the severity token the rule declares.
	Severity Severity

	// TriggerCount is how often the rule fired according to the telemetry
	// collaborator. Zero when no telemetry was joined.
	TriggerCount int
}

// Severity is the severity token a rule declares in its actions.
type Severity string

// Severity values observed in CRS rule files.
const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityNotice   Severity = "notice"
	SeverityUnknown  Severity = "unknown"
)

// ParseSeverity maps a raw severity token to a Severity. Tokens not in the
// known set map to SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(s)) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityError:
		return SeverityError
	case SeverityWarning:
		return SeverityWarning
	case SeverityNotice:
		return SeverityNotice
	}
	return SeverityUnknown
}

// ScoreIncrement returns the anomaly score increment this severity maps to.
// The second return value is false for SeverityUnknown, meaning the rule body
// keeps its original increment expression.
func (s Severity) ScoreIncrement() (n int, ok bool) {
	switch s {
	case SeverityCritical:
		return 2, true
	case SeverityError, SeverityWarning:
		return 1, true
	case SeverityNotice:
		return 0, true
	}
	return 0, false
}
