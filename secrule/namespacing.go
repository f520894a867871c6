package secrule

import "strings"

// NamespacePrefix is prepended to vendor rule ids to place custom copies in
// an id range the CRS never assigns, so custom ids cannot collide with stock
// ones.
const NamespacePrefix = "999"

// Namespacer maps vendor rule ids into the custom id namespace and back.
type Namespacer interface {
	// CustomID returns the namespaced form of id. Idempotent: an id that
	// already carries the prefix is returned unchanged.
	CustomID(id string) string

	// OriginalID returns the vendor form of id, stripping the namespace
	// prefix if present.
	OriginalID(id string) string

	// Apply sets the record's CustomID and rewrites the id declaration in
	// its body to the namespaced id.
	Apply(record RuleRecord) RuleRecord
}

type namespacerImpl struct {
}

// NewNamespacer creates a secrule.Namespacer using NamespacePrefix.
func NewNamespacer() Namespacer {
	return &namespacerImpl{}
}

func (n *namespacerImpl) CustomID(id string) string {
	if strings.HasPrefix(id, NamespacePrefix) {
		return id
	}
	return NamespacePrefix + id
}

func (n *namespacerImpl) OriginalID(id string) string {
	return strings.TrimPrefix(id, NamespacePrefix)
}

func (n *namespacerImpl) Apply(record RuleRecord) RuleRecord {
	record.CustomID = n.CustomID(record.OriginalID)

	// A rule declares its id exactly once; only the first declaration is
	// rewritten in case the pattern also matches inside an operator value.
	if loc := ruleIDRegex.FindStringIndex(record.Body); loc != nil {
		record.Body = record.Body[:loc[0]] + "id:" + record.CustomID + record.Body[loc[1]:]
	}

	return record
}
