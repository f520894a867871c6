package secrule

import "strings"

// RuleParser splits the text of a vendor rule file into raw rule blocks. It
// is a block-accumulation scan, not a grammar parser: a block begins at a
// SecRule statement and runs until the next SecRule statement or end of
// input, each physical line treated as atomic.
type RuleParser interface {
	Parse(input string) (blocks []string, err error)
}

type ruleParserImpl struct {
}

// NewRuleParser creates a secrule.RuleParser.
func NewRuleParser() RuleParser {
	return &ruleParserImpl{}
}

const ruleStartMarker = "SecRule"

// Parse a rule file's text into raw rule blocks.
func (r *ruleParserImpl) Parse(input string) (blocks []string, err error) {
	var buffer []string

	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, ruleStartMarker) && len(buffer) > 0 {
			blocks = append(blocks, strings.Join(buffer, "\n"))
			buffer = nil
		}

		if strings.HasPrefix(line, ruleStartMarker) || len(buffer) > 0 {
			buffer = append(buffer, line)
		}
	}

	if len(buffer) > 0 {
		blocks = append(blocks, strings.Join(buffer, "\n"))
	}

	return
}
