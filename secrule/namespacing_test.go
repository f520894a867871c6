package secrule

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomIDPrependsPrefix(t *testing.T) {
	assert := assert.New(t)
	n := NewNamespacer()

	assert.Equal("999942100", n.CustomID("942100"))
}

func TestCustomIDIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	n := NewNamespacer()

	once := n.CustomID("942100")
	twice := n.CustomID(once)

	assert.Equal(once, twice)
}

func TestOriginalIDStripsPrefix(t *testing.T) {
	assert := assert.New(t)
	n := NewNamespacer()

	assert.Equal("942100", n.OriginalID("999942100"))
	assert.Equal("942100", n.OriginalID("942100"))
}

func TestApplyRewritesIDDeclaration(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	record := RuleRecord{
		OriginalID: "942100",
		Body:       "SecRule ARGS \"@detectsqli\" \\\n\"id:942100,\\\nphase:2\"",
	}
	n := NewNamespacer()

	// Act
	record = n.Apply(record)

	// Assert
	assert.Equal("999942100", record.CustomID)
	assert.Contains(record.Body, "id:999942100")
	assert.NotContains(record.Body, "id:942100,")
}

func TestApplySubstitutesExactlyOnce(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	record := RuleRecord{
		OriginalID: "942100",
		Body:       "SecRule ARGS \"@rx select\" \"id:942100,phase:2,msg:'see id:942100'\"",
	}
	n := NewNamespacer()

	// Act
	record = n.Apply(record)

	// Assert
	assert.Equal(1, strings.Count(record.Body, "id:999942100"))
	assert.Contains(record.Body, "see id:942100")
}
