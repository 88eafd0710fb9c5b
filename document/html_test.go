package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHTML_PlainTextPassthrough(t *testing.T) {
	raw := "# Overview\n\nPlain markdown stays untouched.\n"
	assert.Equal(t, raw, NormalizeHTML(raw))
}

func TestNormalizeHTML_ConvertsHeadings(t *testing.T) {
	raw := `<html><body><h2>Problem Statement</h2><p>Teams waste hours.</p><h2>Solution</h2><p>Automate it.</p></body></html>`

	out := NormalizeHTML(raw)

	s, _ := Extract(out, TypeRequirements)
	assert.True(t, s.Has("problem-statement"))
	assert.True(t, s.Has("solution"))
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, looksLikeHTML("<html><body>x</body></html>"))
	assert.True(t, looksLikeHTML(`<div class="doc">x</div>`))
	assert.False(t, looksLikeHTML("a < b and b > c"))
	assert.False(t, looksLikeHTML("# Heading\n\ntext"))
}
