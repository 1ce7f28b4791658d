// Package htmlsanitize strips markup from generated text before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// maxPasses bounds the decode/strip loop for entity-encoded markup.
const maxPasses = 3

// PlainText removes every tag from s and decodes entities, so the result is
// plain text. Markup smuggled in as entities is stripped on a later pass; if
// it survives maxPasses the escaped form is returned instead.
func PlainText(s string) string {
	for i := 0; i < maxPasses; i++ {
		out := html.UnescapeString(strict.Sanitize(s))
		if out == s {
			break
		}
		s = out
	}
	if !IsPlainText(s) {
		s = strict.Sanitize(s)
	}
	return strings.TrimSpace(s)
}

// IsPlainText reports whether s contains no angle brackets.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
