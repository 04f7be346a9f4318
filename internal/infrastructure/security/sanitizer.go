// Package security strips markup from user-supplied text before it is stored.
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer removes every HTML element from plain-text fields. bluemonday
// escapes what remains, so the result is unescaped back to plain text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *Sanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(text))
}
