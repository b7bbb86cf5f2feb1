// Package sanitize strips markup from user-supplied case text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"lexcourt/internal/domain/service"
)

// textSanitizer removes every tag and returns plain text. Entities produced
// by the policy are decoded again so that stored text reads as typed.
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer returns a ContentSanitizer built on the bluemonday strict policy.
func NewTextSanitizer() service.ContentSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *textSanitizer) Sanitize(input string) string {
	if input == "" {
		return ""
	}

	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(input)))
}
