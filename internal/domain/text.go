package domain

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var unsafeText = regexp.MustCompile(`(?i)<script|javascript:|on\w+=`)

// ValidateText rejects empty, oversized and script-bearing input.
func ValidateText(s string, maxLen int) error {
	if utf8.RuneCountInString(s) > maxLen {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidInput, maxLen)
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidInput)
	}
	if unsafeText.MatchString(s) {
		return fmt.Errorf("%w: disallowed content", ErrInvalidInput)
	}
	return nil
}

func Escape(s string) string { return html.EscapeString(s) }
