package pipeline

import (
	"regexp"
	"strings"
)

// Patterns for sensitive identifiers in free-text company profiles.
// Matches are reduced to partial-reveal form: only the trailing four
// characters stay in cleartext.
var (
	// Long digit runs: bank account numbers, card numbers, routing numbers.
	accountNumberPattern = regexp.MustCompile(`\b\d{9,18}\b`)
	// PAN-style identifiers (five letters, four digits, one letter).
	panPattern = regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)
	// IFSC-style routing codes (four letters, zero, six alphanumerics).
	ifscPattern = regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)
)

// MaskSensitive redacts account numbers, PAN-style identifiers and routing
// codes from a company profile, leaving only the trailing characters
// visible. The generator applies it unconditionally before any profile text
// reaches a prompt, regardless of whether the caller already masked it.
func MaskSensitive(profile string) string {
	masked := accountNumberPattern.ReplaceAllStringFunc(profile, partialReveal)
	masked = panPattern.ReplaceAllStringFunc(masked, partialReveal)
	masked = ifscPattern.ReplaceAllStringFunc(masked, partialReveal)
	return masked
}

// partialReveal keeps the last four characters of an identifier.
func partialReveal(s string) string {
	const keep = 4
	if len(s) <= keep {
		return strings.Repeat("X", len(s))
	}
	return strings.Repeat("X", len(s)-keep) + s[len(s)-keep:]
}
