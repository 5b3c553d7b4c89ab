// Package normalize canonicalizes label and account names for comparison.
// The same transformation is applied to both sides so similarity scoring
// stays symmetric.
package normalize

import (
	"regexp"
	"strings"
)

var (
	// Account-code prefixes look like "40050 - " or "A1200 - ": an
	// alphanumeric token containing at least one digit, then a dash.
	// A leading word without digits ("Trade - Sales") is not a code.
	codePrefixRe = regexp.MustCompile(`^[A-Za-z0-9]*[0-9][A-Za-z0-9]*\s*-\s*`)

	// Intercompany markers exported by some ledgers.
	intercompanyRe = regexp.MustCompile(`(?i)^IC[_-]\s*`)

	separatorRe = regexp.MustCompile(`[-_/&]+`)
	strippedRe  = regexp.MustCompile(`[^a-z0-9\s]+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a raw label or account name: strips leading
// account-code and intercompany prefixes, lowercases, turns word separators
// into spaces, drops remaining punctuation, and collapses whitespace.
// It is pure and total; empty input yields empty output.
func Normalize(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	s = codePrefixRe.ReplaceAllString(s, "")
	s = intercompanyRe.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = separatorRe.ReplaceAllString(s, " ")
	s = strippedRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// Tokens splits a normalized string into its word tokens.
func Tokens(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// TokenSet returns the unique tokens of a normalized string.
func TokenSet(normalized string) map[string]struct{} {
	fields := Tokens(normalized)
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
