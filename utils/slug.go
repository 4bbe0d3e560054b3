package utils

import (
	"regexp"
	"strings"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonWord    = regexp.MustCompile(`[^\w-]+`)
	dashes     = regexp.MustCompile(`-{2,}`)
)

// Slugify lowercases s, turns whitespace runs into '-' and drops anything
// that is not a word character or '-'. Repeated dashes collapse into one.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespace.ReplaceAllString(s, "-")
	s = nonWord.ReplaceAllString(s, "")
	return strings.Trim(dashes.ReplaceAllString(s, "-"), "-")
}
