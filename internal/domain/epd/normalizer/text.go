package normalizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	anyWhitespace = regexp.MustCompile(`\s+`)

	// numbers with a decimal part embedded in a name cell, e.g. wrapped tariffs
	embeddedAmount = regexp.MustCompile(`(?:^|\s)[-−–+]?\d+(?:[ \x{00a0}\x{202f}]\d{3})*[.,]\d+[-−–]?(?:\s|$)`)
)

// Fold lowercases s with Russian casing rules, folds "ё" to "е" and
// collapses whitespace. Header and keyword matching work on folded text.
func Fold(s string) string {
	s = lineFolder.Replace(s)
	s = cases.Lower(language.Russian).String(s)
	s = strings.ReplaceAll(s, "ё", "е")
	return CollapseSpaces(s)
}

// CollapseSpaces turns every whitespace run, newlines included, into one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(anyWhitespace.ReplaceAllString(lineFolder.Replace(s), " "))
}

// CleanServiceName joins wrapped lines and drops numeric fragments that PDF
// extraction glued onto the name.
func CleanServiceName(raw string) string {
	name := " " + CollapseSpaces(raw) + " "
	for embeddedAmount.MatchString(name) {
		name = embeddedAmount.ReplaceAllString(name, " ")
	}
	return strings.Trim(CollapseSpaces(name), " ;,")
}
