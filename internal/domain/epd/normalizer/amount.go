// Package normalizer converts raw PDF cell text into exact decimal amounts.
//
// PDF extraction leaves Russian decimal commas, non-breaking and narrow
// spaces, values wrapped across lines and minus signs on either side of the
// number. Every cell is split into numeric fragments; single-value columns
// keep one representative fragment (NormalizeAmount) while adjustment
// columns sum signed contributions (SignResolver).
package normalizer

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoAmount is returned by ParseAmount for non-empty text without a number.
var ErrNoAmount = errors.New("no numeric value in text")

var (
	// digits optionally grouped by thousands, then an optional decimal part
	fragmentPattern = regexp.MustCompile(`\d+(?:[ \x{00a0}\x{202f}]\d{3})*(?:[.,]\d+)?`)
	spaceRun        = regexp.MustCompile(`[ \t\f\v]+`)
	newlineRun      = regexp.MustCompile(`\n+`)

	lineFolder = strings.NewReplacer(
		"\u00a0", " ",
		"\u202f", " ",
		"\r\n", "\n",
		"\r", "\n",
	)
	digitStripper = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".")
)

// Fragment is one number found inside a cell.
type Fragment struct {
	// Index is the zero-based position of the fragment within the cell.
	Index int
	// Magnitude is the unsigned value.
	Magnitude decimal.Decimal
	// Signed is Magnitude with any explicit sign glyph applied.
	Signed decimal.Decimal
	// Segment is the lowercased text of the line the fragment came from.
	Segment string
	// HasExplicitSign is true when a sign glyph was adjacent to the number.
	HasExplicitSign bool
}

// IsZero reports whether the fragment has zero magnitude.
func (f Fragment) IsZero() bool {
	return f.Magnitude.IsZero()
}

// Fragments returns every numeric fragment of raw in reading order.
func Fragments(raw string) []Fragment {
	if isBlank(raw) {
		return nil
	}

	text := lineFolder.Replace(raw)
	segments := splitSegments(text)
	flat := collapse(strings.ReplaceAll(text, "\n", " "))
	flatMatches := fragmentPattern.FindAllStringIndex(flat, -1)

	var out []Fragment
	idx := 0
	for _, segment := range segments {
		lowered := strings.ToLower(segment)
		for _, loc := range fragmentPattern.FindAllStringIndex(segment, -1) {
			magnitude, err := decimal.NewFromString(digitStripper.Replace(segment[loc[0]:loc[1]]))
			if err != nil {
				idx++
				continue
			}

			negative, explicit := detectSign(segment, loc[0], loc[1])
			if !explicit && idx < len(flatMatches) {
				negative, explicit = detectSign(flat, flatMatches[idx][0], flatMatches[idx][1])
			}

			signed := magnitude
			if negative {
				signed = magnitude.Neg()
			}

			out = append(out, Fragment{
				Index:           idx,
				Magnitude:       magnitude,
				Signed:          signed,
				Segment:         lowered,
				HasExplicitSign: explicit,
			})
			idx++
		}
	}

	return out
}

// NormalizeAmount returns the representative value of a cell: the last
// non-zero fragment, or the last fragment when all are zero. Text without a
// number yields zero. The value keeps every decimal place of the source, so
// volumes and tariffs like "0,0312" survive unchanged.
func NormalizeAmount(raw string) decimal.Decimal {
	amount, _ := ParseAmount(raw)
	return amount
}

// ParseAmount is NormalizeAmount that also reports ErrNoAmount when the cell
// holds text but no number. Blank cells, "-" and "None" are zero without error.
func ParseAmount(raw string) (decimal.Decimal, error) {
	fragments := Fragments(raw)
	if len(fragments) == 0 {
		if isBlank(raw) {
			return decimal.Zero, nil
		}
		return decimal.Zero, ErrNoAmount
	}
	return pick(fragments).Signed, nil
}

// ParseOptional returns nil when the cell holds no number.
func ParseOptional(raw string) *decimal.Decimal {
	fragments := Fragments(raw)
	if len(fragments) == 0 {
		return nil
	}
	v := pick(fragments).Signed
	return &v
}

// HasNumber reports whether raw contains at least one numeric fragment.
func HasNumber(raw string) bool {
	return fragmentPattern.MatchString(lineFolder.Replace(raw))
}

func pick(fragments []Fragment) Fragment {
	for i := len(fragments) - 1; i >= 0; i-- {
		if !fragments[i].Signed.IsZero() {
			return fragments[i]
		}
	}
	return fragments[len(fragments)-1]
}

// detectSign inspects the nearest non-space rune before the match, then after
// it. A sign separated from the number by a space but glued to a neighbouring
// number belongs to that neighbour and is ignored.
func detectSign(s string, start, end int) (negative bool, explicit bool) {
	before := []rune(s[:start])
	k := len(before) - 1
	for k >= 0 && before[k] == ' ' {
		k--
	}
	if k >= 0 {
		if neg, ok := signOf(before[k]); ok {
			spaced := k < len(before)-1
			glued := k > 0 && isDigit(before[k-1])
			if !(spaced && glued) {
				return neg, true
			}
		}
	}

	after := []rune(s[end:])
	k = 0
	for k < len(after) && after[k] == ' ' {
		k++
	}
	if k < len(after) {
		if neg, ok := signOf(after[k]); ok {
			spaced := k > 0
			glued := k+1 < len(after) && isDigit(after[k+1])
			if !(spaced && glued) {
				return neg, true
			}
		}
	}

	return false, false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func signOf(r rune) (negative bool, ok bool) {
	switch r {
	case '-', '−', '–', '—':
		return true, true
	case '+':
		return false, true
	}
	return false, false
}

func splitSegments(text string) []string {
	parts := newlineRun.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = collapse(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

func isBlank(raw string) bool {
	t := strings.TrimSpace(lineFolder.Replace(raw))
	return t == "" || t == "-" || strings.EqualFold(t, "none")
}
