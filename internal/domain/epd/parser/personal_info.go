package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/normalizer"
)

const (
	fullNameLabel = "ФИО:"
	addressLabel  = "Адрес:"
	dueDateLayout = "2.1.2006"
)

var (
	// an 8-digit run that is not part of a longer number
	accountPlain = regexp.MustCompile(`(?:^|\D)(\d{8})(?:\D|$)`)
	// 8 single digits separated by spaces or dashes
	accountSpaced = regexp.MustCompile(`(?:^|\D)(\d(?:[ \t-]\d){7})(?:\D|$)`)
	// 8 digits in uneven groups, e.g. "8 1234 5678"
	accountGrouped = regexp.MustCompile(`(?:^|\D)(\d(?:[ \t-]*\d){7})`)
	decimalTail    = regexp.MustCompile(`^[.,]\d`)
	digitGroupHead = regexp.MustCompile(`^[ \t-]*\d`)
	digitGroupTail = regexp.MustCompile(`\d[ \t-]*$`)
	nonDigit       = regexp.MustCompile(`\D`)
	accountLabel   = regexp.MustCompile(`(?i)лицев|л/с`)
	phoneLabel     = regexp.MustCompile(`(?i)(?:^|[^\p{L}])тел(?:ефон|\.|:|\s)`)

	numericPeriod = regexp.MustCompile(`(\d{1,2})\.(\d{4})`)

	datePattern      = `(\d{1,2}\.\d{1,2}\.\d{4})`
	dueDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)оплатить до:\s*` + datePattern),
		regexp.MustCompile(`(?i)срок оплаты:\s*` + datePattern),
		regexp.MustCompile(`(?i)к оплате до:\s*` + datePattern),
		regexp.MustCompile(`(?i)оплатить до\s+` + datePattern),
		regexp.MustCompile(`(?i)срок оплаты\s+` + datePattern),
		regexp.MustCompile(`(?i)(?:^|[^\p{L}])до\s*:?\s*` + datePattern),
	}
)

// PersonalInfoExtractor reads header fields from first-page text.
type PersonalInfoExtractor struct {
	full   []*regexp.Regexp
	abbr   []*regexp.Regexp
	months []string
}

// NewPersonalInfoExtractor compiles month patterns from vocab.
func NewPersonalInfoExtractor(vocab *Vocabulary) *PersonalInfoExtractor {
	e := &PersonalInfoExtractor{months: vocab.Months()}
	for _, m := range vocab.Months() {
		e.full = append(e.full, regexp.MustCompile(`(?:^|[^\p{L}])`+regexp.QuoteMeta(m)+`\s*,?\s*(\d{4})`))
	}
	for _, a := range vocab.MonthAbbreviations() {
		e.abbr = append(e.abbr, regexp.MustCompile(`(?:^|[^\p{L}])`+regexp.QuoteMeta(a)+`\p{L}*\.?\s*,?\s*(\d{4})`))
	}
	return e
}

// Extract scans text line by line. Each field keeps its first match.
func (e *PersonalInfoExtractor) Extract(text string) epd.Header {
	var h epd.Header

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(normalizer.CollapseSpaces(line))
		if line == "" {
			continue
		}

		if h.AccountNumber == "" {
			h.AccountNumber = accountNumber(line)
		}
		if h.FullName == "" && strings.HasPrefix(line, fullNameLabel) {
			h.FullName = strings.TrimSpace(strings.TrimPrefix(line, fullNameLabel))
		}
		if h.Address == "" && strings.HasPrefix(line, addressLabel) {
			h.Address = strings.TrimSpace(strings.TrimPrefix(line, addressLabel))
		}
		if h.PaymentPeriod == "" {
			h.PaymentPeriod = e.period(line)
		}
		if h.DueDate == nil {
			h.DueDate = dueDate(line)
		}
	}

	return h
}

func accountNumber(line string) string {
	if m := accountPlain.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	labeled := accountLabel.MatchString(line)
	// separated digits on a phone line are the phone number
	if !labeled && phoneLabel.MatchString(line) {
		return ""
	}
	if m := accountSpaced.FindStringSubmatch(line); m != nil {
		return nonDigit.ReplaceAllString(m[1], "")
	}
	for _, loc := range accountGrouped.FindAllStringSubmatchIndex(line, -1) {
		rest := line[loc[3]:]
		// skip amounts like "12 345 678,90"
		if decimalTail.MatchString(rest) {
			continue
		}
		// without a label only a group of exactly eight digits counts
		if !labeled && (digitGroupHead.MatchString(rest) || digitGroupTail.MatchString(line[:loc[2]])) {
			continue
		}
		return nonDigit.ReplaceAllString(line[loc[2]:loc[3]], "")
	}
	return ""
}

// period tries full month names, then abbreviations, then MM.YYYY.
func (e *PersonalInfoExtractor) period(line string) string {
	folded := normalizer.Fold(line)

	for i, re := range e.full {
		if m := re.FindStringSubmatch(folded); m != nil {
			return e.months[i] + " " + m[1]
		}
	}
	for i, re := range e.abbr {
		if m := re.FindStringSubmatch(folded); m != nil {
			return e.months[i] + " " + m[1]
		}
	}

	for _, loc := range numericPeriod.FindAllStringSubmatchIndex(folded, -1) {
		// a full D.MM.YYYY date is a due date, not a period
		if isDateTail(folded[:loc[0]]) || precededByDigit(folded[:loc[0]]) {
			continue
		}
		month, err := strconv.Atoi(folded[loc[2]:loc[3]])
		if err != nil || month < 1 || month > 12 {
			continue
		}
		return e.months[month-1] + " " + folded[loc[4]:loc[5]]
	}
	return ""
}

func isDateTail(prefix string) bool {
	if !strings.HasSuffix(prefix, ".") {
		return false
	}
	return precededByDigit(strings.TrimSuffix(prefix, "."))
}

func precededByDigit(prefix string) bool {
	r, _ := utf8.DecodeLastRuneInString(prefix)
	return r >= '0' && r <= '9'
}

func dueDate(line string) *time.Time {
	for _, re := range dueDatePatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		d, err := time.Parse(dueDateLayout, m[1])
		if err != nil {
			continue
		}
		return &d
	}
	return nil
}
