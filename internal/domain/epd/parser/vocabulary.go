package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd/normalizer"
)

// VocabularyData is the raw, serializable form of a Vocabulary.
type VocabularyData struct {
	Categories           []string            `yaml:"categories"`
	TerminalPhrases      []string            `yaml:"terminal_phrases"`
	HeaderMarkers        []string            `yaml:"header_markers"`
	ServiceKeywords      []string            `yaml:"service_keywords"`
	RecalculationMarkers []string            `yaml:"recalculation_markers"`
	Months               []string            `yaml:"months"`
	MonthAbbreviations   []string            `yaml:"month_abbreviations"`
	ServiceNames         []string            `yaml:"service_names"`
	SignHints            map[string]HintData `yaml:"sign_hints"`
}

// HintData is the serializable form of a normalizer.Hint.
type HintData struct {
	Positive  []string `yaml:"positive"`
	Negative  []string `yaml:"negative"`
	Alternate bool     `yaml:"alternate"`
}

// DefaultVocabularyData returns the lookup tables for standard EPD bills.
func DefaultVocabularyData() VocabularyData {
	return VocabularyData{
		Categories: []string{
			"Начисления за жилищные услуги",
			"Начисления за коммунальные услуги",
			"Начисления за иные услуги",
		},
		TerminalPhrases: []string{
			"всего за",
			"итого к оплате",
			"добровольное страхование",
			"без учета добровольного страхования",
			"с учетом добровольного страхования",
			"без учета страхования",
			"с учетом страхования",
		},
		HeaderMarkers:        []string{"виды услуг"},
		ServiceKeywords:      []string{"тариф", "начислено"},
		RecalculationMarkers: []string{"перерасч"},
		Months: []string{
			"январь", "февраль", "март", "апрель", "май", "июнь",
			"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
		},
		MonthAbbreviations: []string{
			"янв", "фев", "мар", "апр", "мая", "июн",
			"июл", "авг", "сен", "окт", "ноя", "дек",
		},
		ServiceNames: []string{
			"ВЗНОС НА КАП. РЕМОНТ",
			"ВОДООТВЕДЕНИЕ ОДН",
			"ГОРЯЧАЯ ВОДА (НОСИТЕЛЬ) ОДН",
			"ГОРЯЧЕЕ В/С (ЭНЕРГИЯ) ОДН",
			"ГОРЯЧЕЕ В/С (НОСИТЕЛЬ) ОДН",
			"СОДЕРЖАНИЕ Ж/Ф",
			"ХОЛОДНОЕ В/С ОДН",
			"ЭЛЕКТРОЭНЕРГИЯ ОДН",
			"ВОДООТВЕДЕНИЕ",
			"ГАЗОСНАБЖЕНИЕ",
			"ГОРЯЧЕЕ В/С (ЭНЕРГИЯ)",
			"ГОРЯЧЕЕ В/С (НОСИТЕЛЬ)",
			"ОБРАЩЕНИЕ С ТКО",
			"ОТОПЛЕНИЕ",
			"ХОЛОДНОЕ В/С",
			"ДОБРОВОЛЬНОЕ СТРАХОВАНИЕ",
			"ЗАПИРАЮЩЕЕ УСТРОЙСТВО",
		},
		SignHints: hintData(normalizer.DefaultSignHints()),
	}
}

// hintData converts sign hints to their serializable form.
func hintData(hints normalizer.SignHints) map[string]HintData {
	out := make(map[string]HintData)
	for col, h := range hints.All() {
		out[string(col)] = HintData{
			Positive:  h.Positive,
			Negative:  h.Negative,
			Alternate: h.Alternate,
		}
	}
	return out
}

// Vocabulary is the compiled, read-only set of lookup tables the parser
// works with. It is safe for concurrent use.
type Vocabulary struct {
	categories    map[string]string // folded -> canonical heading
	months        []string
	abbreviations []string
	serviceNames  []string
	signHints     normalizer.SignHints

	// matchers keep per-search state, so searches are serialized
	mu              sync.Mutex
	terminal        *ahocorasick.Matcher
	header          *ahocorasick.Matcher
	serviceKeywords *ahocorasick.Matcher
	serviceKeyCount int
	recalculation   *ahocorasick.Matcher
}

var errMonthTable = errors.New("month tables must have 12 entries")

// NewVocabulary validates data and compiles its keyword matchers.
func NewVocabulary(data VocabularyData) (*Vocabulary, error) {
	if len(data.Months) != 12 || len(data.MonthAbbreviations) != 12 {
		return nil, errMonthTable
	}
	if len(data.ServiceKeywords) == 0 {
		return nil, errors.New("service keywords are required")
	}

	v := &Vocabulary{
		categories:      make(map[string]string, len(data.Categories)),
		months:          foldAll(data.Months),
		abbreviations:   foldAll(data.MonthAbbreviations),
		serviceNames:    append([]string(nil), data.ServiceNames...),
		terminal:        newMatcher(data.TerminalPhrases),
		header:          newMatcher(data.HeaderMarkers),
		serviceKeywords: newMatcher(data.ServiceKeywords),
		serviceKeyCount: len(data.ServiceKeywords),
		recalculation:   newMatcher(data.RecalculationMarkers),
	}
	for _, c := range data.Categories {
		v.categories[normalizer.Fold(c)] = normalizer.CollapseSpaces(c)
	}

	hints := make(map[normalizer.Column]normalizer.Hint, len(data.SignHints))
	for col, h := range data.SignHints {
		hints[normalizer.Column(col)] = normalizer.Hint{
			Positive:  h.Positive,
			Negative:  h.Negative,
			Alternate: h.Alternate,
		}
	}
	v.signHints = normalizer.NewSignHints(hints)

	return v, nil
}

// DefaultVocabulary returns the compiled default tables.
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(DefaultVocabularyData())
	if err != nil {
		panic(fmt.Sprintf("default vocabulary is invalid: %v", err))
	}
	return v
}

// LoadVocabulary reads a YAML file over the defaults. Keys absent from the
// file keep their default values.
func LoadVocabulary(path string) (*Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	data := DefaultVocabularyData()
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}

	v, err := NewVocabulary(data)
	if err != nil {
		return nil, fmt.Errorf("invalid vocabulary file %s: %w", path, err)
	}
	return v, nil
}

// SignHints returns the per-column sign hints.
func (v *Vocabulary) SignHints() normalizer.SignHints {
	return v.signHints
}

// Category returns the canonical heading when cell is a category heading.
func (v *Vocabulary) Category(cell string) (string, bool) {
	heading, ok := v.categories[normalizer.Fold(cell)]
	return heading, ok
}

// IsTerminal reports whether text contains a totals phrase.
func (v *Vocabulary) IsTerminal(text string) bool {
	return v.matches(v.terminal, text)
}

// IsHeader reports whether text contains a column-header marker.
func (v *Vocabulary) IsHeader(text string) bool {
	return v.matches(v.header, text)
}

// HasAllServiceKeywords reports whether text contains every service-table keyword.
func (v *Vocabulary) HasAllServiceKeywords(text string) bool {
	if v.serviceKeywords == nil {
		return false
	}
	folded := []byte(normalizer.Fold(text))

	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.serviceKeywords.Match(folded)) == v.serviceKeyCount
}

// HasAnyServiceKeyword reports whether text contains at least one service-table keyword.
func (v *Vocabulary) HasAnyServiceKeyword(text string) bool {
	return v.matches(v.serviceKeywords, text)
}

// HasRecalculationMarker reports whether text mentions recalculations.
func (v *Vocabulary) HasRecalculationMarker(text string) bool {
	return v.matches(v.recalculation, text)
}

// Months returns the folded full month names, January first.
func (v *Vocabulary) Months() []string {
	return v.months
}

// MonthAbbreviations returns the folded abbreviations, January first.
func (v *Vocabulary) MonthAbbreviations() []string {
	return v.abbreviations
}

// KnownService returns the closest known service name when name is a near
// match for one of them.
func (v *Vocabulary) KnownService(name string) (string, bool) {
	name = normalizer.CollapseSpaces(name)
	if name == "" {
		return "", false
	}

	best, bestRank := "", -1
	for _, known := range v.serviceNames {
		rank := fuzzy.RankMatchNormalizedFold(name, known)
		if rank < 0 || rank > utf8.RuneCountInString(known)/4 {
			continue
		}
		if bestRank < 0 || rank < bestRank {
			best, bestRank = known, rank
		}
	}
	return best, bestRank >= 0
}

// BeginsService reports whether name is a known service name or its
// leading words, as printed on the first line of a wrapped name.
func (v *Vocabulary) BeginsService(name string) bool {
	folded := normalizer.Fold(name)
	if folded == "" {
		return false
	}
	for _, known := range v.serviceNames {
		k := normalizer.Fold(known)
		if k == folded || strings.HasPrefix(k, folded+" ") {
			return true
		}
	}
	_, ok := v.KnownService(name)
	return ok
}

func newMatcher(patterns []string) *ahocorasick.Matcher {
	if len(patterns) == 0 {
		return nil
	}
	folded := make([]string, len(patterns))
	for i, p := range patterns {
		folded[i] = normalizer.Fold(p)
	}
	return ahocorasick.NewStringMatcher(folded)
}

func (v *Vocabulary) matches(m *ahocorasick.Matcher, text string) bool {
	if m == nil {
		return false
	}
	folded := []byte(normalizer.Fold(text))

	v.mu.Lock()
	defer v.mu.Unlock()
	return len(m.Match(folded)) > 0
}

func foldAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(normalizer.Fold(s))
	}
	return out
}
