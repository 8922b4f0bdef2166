package vision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd/normalizer"
)

// ErrNoData is returned when a model reply holds nothing usable.
var ErrNoData = errors.New("model returned no usable data")

// amount accepts JSON numbers as well as strings like "1 243,09".
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		a.Decimal = decimal.Zero
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		raw = strings.TrimSpace(text)
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		a.Decimal = d
		return nil
	}
	a.Decimal = normalizer.NormalizeAmount(raw)
	return nil
}

// adjustment is an amount from a column whose sign may be spelled out in
// words, like "Уменьшение 50,00". Text replies keep their raw form so the
// column's sign hints can be applied.
type adjustment struct {
	amount
	text string
}

func (a *adjustment) UnmarshalJSON(data []byte) error {
	a.text = ""
	if err := a.amount.UnmarshalJSON(data); err != nil {
		return err
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(s)); err != nil {
		a.text = s
	}
	return nil
}

// signed returns the value with col's sign hints applied to text replies.
func (a adjustment) signed(col normalizer.Column) decimal.Decimal {
	if a.text == "" {
		return a.Decimal
	}
	return normalizer.ResolveColumn(a.text, col)
}

type pagePersonalInfo struct {
	AccountNumber string `json:"account_number"`
	FullName      string `json:"full_name"`
	Address       string `json:"address"`
	Period        string `json:"period"`
	DueDate       string `json:"due_date"`
}

type pageService struct {
	ServiceName    string     `json:"service_name"`
	Category       string     `json:"category"`
	Volume         *amount    `json:"volume"`
	Unit           string     `json:"unit"`
	Tariff         *amount    `json:"tariff"`
	Amount         amount     `json:"amount"`
	Recalculations adjustment `json:"recalculations"`
	Debt           adjustment `json:"debt"`
	Paid           adjustment `json:"paid"`
	Total          amount     `json:"total"`
}

type pageTotals struct {
	TotalWithoutInsurance amount `json:"total_without_insurance"`
	TotalWithInsurance    amount `json:"total_with_insurance"`
}

// pageData is the JSON object the model returns for one page.
type pageData struct {
	PersonalInfo   pagePersonalInfo `json:"personal_info"`
	ServiceCharges []pageService    `json:"service_charges"`
	Totals         pageTotals       `json:"totals"`
}

func (p pageData) empty() bool {
	return p.PersonalInfo == (pagePersonalInfo{}) &&
		len(p.ServiceCharges) == 0 &&
		p.Totals.TotalWithoutInsurance.IsZero() &&
		p.Totals.TotalWithInsurance.IsZero()
}

// decodePage parses a model reply. Replies are tried as strict JSON, then
// repaired JSON, then Hjson.
func decodePage(content string) (pageData, error) {
	content = strings.TrimSpace(content)

	var page pageData
	if err := json.Unmarshal([]byte(content), &page); err != nil {
		page, err = decodeLenient(content)
		if err != nil {
			return pageData{}, err
		}
	}

	if page.empty() {
		return pageData{}, ErrNoData
	}
	return page, nil
}

func decodeLenient(content string) (pageData, error) {
	var page pageData

	if repaired, err := jsonrepair.RepairJSON(content); err == nil {
		if err := json.Unmarshal([]byte(repaired), &page); err == nil {
			return page, nil
		}
	}

	var generic interface{}
	if err := hjson.Unmarshal([]byte(content), &generic); err != nil {
		return pageData{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(generic); err != nil {
		return pageData{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	page = pageData{}
	if err := json.Unmarshal(buf.Bytes(), &page); err != nil {
		return pageData{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	return page, nil
}

// mergePages combines per-page replies. Personal fields keep the first
// non-empty value, services are deduplicated by name and each total keeps
// its largest value.
func mergePages(pages []pageData) pageData {
	var merged pageData

	for _, p := range pages {
		mergeInfo(&merged.PersonalInfo, p.PersonalInfo)

		for _, s := range p.ServiceCharges {
			name := normalizer.CollapseSpaces(s.ServiceName)
			if name == "" || containsService(merged.ServiceCharges, name) {
				continue
			}
			s.ServiceName = name
			merged.ServiceCharges = append(merged.ServiceCharges, s)
		}

		if p.Totals.TotalWithoutInsurance.GreaterThan(merged.Totals.TotalWithoutInsurance.Decimal) {
			merged.Totals.TotalWithoutInsurance = p.Totals.TotalWithoutInsurance
		}
		if p.Totals.TotalWithInsurance.GreaterThan(merged.Totals.TotalWithInsurance.Decimal) {
			merged.Totals.TotalWithInsurance = p.Totals.TotalWithInsurance
		}
	}

	return merged
}

func mergeInfo(dst *pagePersonalInfo, src pagePersonalInfo) {
	setOnce := func(dst *string, v string) {
		if *dst == "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setOnce(&dst.AccountNumber, src.AccountNumber)
	setOnce(&dst.FullName, src.FullName)
	setOnce(&dst.Address, src.Address)
	setOnce(&dst.Period, src.Period)
	setOnce(&dst.DueDate, src.DueDate)
}

// containsService matches names case-insensitively, tolerating a stray
// character or two of recognition noise.
func containsService(services []pageService, name string) bool {
	for _, s := range services {
		if len(s.ServiceName) == 0 {
			continue
		}
		if rank := fuzzy.RankMatchNormalizedFold(name, s.ServiceName); rank >= 0 && rank <= 1 {
			return true
		}
		if rank := fuzzy.RankMatchNormalizedFold(s.ServiceName, name); rank >= 0 && rank <= 1 {
			return true
		}
	}
	return false
}
