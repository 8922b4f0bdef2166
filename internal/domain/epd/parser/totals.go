package parser

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/normalizer"
)

// TotalsLines holds the totals exactly as printed on the bill. Nil means the
// line was not found.
type TotalsLines struct {
	WithoutInsurance *decimal.Decimal
	WithInsurance    *decimal.Decimal
	InsuranceLine    *decimal.Decimal
	// AmountDue is a bare "Итого к оплате" line without insurance wording.
	AmountDue *decimal.Decimal
}

// Totals resolves the printed lines into document totals. The insurance
// amount is the difference of the two totals when both are present and the
// standalone insurance line otherwise.
func (t TotalsLines) Totals() epd.Totals {
	without := valueOr(t.WithoutInsurance, t.AmountDue)
	with := valueOr(t.WithInsurance, nil)
	return epd.Totals{
		TotalWithoutInsurance: without,
		TotalWithInsurance:    with,
		InsuranceAmount:       epd.InsuranceDifference(without, with, valueOr(t.InsuranceLine, nil)),
	}
}

type totalKind int

const (
	totalNone totalKind = iota
	totalWithout
	totalWith
	totalInsurance
	totalDue
)

// classifyTotal decides which total a terminal row carries. Insurance
// qualifiers are checked first because they share the row with "Итого к
// оплате"; "Всего за" rows are per-category subtotals.
func classifyTotal(folded string) totalKind {
	insured := strings.Contains(folded, "страхован")
	switch {
	case insured && strings.Contains(folded, "без учета"):
		return totalWithout
	case insured && strings.Contains(folded, "с учетом"):
		return totalWith
	case strings.Contains(folded, "всего за"):
		return totalNone
	case strings.Contains(folded, "добровольное страхование"):
		return totalInsurance
	case strings.Contains(folded, "итого к оплате"):
		return totalDue
	}
	return totalNone
}

func (p *RowParser) readTotals(st *tableState, row []string, rowNum int) {
	kind := classifyTotal(normalizer.Fold(joinRow(row)))
	if kind == totalNone {
		return
	}

	raw, ok := totalCell(st, row)
	if !ok {
		st.warn(epd.WarningBadAmount, rowNum, string(FieldTotal), "totals row without amount", joinRow(row))
		p.logger.Warn("totals row without amount", slog.Int("row", rowNum), slog.String("raw", joinRow(row)))
		return
	}
	amount := normalizer.NormalizeAmount(raw)

	var target **decimal.Decimal
	switch kind {
	case totalWithout:
		target = &st.totals.WithoutInsurance
	case totalWith:
		target = &st.totals.WithInsurance
	case totalInsurance:
		target = &st.totals.InsuranceLine
	case totalDue:
		target = &st.totals.AmountDue
	}
	if *target == nil {
		*target = &amount
	}
}

// totalCell returns the cell of the total column, falling back to the
// right-most cell holding a number.
func totalCell(st *tableState, row []string) (string, bool) {
	cols := st.columns
	if cols == nil {
		switch {
		case len(row) >= 10:
			cols = tenColumnLayout
		case len(row) >= 9:
			cols = nineColumnLayout
		}
	}
	if cols != nil {
		if cell := cols.Cell(row, FieldTotal); normalizer.HasNumber(cell) {
			return cell, true
		}
	}

	for i := len(row) - 1; i >= 0; i-- {
		if normalizer.HasNumber(row[i]) {
			return row[i], true
		}
	}
	return "", false
}

func valueOr(v, fallback *decimal.Decimal) decimal.Decimal {
	if v != nil {
		return *v
	}
	if fallback != nil {
		return *fallback
	}
	return decimal.Zero
}
