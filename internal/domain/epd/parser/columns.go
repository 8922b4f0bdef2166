package parser

import (
	"strings"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd/normalizer"
)

// Field is a semantic column of the service table.
type Field string

const (
	FieldName           Field = "name"
	FieldVolume         Field = "volume"
	FieldUnit           Field = "unit"
	FieldTariff         Field = "tariff"
	FieldAmountByTariff Field = "amount_by_tariff"
	FieldAmount         Field = "amount"
	FieldRecalculation  Field = "recalculation"
	FieldDebt           Field = "debt"
	FieldPaid           Field = "paid"
	FieldTotal          Field = "total"
)

// ColumnMap maps fields to cell indexes.
type ColumnMap map[Field]int

// MinColumns is the shortest row that holds every mapped field.
func (m ColumnMap) MinColumns() int {
	maxIdx := -1
	for _, idx := range m {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	return maxIdx + 1
}

// Cell returns the cell of field f in row, or "" when unmapped or absent.
func (m ColumnMap) Cell(row []string, f Field) string {
	idx, ok := m[f]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Has reports whether f is mapped.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

var debtStems = []string{"долг", "задолж", "переплат", "недоплат"}

// headerField maps one folded header cell to a field. Order matters: the
// "начислено по тарифу" column must be recognised before plain "начислено",
// and "тариф" only stands alone when it is not part of an accrual header.
func headerField(folded string) (Field, bool) {
	switch {
	case folded == "":
		return "", false
	case strings.Contains(folded, "виды услуг") || strings.Contains(folded, "вид услуг"):
		return FieldName, true
	case strings.Contains(folded, "начислено по тариф"):
		return FieldAmountByTariff, true
	case strings.Contains(folded, "перерас"):
		return FieldRecalculation, true
	case strings.Contains(folded, "начислено"):
		return FieldAmount, true
	case strings.Contains(folded, "итого"):
		return FieldTotal, true
	case strings.Contains(folded, "оплач"):
		return FieldPaid, true
	case normalizer.ContainsAny(folded, debtStems):
		return FieldDebt, true
	case strings.Contains(folded, "тариф"):
		return FieldTariff, true
	case strings.Contains(folded, "объем"):
		return FieldVolume, true
	case strings.HasPrefix(folded, "ед.") || strings.HasPrefix(folded, "ед ") ||
		strings.Contains(folded, "ед. изм") || strings.Contains(folded, "единиц"):
		return FieldUnit, true
	}
	return "", false
}

// detectColumns builds a column map from header cells. The first cell
// mapping to a field wins; a table with only an accrual-by-tariff column
// uses it as the amount.
func detectColumns(header []string) ColumnMap {
	cols := make(ColumnMap)
	for i, cell := range header {
		f, ok := headerField(normalizer.Fold(cell))
		if !ok || cols.Has(f) {
			continue
		}
		cols[f] = i
	}

	if !cols.Has(FieldName) && len(header) > 0 {
		cols[FieldName] = 0
	}
	if !cols.Has(FieldAmount) && cols.Has(FieldAmountByTariff) {
		cols[FieldAmount] = cols[FieldAmountByTariff]
		delete(cols, FieldAmountByTariff)
	}
	return cols
}

// usable reports whether a detected map can carry service rows on its own.
func (m ColumnMap) usable() bool {
	return m.Has(FieldAmount) && m.Has(FieldTotal)
}

// mergeHeaderRows joins two physical header rows cell by cell.
func mergeHeaderRows(first, second []string) []string {
	n := len(first)
	if len(second) > n {
		n = len(second)
	}
	merged := make([]string, n)
	for i := 0; i < n; i++ {
		var parts []string
		if i < len(first) && strings.TrimSpace(first[i]) != "" {
			parts = append(parts, first[i])
		}
		if i < len(second) && strings.TrimSpace(second[i]) != "" {
			parts = append(parts, second[i])
		}
		merged[i] = strings.Join(parts, " ")
	}
	return merged
}

// layoutStrategy picks a column map for a data row. Strategies are tried in
// order and the first whose predicate holds wins.
type layoutStrategy struct {
	name  string
	match func(st *tableState, row []string) bool
	cols  func(st *tableState) ColumnMap
}

var (
	tenColumnLayout = ColumnMap{
		FieldName: 0, FieldVolume: 1, FieldUnit: 2, FieldTariff: 3, FieldAmountByTariff: 4,
		FieldAmount: 5, FieldRecalculation: 6, FieldDebt: 7, FieldPaid: 8, FieldTotal: 9,
	}
	nineColumnLayout = ColumnMap{
		FieldName: 0, FieldVolume: 1, FieldUnit: 2, FieldTariff: 3,
		FieldAmount: 4, FieldRecalculation: 5, FieldDebt: 6, FieldPaid: 7, FieldTotal: 8,
	}
)

func layoutStrategies() []layoutStrategy {
	return []layoutStrategy{
		{
			name: "header",
			match: func(st *tableState, row []string) bool {
				return st.columns != nil && st.columns.usable() && len(row) >= st.columns.MinColumns()
			},
			cols: func(st *tableState) ColumnMap { return st.columns },
		},
		{
			name:  "positional-10",
			match: func(st *tableState, row []string) bool { return st.columns == nil && len(row) >= 10 },
			cols:  func(*tableState) ColumnMap { return tenColumnLayout },
		},
		{
			name:  "positional-9",
			match: func(st *tableState, row []string) bool { return st.columns == nil && len(row) >= 9 },
			cols:  func(*tableState) ColumnMap { return nineColumnLayout },
		},
	}
}
