package parser

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/extractor"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/normalizer"
)

// ServiceTable is the result of parsing the primary table.
type ServiceTable struct {
	Services []epd.ServiceCharge
	Totals   TotalsLines
	Warnings []epd.ParseWarning
}

// tableState is the per-table parse state. A fresh one is built for every
// table so nothing leaks between documents.
type tableState struct {
	category    string
	columns     ColumnMap
	pendingName string
	services    []epd.ServiceCharge
	totals      TotalsLines
	warnings    []epd.ParseWarning

	// tailOpen is set while the previous non-blank row emitted a service
	// or extended its name.
	tailOpen bool
}

func (st *tableState) warn(kind string, row int, column, message, raw string) {
	st.warnings = append(st.warnings, epd.ParseWarning{
		Kind:    kind,
		Row:     row,
		Column:  column,
		Message: message,
		RawData: raw,
	})
}

// RowParser converts classified table rows into records.
type RowParser struct {
	vocab      *Vocabulary
	resolver   *normalizer.SignResolver
	strategies []layoutStrategy
	logger     *slog.Logger
}

// NewRowParser creates a row parser over vocab.
func NewRowParser(vocab *Vocabulary, logger *slog.Logger) *RowParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &RowParser{
		vocab:      vocab,
		resolver:   normalizer.NewSignResolver(vocab.SignHints()),
		strategies: layoutStrategies(),
		logger:     logger,
	}
}

// ParseServices walks the primary table and returns its service charges,
// the totals lines and the recovered problems. Orders are 1-based in table
// order.
func (p *RowParser) ParseServices(t extractor.Table) ServiceTable {
	st := &tableState{}

	for i := 0; i < len(t); i++ {
		row := t[i]
		rowNum := i + 1
		first := firstNonEmpty(row)
		text := joinRow(row)

		if strings.TrimSpace(text) == "" {
			continue
		}

		tailOpen := st.tailOpen
		st.tailOpen = false

		if heading, ok := p.vocab.Category(first); ok {
			st.category = heading
			st.pendingName = ""
			continue
		}

		// header rows may name an "Итого к оплате" column
		if p.vocab.IsTerminal(text) && !p.vocab.IsHeader(first) {
			p.readTotals(st, row, rowNum)
			continue
		}

		if p.vocab.IsHeader(first) {
			header := row
			// header rows split across two physical rows
			if i+1 < len(t) && p.isHeaderContinuation(t[i+1]) {
				header = mergeHeaderRows(row, t[i+1])
				i++
			}
			p.setHeader(st, header, rowNum)
			continue
		}

		if isNumberingRow(row) {
			continue
		}

		p.parseDataRow(st, row, rowNum, tailOpen)
	}

	for i := range st.services {
		st.services[i].Order = i + 1
	}

	return ServiceTable{
		Services: st.services,
		Totals:   st.totals,
		Warnings: st.warnings,
	}
}

func (p *RowParser) setHeader(st *tableState, header []string, rowNum int) {
	cols := detectColumns(header)
	if !cols.usable() {
		p.logger.Debug("header row without amount and total columns, using positional layout",
			slog.Int("row", rowNum),
			slog.String("header", joinRow(header)),
		)
		st.columns = nil
		return
	}
	st.columns = cols
}

// isHeaderContinuation reports whether row is the lower half of a two-row
// header: no numbers, no category, at least two cells naming known columns.
func (p *RowParser) isHeaderContinuation(row []string) bool {
	if rowHasNumber(row) || p.vocab.IsTerminal(joinRow(row)) {
		return false
	}
	if _, ok := p.vocab.Category(firstNonEmpty(row)); ok {
		return false
	}
	known := 0
	for _, cell := range row {
		if _, ok := headerField(normalizer.Fold(cell)); ok {
			known++
		}
	}
	return known >= 2
}

func (p *RowParser) pickLayout(st *tableState, row []string) (string, ColumnMap, bool) {
	for _, s := range p.strategies {
		if s.match(st, row) {
			return s.name, s.cols(st), true
		}
	}
	return "", nil, false
}

func (p *RowParser) parseDataRow(st *tableState, row []string, rowNum int, tailOpen bool) {
	if st.category == "" {
		p.skip(st, rowNum, "row outside any category", row)
		return
	}

	if !rowHasNumber(row) {
		p.holdName(st, normalizer.CleanServiceName(firstNonEmpty(row)), tailOpen)
		return
	}

	layout, cols, ok := p.pickLayout(st, row)
	if !ok {
		p.skip(st, rowNum, "row too short", row)
		return
	}

	name := normalizer.CleanServiceName(cols.Cell(row, FieldName))
	if !dataCellsHaveNumber(row, cols) {
		p.holdName(st, name, tailOpen)
		return
	}

	if st.pendingName != "" {
		name = strings.TrimSpace(st.pendingName + " " + name)
		st.pendingName = ""
	}
	if name == "" {
		p.skip(st, rowNum, "row without service name", row)
		return
	}

	charge := epd.ServiceCharge{
		ServiceName:   name,
		Category:      st.category,
		Volume:        normalizer.ParseOptional(cols.Cell(row, FieldVolume)),
		Unit:          normalizer.CollapseSpaces(cols.Cell(row, FieldUnit)),
		Tariff:        normalizer.ParseOptional(cols.Cell(row, FieldTariff)),
		Amount:        p.amount(st, row, cols, FieldAmount, rowNum),
		Recalculation: p.resolver.Resolve(cols.Cell(row, FieldRecalculation), normalizer.ColumnRecalculation),
		Debt:          p.resolver.Resolve(cols.Cell(row, FieldDebt), normalizer.ColumnDebt),
		Paid:          p.resolver.Resolve(cols.Cell(row, FieldPaid), normalizer.ColumnPaid),
		Total:         p.amount(st, row, cols, FieldTotal, rowNum),
	}
	if cols.Has(FieldAmountByTariff) {
		v := p.amount(st, row, cols, FieldAmountByTariff, rowNum)
		charge.AmountByTariff = &v
	}
	// units sometimes land in the volume cell when the unit column is merged
	if charge.Unit == "" && charge.Volume == nil {
		charge.Unit = normalizer.CollapseSpaces(cols.Cell(row, FieldVolume))
	}

	p.logger.Debug("service row parsed",
		slog.Int("row", rowNum),
		slog.String("layout", layout),
		slog.String("service", name),
	)
	st.services = append(st.services, charge)
	st.tailOpen = true
}

// holdName handles a row with a name and no numbers. Right after a service
// row it is the tail of that service's wrapped name, unless it starts a
// known service name. Anything else is held as the head of the next service.
func (p *RowParser) holdName(st *tableState, name string, tailOpen bool) {
	if name == "" {
		return
	}
	if n := len(st.services); tailOpen && n > 0 && st.pendingName == "" {
		if !p.vocab.BeginsService(name) {
			prev := &st.services[n-1]
			prev.ServiceName = normalizer.CollapseSpaces(prev.ServiceName + " " + name)
			st.tailOpen = true
			return
		}
	}
	st.pendingName = strings.TrimSpace(st.pendingName + " " + name)
}

func (p *RowParser) amount(st *tableState, row []string, cols ColumnMap, f Field, rowNum int) decimal.Decimal {
	raw := cols.Cell(row, f)
	v, err := normalizer.ParseAmount(raw)
	if errors.Is(err, normalizer.ErrNoAmount) {
		st.warn(epd.WarningBadAmount, rowNum, string(f), "unparseable amount, using 0", raw)
		p.logger.Warn("unparseable amount, using 0",
			slog.Int("row", rowNum),
			slog.String("column", string(f)),
			slog.String("raw", raw),
		)
	}
	return v
}

func (p *RowParser) skip(st *tableState, rowNum int, reason string, row []string) {
	raw := joinRow(row)
	st.warn(epd.WarningSkippedRow, rowNum, "", reason, raw)
	p.logger.Debug("row skipped",
		slog.Int("row", rowNum),
		slog.String("reason", reason),
		slog.String("raw", raw),
	)
}

// dataCellsHaveNumber reports whether any mapped cell other than the name
// holds a number.
func dataCellsHaveNumber(row []string, cols ColumnMap) bool {
	for f, idx := range cols {
		if f == FieldName || f == FieldUnit || idx >= len(row) {
			continue
		}
		if normalizer.HasNumber(row[idx]) {
			return true
		}
	}
	return false
}

// isNumberingRow matches the "1 2 3 ... N" row printed under some headers.
func isNumberingRow(row []string) bool {
	count := 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		for _, r := range cell {
			if r < '0' || r > '9' {
				return false
			}
		}
		count++
	}
	return count >= 3
}

func rowHasNumber(row []string) bool {
	for _, cell := range row {
		if normalizer.HasNumber(cell) {
			return true
		}
	}
	return false
}

func firstNonEmpty(row []string) string {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return cell
		}
	}
	return ""
}

func joinRow(row []string) string {
	parts := make([]string, 0, len(row))
	for _, cell := range row {
		if c := normalizer.CollapseSpaces(cell); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}
