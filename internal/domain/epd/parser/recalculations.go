package parser

import (
	"log/slog"
	"strings"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/extractor"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/normalizer"
)

// ParseRecalculations reads the secondary recalculation table. The amount is
// the last cell holding a number; earlier non-empty cells describe it, the
// first one naming the service and the rest forming the reason.
func (p *RowParser) ParseRecalculations(t extractor.Table) []epd.Recalculation {
	var out []epd.Recalculation

	for i, row := range t {
		amountIdx := -1
		for j := len(row) - 1; j >= 0; j-- {
			if normalizer.HasNumber(row[j]) {
				amountIdx = j
				break
			}
		}
		if amountIdx <= 0 {
			continue
		}

		var parts []string
		for _, cell := range row[:amountIdx] {
			cell = normalizer.CollapseSpaces(cell)
			if cell == "" || cell == "-" {
				continue
			}
			parts = append(parts, cell)
		}
		if len(parts) == 0 {
			continue
		}

		name := parts[0]
		reason := strings.Join(parts[1:], "; ")
		if skipRecalculationRow(name, reason) {
			p.logger.Debug("recalculation row skipped", slog.Int("row", i+1), slog.String("raw", joinRow(row)))
			continue
		}

		out = append(out, epd.Recalculation{
			ServiceName: name,
			Reason:      reason,
			Amount:      p.resolver.Resolve(row[amountIdx], normalizer.ColumnRecalculation),
			Order:       len(out) + 1,
		})
	}

	return out
}

func skipRecalculationRow(name, reason string) bool {
	n := normalizer.Fold(name)
	r := normalizer.Fold(reason)
	switch {
	case strings.Contains(n, "вид") && strings.Contains(n, "услуг"):
		return true
	case strings.HasPrefix(n, "перерасч"):
		return true
	case strings.HasPrefix(n, "итого") || strings.HasPrefix(r, "итого"):
		return true
	}
	return false
}
