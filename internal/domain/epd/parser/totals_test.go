package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/extractor"
)

func TestRowParser_TotalsAreReadNotSummed(t *testing.T) {
	table := extractor.Table{
		serviceHeader,
		{"Начисления за коммунальные услуги", "", "", "", "", "", "", "", ""},
		{"ОТОПЛЕНИЕ", "", "", "", "3 000,00", "0,00", "0,00", "0,00", "3 000,00"},
		{"ХОЛОДНОЕ В/С", "", "", "", "2 000,00", "0,00", "0,00", "0,00", "2 000,00"},
		{"Итого к оплате без учета страхования", "", "", "", "", "", "", "", "4 990,00"},
	}

	res := newTestRowParser().ParseServices(table)
	doc := epd.Document{Services: res.Services}

	assert.Equal(t, "5000.00", doc.ServicesTotal().StringFixed(2))
	assert.Equal(t, "4990.00", res.Totals.Totals().TotalWithoutInsurance.StringFixed(2))
}

func TestRowParser_TotalsLines(t *testing.T) {
	tests := []struct {
		name        string
		rows        extractor.Table
		wantWithout string
		wantWith    string
		wantIns     string
	}{
		{
			name: "bare amount due",
			rows: extractor.Table{
				{"Итого к оплате", "", "", "", "", "", "", "", "1 200,50"},
			},
			wantWithout: "1200.50", wantWith: "0.00", wantIns: "0.00",
		},
		{
			name: "qualified row wins over bare amount due",
			rows: extractor.Table{
				{"Итого к оплате", "", "", "", "", "", "", "", "1 000,00"},
				{"Итого к оплате без учета добровольного страхования", "", "", "", "", "", "", "", "1 200,50"},
			},
			wantWithout: "1200.50", wantWith: "0.00", wantIns: "0.00",
		},
		{
			name: "standalone insurance line",
			rows: extractor.Table{
				{"ДОБРОВОЛЬНОЕ СТРАХОВАНИЕ", "", "", "", "", "", "", "", "60,00"},
				{"Итого к оплате без учета добровольного страхования", "", "", "", "", "", "", "", "1 000,00"},
			},
			wantWithout: "1000.00", wantWith: "0.00", wantIns: "60.00",
		},
		{
			name: "difference beats standalone line",
			rows: extractor.Table{
				{"ДОБРОВОЛЬНОЕ СТРАХОВАНИЕ", "", "", "", "", "", "", "", "55,00"},
				{"Итого к оплате без учета добровольного страхования", "", "", "", "", "", "", "", "1 000,00"},
				{"Итого к оплате с учетом добровольного страхования", "", "", "", "", "", "", "", "1 060,00"},
			},
			wantWithout: "1000.00", wantWith: "1060.00", wantIns: "60.00",
		},
		{
			name: "category subtotal is ignored",
			rows: extractor.Table{
				{"Всего за коммунальные услуги", "", "", "", "", "", "", "", "999,00"},
			},
			wantWithout: "0.00", wantWith: "0.00", wantIns: "0.00",
		},
		{
			name: "first line wins",
			rows: extractor.Table{
				{"Итого к оплате с учетом страхования", "", "", "", "", "", "", "", "700,00"},
				{"Итого к оплате с учетом страхования", "", "", "", "", "", "", "", "800,00"},
			},
			wantWithout: "0.00", wantWith: "700.00", wantIns: "0.00",
		},
		{
			name: "short row uses right-most number",
			rows: extractor.Table{
				{"Итого к оплате без учета страхования", "1 500,00"},
			},
			wantWithout: "1500.00", wantWith: "0.00", wantIns: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := newTestRowParser().ParseServices(tt.rows).Totals.Totals()
			assert.Equal(t, tt.wantWithout, totals.TotalWithoutInsurance.StringFixed(2))
			assert.Equal(t, tt.wantWith, totals.TotalWithInsurance.StringFixed(2))
			assert.Equal(t, tt.wantIns, totals.InsuranceAmount.StringFixed(2))
		})
	}
}

func TestRowParser_TotalsRowWithoutAmount(t *testing.T) {
	res := newTestRowParser().ParseServices(extractor.Table{
		{"Итого к оплате с учетом добровольного страхования", "", ""},
	})

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, epd.WarningBadAmount, res.Warnings[0].Kind)
	assert.Nil(t, res.Totals.WithInsurance)
}

func TestClassifyTotal(t *testing.T) {
	tests := []struct {
		input string
		want  totalKind
	}{
		{"итого к оплате без учета добровольного страхования", totalWithout},
		{"итого к оплате с учетом добровольного страхования", totalWith},
		{"добровольное страхование", totalInsurance},
		{"итого к оплате", totalDue},
		{"всего за жилищные услуги", totalNone},
		{"отопление", totalNone},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTotal(tt.input))
		})
	}
}

func TestTotalsLines_Totals(t *testing.T) {
	due := decimal.RequireFromString("100.00")
	lines := TotalsLines{AmountDue: &due}

	totals := lines.Totals()
	assert.Equal(t, "100.00", totals.TotalWithoutInsurance.StringFixed(2))
	assert.True(t, totals.TotalWithInsurance.IsZero())
}
