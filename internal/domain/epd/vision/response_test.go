package vision

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd/normalizer"
)

func TestDecodePage(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		services int
		total    string
		wantErr  bool
	}{
		{
			name:     "strict json",
			content:  `{"personal_info":{"account_number":"81234567"},"service_charges":[{"service_name":"ОТОПЛЕНИЕ","total":2520.5}],"totals":{"total_without_insurance":2520.5}}`,
			services: 1,
			total:    "2520.50",
		},
		{
			name:     "amounts as strings",
			content:  `{"service_charges":[{"service_name":"ВОДООТВЕДЕНИЕ","total":"1 243,09"}],"totals":{"total_without_insurance":"-1 243,09"}}`,
			services: 1,
			total:    "-1243.09",
		},
		{
			name:     "null amounts",
			content:  `{"service_charges":[{"service_name":"ГАЗ","total":null,"volume":null}],"totals":{"total_without_insurance":null}}`,
			services: 1,
			total:    "0.00",
		},
		{
			name: "hjson without quotes",
			content: `{
  personal_info: { account_number: "81234567" }
  totals: { total_without_insurance: 100 }
}`,
			total: "100.00",
		},
		{name: "empty object", content: `{}`, wantErr: true},
		{name: "blank", content: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := decodePage(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoData)
				return
			}
			require.NoError(t, err)
			assert.Len(t, page.ServiceCharges, tt.services)
			assert.Equal(t, tt.total, page.Totals.TotalWithoutInsurance.StringFixed(2))
		})
	}
}

func TestMergePages(t *testing.T) {
	first, err := decodePage(`{"personal_info":{"account_number":"81234567","period":""},"service_charges":[{"service_name":"ОТОПЛЕНИЕ","total":10}],"totals":{"total_without_insurance":90,"total_with_insurance":100}}`)
	require.NoError(t, err)
	second, err := decodePage(`{"personal_info":{"account_number":"00000000","period":"июль 2025"},"service_charges":[{"service_name":"отопление ","total":20},{"service_name":"ГАЗ","total":5}],"totals":{"total_without_insurance":95,"total_with_insurance":0}}`)
	require.NoError(t, err)

	merged := mergePages([]pageData{first, second})

	assert.Equal(t, "81234567", merged.PersonalInfo.AccountNumber)
	assert.Equal(t, "июль 2025", merged.PersonalInfo.Period)
	require.Len(t, merged.ServiceCharges, 2)
	assert.Equal(t, "10.00", merged.ServiceCharges[0].Total.StringFixed(2))
	assert.Equal(t, "ГАЗ", merged.ServiceCharges[1].ServiceName)
	assert.Equal(t, "95.00", merged.Totals.TotalWithoutInsurance.StringFixed(2))
	assert.Equal(t, "100.00", merged.Totals.TotalWithInsurance.StringFixed(2))
}

func TestDecodePage_ServiceValues(t *testing.T) {
	page, err := decodePage(`{"service_charges":[{
		"service_name":"ГОРЯЧЕЕ В/С (ЭНЕРГИЯ)",
		"volume":"0,0312",
		"tariff":2580.4632,
		"recalculations":"Уменьшение 50,00",
		"debt":"0,00\n1 243,09",
		"paid":"120,50",
		"total":80.51
	}]}`)
	require.NoError(t, err)
	require.Len(t, page.ServiceCharges, 1)
	s := page.ServiceCharges[0]

	tests := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"volume keeps four places", s.Volume.Decimal, "0.0312"},
		{"tariff keeps four places", s.Tariff.Decimal, "2580.4632"},
		{"keyword makes recalculation negative", s.Recalculations.signed(normalizer.ColumnRecalculation), "-50"},
		{"stacked debt alternates", s.Debt.signed(normalizer.ColumnDebt), "-1243.09"},
		{"plain text paid", s.Paid.signed(normalizer.ColumnPaid), "120.5"},
		{"number total", s.Total.Decimal, "80.51"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := decimal.RequireFromString(tt.want)
			assert.Truef(t, want.Equal(tt.got), "want %s, got %s", want, tt.got)
		})
	}
}
