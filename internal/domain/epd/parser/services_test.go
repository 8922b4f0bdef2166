package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/extractor"
)

func newTestRowParser() *RowParser {
	return NewRowParser(DefaultVocabulary(), nil)
}

func TestRowParser_ParseServices(t *testing.T) {
	res := newTestRowParser().ParseServices(serviceTable())

	require.Len(t, res.Services, 5)
	assert.Empty(t, res.Warnings)

	names := make([]string, len(res.Services))
	for i, s := range res.Services {
		names[i] = s.ServiceName
		assert.Equal(t, i+1, s.Order)
	}
	assert.Equal(t, []string{
		"СОДЕРЖАНИЕ Ж/Ф",
		"ВОДООТВЕДЕНИЕ ОДН",
		"ГОРЯЧЕЕ В/С (НОСИТЕЛЬ) ОДН",
		"ОТОПЛЕНИЕ",
		"ЗАПИРАЮЩЕЕ УСТРОЙСТВО",
	}, names)

	t.Run("housing row", func(t *testing.T) {
		s := res.Services[0]
		assert.Equal(t, "Начисления за жилищные услуги", s.Category)
		require.NotNil(t, s.Volume)
		assert.Equal(t, "54.30", s.Volume.StringFixed(2))
		assert.Equal(t, "кв.м.", s.Unit)
		require.NotNil(t, s.Tariff)
		assert.Equal(t, "32.15", s.Tariff.StringFixed(2))
		assert.Equal(t, "1745.75", s.Amount.StringFixed(2))
		assert.Equal(t, "1745.75", s.Paid.StringFixed(2))
		assert.Equal(t, "1745.75", s.Total.StringFixed(2))
		assert.Nil(t, s.AmountByTariff)
	})

	t.Run("stacked values alternate sign", func(t *testing.T) {
		s := res.Services[1]
		assert.Equal(t, "Начисления за коммунальные услуги", s.Category)
		assert.Equal(t, "-1243.09", s.Recalculation.StringFixed(2))
		assert.Equal(t, "-1243.09", s.Debt.StringFixed(2))
		assert.Equal(t, "40.06", s.Tariff.StringFixed(2))
		assert.Equal(t, "0.00", s.Total.StringFixed(2))
	})

	t.Run("keyword makes recalculation positive", func(t *testing.T) {
		s := res.Services[3]
		assert.Equal(t, "150.00", s.Recalculation.StringFixed(2))
		// total is copied, not recomputed from amount, recalculation and paid
		assert.Equal(t, "2670.00", s.Total.StringFixed(2))
	})

	t.Run("empty optional cells", func(t *testing.T) {
		s := res.Services[4]
		assert.Equal(t, "Начисления за иные услуги", s.Category)
		assert.Nil(t, s.Volume)
		assert.Nil(t, s.Tariff)
		assert.Empty(t, s.Unit)
		assert.Equal(t, "40.00", s.Total.StringFixed(2))
	})

	t.Run("totals", func(t *testing.T) {
		totals := res.Totals.Totals()
		assert.Equal(t, "4569.35", totals.TotalWithoutInsurance.StringFixed(2))
		assert.Equal(t, "4629.35", totals.TotalWithInsurance.StringFixed(2))
		assert.Equal(t, "60.00", totals.InsuranceAmount.StringFixed(2))
	})
}

func TestRowParser_ParseServicesIsIdempotent(t *testing.T) {
	p := newTestRowParser()

	first := p.ParseServices(serviceTable())
	second := p.ParseServices(serviceTable())

	assert.Equal(t, first, second)
}

func TestRowParser_ScenarioRowWithoutHeader(t *testing.T) {
	table := extractor.Table{
		{"Начисления за коммунальные услуги", "", "", "", "", "", "", "", ""},
		{"ВОДООТВЕДЕНИЕ ОДН", "0.00", "куб.м.", "40.06", "0.00", "0,00\n1 243,09", "0,00\n1 243,09", "0.00", "0.00"},
	}

	res := newTestRowParser().ParseServices(table)
	require.Len(t, res.Services, 1)

	s := res.Services[0]
	assert.Equal(t, "ВОДООТВЕДЕНИЕ ОДН", s.ServiceName)
	assert.Equal(t, "-1243.09", s.Recalculation.StringFixed(2))
	assert.Equal(t, "-1243.09", s.Debt.StringFixed(2))
	assert.Equal(t, "0.00", s.Paid.StringFixed(2))
}

func TestRowParser_TenColumnLayout(t *testing.T) {
	table := extractor.Table{
		{"Начисления за коммунальные услуги"},
		{"ОТОПЛЕНИЕ", "1,20", "Гкал", "2 100,00", "2 520,00", "2 400,00", "0,00", "0,00", "2 400,00", "2 400,00"},
	}

	res := newTestRowParser().ParseServices(table)
	require.Len(t, res.Services, 1)

	s := res.Services[0]
	require.NotNil(t, s.AmountByTariff)
	assert.Equal(t, "2520.00", s.AmountByTariff.StringFixed(2))
	assert.Equal(t, "2400.00", s.Amount.StringFixed(2))
	assert.Equal(t, "2400.00", s.Paid.StringFixed(2))
	assert.Equal(t, "2400.00", s.Total.StringFixed(2))
}

func TestRowParser_TwoRowHeader(t *testing.T) {
	table := extractor.Table{
		{"Виды услуг", "Объем", "Ед. изм.", "Тариф", "Начислено", "Перерасчеты", "Задолженность", "Оплачено", ""},
		{"", "", "", "руб./ед.", "по тарифу", "", "", "", "Итого"},
		{"Начисления за жилищные услуги", "", "", "", "", "", "", "", ""},
		{"СОДЕРЖАНИЕ Ж/Ф", "54,30", "кв.м.", "32,15", "1 745,75", "0,00", "0,00", "0,00", "1 745,75"},
	}

	res := newTestRowParser().ParseServices(table)
	require.Len(t, res.Services, 1)

	s := res.Services[0]
	assert.Equal(t, "1745.75", s.Amount.StringFixed(2))
	assert.Equal(t, "1745.75", s.Total.StringFixed(2))
	assert.Equal(t, "32.15", s.Tariff.StringFixed(2))
}

func TestRowParser_RecoveredRows(t *testing.T) {
	table := extractor.Table{
		{"СТРОКА ДО РАЗДЕЛА", "1,00", "", "", "1,00", "", "", "", "1,00"},
		serviceHeader,
		{"Начисления за коммунальные услуги", "", "", "", "", "", "", "", ""},
		{"ОТОПЛЕНИЕ", "2 520,00"},
		{"ХОЛОДНОЕ В/С", "5,00", "куб.м.", "40,00", "н/д", "", "", "", "200,00"},
	}

	res := newTestRowParser().ParseServices(table)

	require.Len(t, res.Services, 1)
	assert.Equal(t, "ХОЛОДНОЕ В/С", res.Services[0].ServiceName)
	assert.True(t, res.Services[0].Amount.IsZero())
	assert.Equal(t, "200.00", res.Services[0].Total.StringFixed(2))

	require.Len(t, res.Warnings, 3)
	assert.Equal(t, epd.WarningSkippedRow, res.Warnings[0].Kind)
	assert.Equal(t, 1, res.Warnings[0].Row)
	assert.Equal(t, "row outside any category", res.Warnings[0].Message)

	assert.Equal(t, epd.WarningSkippedRow, res.Warnings[1].Kind)
	assert.Equal(t, "row too short", res.Warnings[1].Message)

	assert.Equal(t, epd.WarningBadAmount, res.Warnings[2].Kind)
	assert.Equal(t, string(FieldAmount), res.Warnings[2].Column)
	assert.Equal(t, "н/д", res.Warnings[2].RawData)
}

func TestRowParser_PendingNameResetsOnCategory(t *testing.T) {
	table := extractor.Table{
		{"Начисления за жилищные услуги", "", "", "", "", "", "", "", ""},
		{"ХВОСТ СТРОКИ", "", "", "", "", "", "", "", ""},
		{"Начисления за коммунальные услуги", "", "", "", "", "", "", "", ""},
		{"ОТОПЛЕНИЕ", "1,20", "Гкал", "2 100,00", "2 520,00", "0,00", "0,00", "0,00", "2 520,00"},
	}

	res := newTestRowParser().ParseServices(table)
	require.Len(t, res.Services, 1)
	assert.Equal(t, "ОТОПЛЕНИЕ", res.Services[0].ServiceName)
}

func TestRowParser_WrappedNameTail(t *testing.T) {
	tests := []struct {
		name  string
		table extractor.Table
		want  []string
	}{
		{
			name: "unknown tail joins the previous service",
			table: extractor.Table{
				{"Начисления за коммунальные услуги", "", "", "", "", "", "", "", ""},
				{"ГОРЯЧЕЕ В/С ДЛЯ", "0,12", "куб.м.", "35,50", "4,26", "0,00", "0,00", "4,26", "4,26"},
				{"СОДЕРЖАНИЯ ОИ", "", "", "", "", "", "", "", ""},
				{"ОТОПЛЕНИЕ", "1,20", "Гкал", "2 100,00", "2 520,00", "0,00", "0,00", "2 520,00", "2 520,00"},
			},
			want: []string{"ГОРЯЧЕЕ В/С ДЛЯ СОДЕРЖАНИЯ ОИ", "ОТОПЛЕНИЕ"},
		},
		{
			name: "multi-line tail",
			table: extractor.Table{
				{"Начисления за коммунальные услуги", "", "", "", "", "", "", "", ""},
				{"ЭЛЕКТРОЭНЕРГИЯ", "12,00", "кВт.ч", "6,43", "77,16", "0,00", "0,00", "77,16", "77,16"},
				{"ДЛЯ СОДЕРЖАНИЯ", "", "", "", "", "", "", "", ""},
				{"ОБЩЕГО ИМУЩЕСТВА", "", "", "", "", "", "", "", ""},
			},
			want: []string{"ЭЛЕКТРОЭНЕРГИЯ ДЛЯ СОДЕРЖАНИЯ ОБЩЕГО ИМУЩЕСТВА"},
		},
		{
			name: "known leading words start the next service",
			table: extractor.Table{
				{"Начисления за коммунальные услуги", "", "", "", "", "", "", "", ""},
				{"ВОДООТВЕДЕНИЕ", "3,00", "куб.м.", "30,00", "90,00", "0,00", "0,00", "90,00", "90,00"},
				{"ХОЛОДНОЕ В/С", "", "", "", "", "", "", "", ""},
				{"ОДН", "0,10", "куб.м.", "40,00", "4,00", "0,00", "0,00", "4,00", "4,00"},
			},
			want: []string{"ВОДООТВЕДЕНИЕ", "ХОЛОДНОЕ В/С ОДН"},
		},
		{
			name: "name before the first service is held",
			table: extractor.Table{
				{"Начисления за иные услуги", "", "", "", "", "", "", "", ""},
				{"ДОМОФОН И", "", "", "", "", "", "", "", ""},
				{"ВИДЕОНАБЛЮДЕНИЕ", "", "", "", "70,00", "", "", "", "70,00"},
			},
			want: []string{"ДОМОФОН И ВИДЕОНАБЛЮДЕНИЕ"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestRowParser().ParseServices(tt.table)

			names := make([]string, len(res.Services))
			for i, s := range res.Services {
				names[i] = s.ServiceName
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRowParser_VolumeAndTariffKeepPrecision(t *testing.T) {
	table := extractor.Table{
		{"Начисления за коммунальные услуги", "", "", "", "", "", "", "", ""},
		{"ГОРЯЧЕЕ В/С (ЭНЕРГИЯ)", "0,0312", "Гкал", "2 580,4632", "80,51", "0,00", "0,00", "80,51", "80,51"},
	}

	res := newTestRowParser().ParseServices(table)
	require.Len(t, res.Services, 1)

	s := res.Services[0]
	require.NotNil(t, s.Volume)
	assert.True(t, decimal.RequireFromString("0.0312").Equal(*s.Volume), "volume %s", s.Volume)
	require.NotNil(t, s.Tariff)
	assert.True(t, decimal.RequireFromString("2580.4632").Equal(*s.Tariff), "tariff %s", s.Tariff)
	assert.Equal(t, "80.51", s.Amount.StringFixed(2))
}
