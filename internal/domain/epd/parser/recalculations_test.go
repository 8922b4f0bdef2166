package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd/extractor"
)

func TestRowParser_ParseRecalculations(t *testing.T) {
	recalcs := newTestRowParser().ParseRecalculations(recalculationTable())

	require.Len(t, recalcs, 2)

	assert.Equal(t, "Горячее водоснабжение", recalcs[0].ServiceName)
	assert.Equal(t, "08.2025; Корректировка показаний", recalcs[0].Reason)
	assert.Equal(t, "-202.85", recalcs[0].Amount.StringFixed(2))
	assert.Equal(t, 1, recalcs[0].Order)

	assert.Equal(t, "Отопление", recalcs[1].ServiceName)
	assert.Equal(t, "Доначисление", recalcs[1].Reason)
	assert.Equal(t, "150.00", recalcs[1].Amount.StringFixed(2))
	assert.Equal(t, 2, recalcs[1].Order)
}

func TestRowParser_ParseRecalculationsSkipsRows(t *testing.T) {
	table := extractor.Table{
		{"Вид услуги", "Сумма 2025"},
		{"Перерасчет за период", "10,00"},
		{"", "Итого по перерасчетам", "5,00"},
		{"12,00"},
		{"", "", ""},
		{"Водоотведение", "Корректировка", "\n30,00"},
	}

	recalcs := newTestRowParser().ParseRecalculations(table)

	require.Len(t, recalcs, 1)
	assert.Equal(t, "Водоотведение", recalcs[0].ServiceName)
	assert.Equal(t, "Корректировка", recalcs[0].Reason)
	assert.Equal(t, "30.00", recalcs[0].Amount.StringFixed(2))
	assert.Equal(t, 1, recalcs[0].Order)
}

func TestRowParser_ParseRecalculationsEmpty(t *testing.T) {
	assert.Empty(t, newTestRowParser().ParseRecalculations(nil))
}
