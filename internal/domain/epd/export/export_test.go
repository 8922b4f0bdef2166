package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleDocument() *epd.Document {
	due := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	volume := dec("1.2")
	tariff := dec("2100")
	return &epd.Document{
		Header: epd.Header{
			AccountNumber: "81234567",
			FullName:      "Иванов Иван Иванович",
			PaymentPeriod: "июль 2025",
			DueDate:       &due,
		},
		Totals: epd.Totals{
			TotalWithoutInsurance: dec("4569.35"),
			TotalWithInsurance:    dec("4629.35"),
			InsuranceAmount:       dec("60"),
		},
		Services: []epd.ServiceCharge{
			{Order: 1, Category: "Начисления за коммунальные услуги", ServiceName: "ОТОПЛЕНИЕ",
				Volume: &volume, Unit: "Гкал", Tariff: &tariff, Amount: dec("2520"), Recalculation: dec("150"), Total: dec("2670")},
			{Order: 2, ServiceName: "ВОДООТВЕДЕНИЕ ОДН", Recalculation: dec("-1243.09"), Debt: dec("-1243.09")},
		},
		Recalculations: []epd.Recalculation{
			{Order: 1, ServiceName: "Горячее водоснабжение", Reason: "08.2025; Корректировка показаний", Amount: dec("-202.85")},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleDocument()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "account_number,payment_period,order,category,service_name"))

	var rows []ServiceRow
	require.NoError(t, gocsv.UnmarshalString(buf.String(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "ОТОПЛЕНИЕ", rows[0].ServiceName)
	assert.Equal(t, "1.2", rows[0].Volume)
	assert.Equal(t, "2670.00", rows[0].Total)
	assert.Equal(t, "", rows[1].Volume)
	assert.Equal(t, "-1243.09", rows[1].Debt)
	assert.Equal(t, "81234567", rows[1].AccountNumber)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleDocument()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetServices, SheetRecalculations, SheetTotals}, f.GetSheetList())

	services, err := f.GetRows(SheetServices, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, services, 3)
	assert.Equal(t, "Услуга", services[0][2])
	assert.Equal(t, "ОТОПЛЕНИЕ", services[1][2])
	assert.Equal(t, "2670", services[1][11])
	assert.Equal(t, "-1243.09", services[2][8])

	recalcs, err := f.GetRows(SheetRecalculations, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, recalcs, 2)
	assert.Equal(t, "-202.85", recalcs[1][3])

	account, err := f.GetCellValue(SheetTotals, "B1")
	require.NoError(t, err)
	assert.Equal(t, "81234567", account)
	due, err := f.GetCellValue(SheetTotals, "B5")
	require.NoError(t, err)
	assert.Equal(t, "25.08.2025", due)
	insurance, err := f.GetCellValue(SheetTotals, "B8", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "60", insurance)
}

func TestWriteXLSX_EmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, &epd.Document{Header: epd.Header{AccountNumber: "81234567"}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetServices)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleDocument()))

	out := buf.String()
	assert.Contains(t, out, "Лицевой счет: 81234567")
	assert.Contains(t, out, "Оплатить до: 25.08.2025")
	assert.Contains(t, out, "ВОДООТВЕДЕНИЕ ОДН")
	assert.Contains(t, out, "-1 243,09 ₽")
	assert.Contains(t, out, "Горячее водоснабжение (08.2025; Корректировка показаний): -202,85 ₽")
	assert.Contains(t, out, "Итого без страхования: 4 569,35 ₽")
	assert.Contains(t, out, "Страхование: 60,00 ₽")
}
