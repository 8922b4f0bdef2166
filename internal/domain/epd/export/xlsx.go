package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
)

// Sheet names of the XLSX export.
const (
	SheetServices       = "Услуги"
	SheetRecalculations = "Перерасчеты"
	SheetTotals         = "Итого"
)

// built-in "#,##0.00"
const moneyNumFmt = 4

var (
	serviceHeaders = []interface{}{
		"№", "Категория", "Услуга", "Объем", "Ед. изм.", "Тариф",
		"Начислено", "Начислено по тарифу", "Перерасчет", "Задолженность", "Оплачено", "Итого",
	}
	recalculationHeaders = []interface{}{"№", "Услуга", "Основание", "Сумма"}
)

// WriteXLSX writes a workbook with services, recalculations and totals sheets.
func WriteXLSX(w io.Writer, doc *epd.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetServices); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetRecalculations, SheetTotals} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeServices(f, doc, headerStyle, moneyStyle); err != nil {
		return err
	}
	if err := writeRecalculations(f, doc, headerStyle, moneyStyle); err != nil {
		return err
	}
	if err := writeTotals(f, doc, headerStyle, moneyStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeServices(f *excelize.File, doc *epd.Document, headerStyle, moneyStyle int) error {
	if err := writeRow(f, SheetServices, 1, serviceHeaders); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetServices, "A1", "L1", headerStyle); err != nil {
		return err
	}

	for i, s := range doc.Services {
		row := []interface{}{
			s.Order, s.Category, s.ServiceName, cellOptional(s.Volume), s.Unit, cellOptional(s.Tariff),
			cellAmount(s.Amount), cellOptional(s.AmountByTariff), cellAmount(s.Recalculation),
			cellAmount(s.Debt), cellAmount(s.Paid), cellAmount(s.Total),
		}
		if err := writeRow(f, SheetServices, i+2, row); err != nil {
			return err
		}
	}

	if n := len(doc.Services); n > 0 {
		last, _ := excelize.CoordinatesToCellName(12, n+1)
		if err := f.SetCellStyle(SheetServices, "G2", last, moneyStyle); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetServices, "B", "C", 36); err != nil {
		return err
	}
	return f.SetColWidth(SheetServices, "D", "L", 14)
}

func writeRecalculations(f *excelize.File, doc *epd.Document, headerStyle, moneyStyle int) error {
	if err := writeRow(f, SheetRecalculations, 1, recalculationHeaders); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetRecalculations, "A1", "D1", headerStyle); err != nil {
		return err
	}

	for i, rc := range doc.Recalculations {
		row := []interface{}{rc.Order, rc.ServiceName, rc.Reason, cellAmount(rc.Amount)}
		if err := writeRow(f, SheetRecalculations, i+2, row); err != nil {
			return err
		}
	}

	if n := len(doc.Recalculations); n > 0 {
		last, _ := excelize.CoordinatesToCellName(4, n+1)
		if err := f.SetCellStyle(SheetRecalculations, "D2", last, moneyStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetRecalculations, "B", "C", 40)
}

func writeTotals(f *excelize.File, doc *epd.Document, headerStyle, moneyStyle int) error {
	dueDate := ""
	if doc.Header.DueDate != nil {
		dueDate = doc.Header.DueDate.Format(epd.DateLayout)
	}

	rows := [][]interface{}{
		{"Лицевой счет", doc.Header.AccountNumber},
		{"ФИО", doc.Header.FullName},
		{"Адрес", doc.Header.Address},
		{"Период", doc.Header.PaymentPeriod},
		{"Оплатить до", dueDate},
		{"Итого к оплате без страхования", cellAmount(doc.Totals.TotalWithoutInsurance)},
		{"Итого к оплате со страхованием", cellAmount(doc.Totals.TotalWithInsurance)},
		{"Добровольное страхование", cellAmount(doc.Totals.InsuranceAmount)},
	}
	for i, row := range rows {
		if err := writeRow(f, SheetTotals, i+1, row); err != nil {
			return err
		}
	}

	if err := f.SetCellStyle(SheetTotals, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetTotals, "B6", "B8", moneyStyle); err != nil {
		return err
	}
	return f.SetColWidth(SheetTotals, "A", "B", 36)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// Cells hold floats so spreadsheets can sum them; decimals stay exact in
// the JSON and CSV outputs.
func cellAmount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func cellOptional(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}
