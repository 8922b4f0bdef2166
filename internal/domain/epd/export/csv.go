// Package export renders parsed documents as CSV, XLSX and plain text.
package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
)

// ServiceRow is one CSV line. Amounts are plain decimal strings.
type ServiceRow struct {
	AccountNumber  string `csv:"account_number"`
	PaymentPeriod  string `csv:"payment_period"`
	Order          int    `csv:"order"`
	Category       string `csv:"category"`
	ServiceName    string `csv:"service_name"`
	Volume         string `csv:"volume"`
	Unit           string `csv:"unit"`
	Tariff         string `csv:"tariff"`
	Amount         string `csv:"amount"`
	AmountByTariff string `csv:"amount_by_tariff"`
	Recalculation  string `csv:"recalculation"`
	Debt           string `csv:"debt"`
	Paid           string `csv:"paid"`
	Total          string `csv:"total"`
}

// ServiceRows flattens the document's services.
func ServiceRows(doc *epd.Document) []ServiceRow {
	rows := make([]ServiceRow, 0, len(doc.Services))
	for _, s := range doc.Services {
		rows = append(rows, ServiceRow{
			AccountNumber:  doc.Header.AccountNumber,
			PaymentPeriod:  doc.Header.PaymentPeriod,
			Order:          s.Order,
			Category:       s.Category,
			ServiceName:    s.ServiceName,
			Volume:         optional(s.Volume),
			Unit:           s.Unit,
			Tariff:         optional(s.Tariff),
			Amount:         s.Amount.StringFixed(2),
			AmountByTariff: optional(s.AmountByTariff),
			Recalculation:  s.Recalculation.StringFixed(2),
			Debt:           s.Debt.StringFixed(2),
			Paid:           s.Paid.StringFixed(2),
			Total:          s.Total.StringFixed(2),
		})
	}
	return rows
}

// WriteCSV writes one line per service with a header row.
func WriteCSV(w io.Writer, doc *epd.Document) error {
	rows := ServiceRows(doc)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}
	return nil
}

func optional(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
