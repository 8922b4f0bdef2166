// Package epd defines the data model shared by every EPD (unified utility
// payment document) parsing strategy.
package epd

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Strategy names reported on parsed documents.
const (
	StrategyTable  = "table"
	StrategyVision = "vision"
)

// Parser turns a PDF on disk into a Document. The deterministic table parser
// and the vision-model parser both implement it; callers pick which to run.
type Parser interface {
	Name() string
	Parse(ctx context.Context, pdfPath string) (*Document, error)
}

// ServiceCharge is one line item of a bill.
type ServiceCharge struct {
	ServiceName    string           `json:"service_name"`
	Category       string           `json:"category,omitempty"`
	Volume         *decimal.Decimal `json:"volume"`
	Unit           string           `json:"unit,omitempty"`
	Tariff         *decimal.Decimal `json:"tariff"`
	Amount         decimal.Decimal  `json:"amount"`
	AmountByTariff *decimal.Decimal `json:"amount_by_tariff,omitempty"`
	Recalculation  decimal.Decimal  `json:"recalculation"`
	Debt           decimal.Decimal  `json:"debt"`
	Paid           decimal.Decimal  `json:"paid"`
	// Total is copied from the document's own total column and never recomputed.
	Total decimal.Decimal `json:"total"`
	Order int             `json:"order"`
}

// Recalculation is an adjustment entry from the secondary recalculation table.
type Recalculation struct {
	ServiceName string          `json:"service_name"`
	Reason      string          `json:"reason"`
	Amount      decimal.Decimal `json:"amount"`
	Order       int             `json:"order"`
}

// Header holds the identity and period fields of a bill.
type Header struct {
	AccountNumber string     `json:"account_number"`
	FullName      string     `json:"full_name"`
	Address       string     `json:"address"`
	PaymentPeriod string     `json:"payment_period"`
	DueDate       *time.Time `json:"due_date"`
}

// Totals are the document-level amounts due.
type Totals struct {
	TotalWithoutInsurance decimal.Decimal `json:"total_without_insurance"`
	TotalWithInsurance    decimal.Decimal `json:"total_with_insurance"`
	InsuranceAmount       decimal.Decimal `json:"insurance_amount"`
}

// ParseWarning records a problem that was recovered from locally.
type ParseWarning struct {
	Kind    string `json:"kind"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	RawData string `json:"raw_data,omitempty"`
}

// Warning kinds, used as metric labels.
const (
	WarningSkippedRow    = "skipped_row"
	WarningBadAmount     = "bad_amount"
	WarningDegradedTable = "degraded_table"
)

// Document is one parsed EPD.
type Document struct {
	ID             uuid.UUID       `json:"id"`
	Header         Header          `json:"personal_info"`
	Totals         Totals          `json:"totals"`
	Services       []ServiceCharge `json:"services"`
	Recalculations []Recalculation `json:"recalculations"`
	Strategy       string          `json:"strategy"`
	Warnings       []ParseWarning  `json:"warnings,omitempty"`
	SourceFileID   *uuid.UUID      `json:"source_file_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ServicesByCategory groups services by category, preserving order within
// each group. Services without a category are grouped under "".
func (d *Document) ServicesByCategory() map[string][]ServiceCharge {
	out := make(map[string][]ServiceCharge)
	for _, s := range d.Services {
		out[s.Category] = append(out[s.Category], s)
	}
	return out
}

// ServicesTotal sums the per-service totals. It is informational only; the
// document totals always come from the bill itself.
func (d *Document) ServicesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range d.Services {
		sum = sum.Add(s.Total)
	}
	return sum
}

// Renumber assigns 1-based orders to services and recalculations.
func (d *Document) Renumber() {
	for i := range d.Services {
		d.Services[i].Order = i + 1
	}
	for i := range d.Recalculations {
		d.Recalculations[i].Order = i + 1
	}
}
