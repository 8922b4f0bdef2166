package epd

import (
	"github.com/shopspring/decimal"
)

// Output is the dictionary handed to persistence and web consumers.
type Output struct {
	PersonalInfo   OutputPersonalInfo         `json:"personal_info"`
	Totals         Totals                     `json:"totals"`
	Services       map[string][]ServiceCharge `json:"services"`
	ServicesFlat   []ServiceCharge            `json:"services_flat"`
	Recalculations []Recalculation            `json:"recalculations"`
}

// OutputPersonalInfo renders the due date as DD.MM.YYYY.
type OutputPersonalInfo struct {
	AccountNumber string `json:"account_number"`
	FullName      string `json:"full_name"`
	Address       string `json:"address"`
	PaymentPeriod string `json:"payment_period"`
	DueDate       string `json:"due_date,omitempty"`
}

// DateLayout is the Russian DD.MM.YYYY date format.
const DateLayout = "02.01.2006"

// Output converts the document into the consumer dictionary.
func (d *Document) Output() Output {
	info := OutputPersonalInfo{
		AccountNumber: d.Header.AccountNumber,
		FullName:      d.Header.FullName,
		Address:       d.Header.Address,
		PaymentPeriod: d.Header.PaymentPeriod,
	}
	if d.Header.DueDate != nil {
		info.DueDate = d.Header.DueDate.Format(DateLayout)
	}

	flat := d.Services
	if flat == nil {
		flat = []ServiceCharge{}
	}
	recalcs := d.Recalculations
	if recalcs == nil {
		recalcs = []Recalculation{}
	}

	return Output{
		PersonalInfo:   info,
		Totals:         d.Totals,
		Services:       d.ServicesByCategory(),
		ServicesFlat:   flat,
		Recalculations: recalcs,
	}
}

// InsuranceDifference returns with - without when both totals are known and
// fallback otherwise.
func InsuranceDifference(without, with, fallback decimal.Decimal) decimal.Decimal {
	if !without.IsZero() && !with.IsZero() {
		return with.Sub(without)
	}
	return fallback
}
