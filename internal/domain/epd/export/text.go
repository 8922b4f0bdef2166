package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/pkg/money"
)

// WriteText writes a human-readable summary with amounts in roubles.
func WriteText(w io.Writer, doc *epd.Document) error {
	h := doc.Header
	fmt.Fprintf(w, "Лицевой счет: %s\n", h.AccountNumber)
	if h.FullName != "" {
		fmt.Fprintf(w, "ФИО: %s\n", h.FullName)
	}
	if h.Address != "" {
		fmt.Fprintf(w, "Адрес: %s\n", h.Address)
	}
	if h.PaymentPeriod != "" {
		fmt.Fprintf(w, "Период: %s\n", h.PaymentPeriod)
	}
	if h.DueDate != nil {
		fmt.Fprintf(w, "Оплатить до: %s\n", h.DueDate.Format(epd.DateLayout))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "№\tУслуга\tНачислено\tПерерасчет\tДолг\tОплачено\tИтого\t")
	for _, s := range doc.Services {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Order,
			s.ServiceName,
			money.NewFromDecimal(s.Amount).Display(),
			money.NewFromDecimal(s.Recalculation).Display(),
			money.NewFromDecimal(s.Debt).Display(),
			money.NewFromDecimal(s.Paid).Display(),
			money.NewFromDecimal(s.Total).Display(),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(doc.Recalculations) > 0 {
		fmt.Fprintln(w, "\nПерерасчеты:")
		for _, rc := range doc.Recalculations {
			fmt.Fprintf(w, "  %s (%s): %s\n", rc.ServiceName, rc.Reason, money.NewFromDecimal(rc.Amount).Display())
		}
	}

	t := doc.Totals
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Итого без страхования: %s\n", money.NewFromDecimal(t.TotalWithoutInsurance).Display())
	fmt.Fprintf(w, "Итого со страхованием: %s\n", money.NewFromDecimal(t.TotalWithInsurance).Display())
	_, err := fmt.Fprintf(w, "Страхование: %s\n", money.NewFromDecimal(t.InsuranceAmount).Display())
	return err
}
