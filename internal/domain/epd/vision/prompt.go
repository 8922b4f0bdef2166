package vision

import "fmt"

const extractionPrompt = `This is a Russian utility payment document (ЕПД, Единый платёжный документ).
Extract the following data and return it as one valid JSON object.

1. personal_info:
   - account_number: the personal account number (лицевой счет), digits only
   - full_name: the payer's full name
   - address: the full address
   - period: the billing period, e.g. "июль 2025"
   - due_date: the payment due date as DD.MM.YYYY

2. service_charges: an array with one object per service row:
   - service_name: the service name exactly as printed, e.g. "ВОДООТВЕДЕНИЕ ОДН"
   - category: the section heading the row belongs to, e.g. "Начисления за коммунальные услуги"
   - volume, unit, tariff
   - amount: the amount charged by tariff
   - recalculations: the recalculation amount, negative for a reduction
   - debt: the debt at the start of the period, negative for an overpayment
   - paid: the amount paid
   - total: the amount due for the service as printed in the "Итого" column

3. totals:
   - total_without_insurance: "Итого к оплате" without voluntary insurance
   - total_with_insurance: "Итого к оплате" with voluntary insurance

Rules:
- Extract every service row, including ОДН services.
- Numbers are JSON numbers. Use 0 for missing or empty values.
- Totals are the final amounts to pay, never intermediate "Всего за" sums.
- Return only the JSON object, without explanations.

Example:
{
  "personal_info": {
    "account_number": "81234567",
    "full_name": "Иванов Иван Иванович",
    "address": "ул. Примерная, д. 1, кв. 1",
    "period": "июль 2025",
    "due_date": "25.08.2025"
  },
  "service_charges": [
    {
      "service_name": "ВЗНОС НА КАП. РЕМОНТ",
      "category": "Начисления за жилищные услуги",
      "volume": 68.9,
      "unit": "кв.м.",
      "tariff": 22.0,
      "amount": 1515.8,
      "recalculations": 0,
      "debt": 1240.2,
      "paid": 1240.2,
      "total": 1515.8
    }
  ],
  "totals": {
    "total_without_insurance": 9584.28,
    "total_with_insurance": 9873.66
  }
}`

func pagePrompt(page, total int) string {
	return fmt.Sprintf("%s\n\nThis is page %d of %d of the document.", extractionPrompt, page, total)
}
