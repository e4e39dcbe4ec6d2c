package debtorimport

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ImportRow is one externally supplied billing record.
type ImportRow struct {
	RowNumber     int
	InvoiceNumber string
	BillDate      time.Time
	DueDate       time.Time
	UnitNumber    string
	ItemCode      string
	ServiceName   string
	Description   string
	Amount        decimal.NullDecimal
}

// HasInvoice reports whether the row carries an external invoice number.
func (r ImportRow) HasInvoice() bool {
	return strings.TrimSpace(r.InvoiceNumber) != ""
}

// IsBlank reports whether a row carries no data at all, as trailing sheet
// rows often do.
func (r ImportRow) IsBlank() bool {
	return strings.TrimSpace(r.InvoiceNumber) == "" &&
		strings.TrimSpace(r.UnitNumber) == "" &&
		strings.TrimSpace(r.ItemCode) == "" &&
		strings.TrimSpace(r.ServiceName) == "" &&
		strings.TrimSpace(r.Description) == "" &&
		!r.Amount.Valid &&
		r.BillDate.IsZero() &&
		r.DueDate.IsZero()
}

// MissingFields lists required fields that are empty.
func (r ImportRow) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.UnitNumber) == "" {
		missing = append(missing, "unit_number")
	}
	if !r.Amount.Valid {
		missing = append(missing, "amount")
	}
	if r.BillDate.IsZero() {
		missing = append(missing, "bill_date")
	}
	if r.DueDate.IsZero() {
		missing = append(missing, "due_date")
	}
	return missing
}

// Reference builds the free-text reference stored on the bill.
func (r ImportRow) Reference() string {
	parts := make([]string, 0, 2)
	if code := strings.TrimSpace(r.ItemCode); code != "" {
		parts = append(parts, code)
	}
	if desc := strings.TrimSpace(r.Description); desc != "" {
		parts = append(parts, desc)
	}
	return strings.Join(parts, " - ")
}

// NormalizeUnit is the single unit-identifier normalization used for both
// building and querying the unit lookup table.
func NormalizeUnit(unitNumber string) string {
	return strings.ToLower(strings.TrimSpace(unitNumber))
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
