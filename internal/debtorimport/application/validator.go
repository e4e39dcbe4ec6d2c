package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

const dateKeyLayout = "2006-01-02"

// Validator checks a batch before anything is written.
type Validator struct {
	bills     BillStore
	tolerance decimal.Decimal
	maxRows   int
}

// NewValidator constructs a validator. maxRows <= 0 disables the row limit.
func NewValidator(bills BillStore, tolerance float64, maxRows int) (*Validator, error) {
	if bills == nil {
		return nil, errors.New("validator: nil bill store")
	}
	if tolerance < 0 {
		return nil, errors.New("validator: negative tolerance")
	}
	return &Validator{bills: bills, tolerance: decimal.NewFromFloat(tolerance), maxRows: maxRows}, nil
}

type checkedRow struct {
	row    debtorimport.ImportRow
	unitID string
	ok     bool
}

// Validate runs the intra-batch checks, then, when every unit resolved, the
// cross-check against persisted bills. The returned error is reserved for
// store failures; validation findings live in the report.
func (v *Validator) Validate(ctx context.Context, projectID string, rows []debtorimport.ImportRow, index *UnitIndex) (debtorimport.ValidationReport, error) {
	report := debtorimport.ValidationReport{Valid: true}
	fail := func(row debtorimport.ImportRow, cause error, detail string) {
		report.Valid = false
		report.Errors = append(report.Errors, formatRowIssue(row, cause, detail))
	}

	if len(rows) == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, debtorimport.ErrEmptyBatch.Error())
		return report, nil
	}
	if v.maxRows > 0 && len(rows) > v.maxRows {
		report.Valid = false
		report.Errors = append(report.Errors, fmt.Sprintf("%v: %d rows exceeds limit %d", debtorimport.ErrTooManyRows, len(rows), v.maxRows))
		return report, nil
	}

	unmapped := make(map[string]struct{})
	checked := make([]checkedRow, 0, len(rows))
	keyRows := make(map[string][]debtorimport.ImportRow)
	var keyOrder []string

	for _, row := range rows {
		if missing := row.MissingFields(); len(missing) > 0 {
			fail(row, debtorimport.ErrMissingField, strings.Join(missing, ", "))
			checked = append(checked, checkedRow{row: row})
			continue
		}
		if !row.Amount.Decimal.IsPositive() {
			fail(row, debtorimport.ErrInvalidAmount, row.Amount.Decimal.String())
		}

		unitKey := "unmapped:" + debtorimport.NormalizeUnit(row.UnitNumber)
		unitID, resolved := index.Resolve(row.UnitNumber)
		if resolved {
			unitKey = unitID
		} else {
			unmapped[strings.TrimSpace(row.UnitNumber)] = struct{}{}
			fail(row, debtorimport.ErrUnmappedUnit, "")
		}
		checked = append(checked, checkedRow{row: row, unitID: unitID, ok: resolved})

		key := duplicateKey(unitKey, row)
		if _, seen := keyRows[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		keyRows[key] = append(keyRows[key], row)
	}

	for _, key := range keyOrder {
		group := keyRows[key]
		if len(group) < 2 {
			continue
		}
		for i, row := range group {
			fail(row, debtorimport.ErrDuplicateInBatch, fmt.Sprintf("shared with rows %s", rowNumbers(group, i)))
		}
	}

	if len(unmapped) > 0 {
		report.UnmappedUnits = make([]string, 0, len(unmapped))
		for unit := range unmapped {
			report.UnmappedUnits = append(report.UnmappedUnits, unit)
		}
		sort.Strings(report.UnmappedUnits)
		return report, nil
	}

	if err := v.checkPersisted(ctx, projectID, checked, fail); err != nil {
		return report, err
	}
	return report, nil
}

func (v *Validator) checkPersisted(ctx context.Context, projectID string, checked []checkedRow, fail func(debtorimport.ImportRow, error, string)) error {
	unitSet := make(map[string]struct{})
	dateSet := make(map[string]time.Time)
	for _, c := range checked {
		if !c.ok {
			continue
		}
		unitSet[c.unitID] = struct{}{}
		day := debtorimport.DayOf(c.row.BillDate)
		dateSet[day.Format(dateKeyLayout)] = day
	}
	if len(unitSet) == 0 {
		return nil
	}
	unitIDs := make([]string, 0, len(unitSet))
	for id := range unitSet {
		unitIDs = append(unitIDs, id)
	}
	sort.Strings(unitIDs)
	dates := make([]time.Time, 0, len(dateSet))
	for _, day := range dateSet {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	existing, err := v.bills.FindForUnitsOnDates(ctx, projectID, unitIDs, dates)
	if err != nil {
		return fmt.Errorf("validator: load existing bills: %w", err)
	}
	byUnitDay := make(map[string][]debtorimport.Bill)
	for _, bill := range existing {
		key := bill.UnitID + "|" + debtorimport.DayOf(bill.CreatedAt).Format(dateKeyLayout)
		byUnitDay[key] = append(byUnitDay[key], bill)
	}

	for _, c := range checked {
		if !c.ok {
			continue
		}
		key := c.unitID + "|" + debtorimport.DayOf(c.row.BillDate).Format(dateKeyLayout)
		for _, bill := range byUnitDay[key] {
			if c.row.HasInvoice() {
				if bill.BillNumber == strings.TrimSpace(c.row.InvoiceNumber) {
					fail(c.row, debtorimport.ErrDuplicateInStore, "bill "+bill.BillNumber)
					break
				}
				continue
			}
			if bill.Total.Sub(c.row.Amount.Decimal).Abs().LessThan(v.tolerance) {
				fail(c.row, debtorimport.ErrDuplicateInStore, fmt.Sprintf("bill %s amount %s", bill.BillNumber, bill.Total.StringFixed(2)))
				break
			}
		}
	}
	return nil
}

// duplicateKey identifies the real-world billing event a row stands for.
func duplicateKey(unitKey string, row debtorimport.ImportRow) string {
	date := debtorimport.DayOf(row.BillDate).Format(dateKeyLayout)
	if row.HasInvoice() {
		return strings.Join([]string{"invoice", unitKey, strings.TrimSpace(row.InvoiceNumber), date}, "|")
	}
	return strings.Join([]string{"service", unitKey, date, strings.TrimSpace(row.ServiceName), row.Amount.Decimal.String()}, "|")
}

func formatRowIssue(row debtorimport.ImportRow, cause error, detail string) string {
	unit := strings.TrimSpace(row.UnitNumber)
	msg := fmt.Sprintf("row %d", row.RowNumber)
	if unit != "" {
		msg += fmt.Sprintf(" (unit %s)", unit)
	}
	msg += ": " + cause.Error()
	if detail != "" {
		msg += ": " + detail
	}
	return msg
}

// rowNumbers lists the row numbers of the group except the one at position self.
func rowNumbers(group []debtorimport.ImportRow, self int) string {
	var parts []string
	for i, row := range group {
		if i == self {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d", row.RowNumber))
	}
	return strings.Join(parts, ", ")
}
