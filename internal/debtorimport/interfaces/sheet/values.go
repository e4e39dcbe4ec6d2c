package sheet

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Buddhist-era years are shifted by this offset.
const buddhistEraOffset = 543

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"2006/01/02",
	"02-01-2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate reads ISO dates, day-first dates, and Excel serial numbers.
// Buddhist-era years are converted.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if !(serial >= 1 && serial <= 2958465) {
			return time.Time{}, errors.New("serial date out of range")
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return dayUTC(t), nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.Year() > 2400 {
			t = t.AddDate(-buddhistEraOffset, 0, 0)
		}
		return dayUTC(t), nil
	}
	return time.Time{}, errors.New("unrecognized date")
}

// ParseAmount reads amounts with thousands separators, currency marks, and
// accounting-style parentheses.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	negative := false
	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		negative = true
		value = strings.TrimSuffix(strings.TrimPrefix(value, "("), ")")
	}
	value = strings.NewReplacer(",", "", "฿", "", "THB", "", "บาท", "", " ", "").Replace(value)
	if value == "" || value == "-" {
		return decimal.Decimal{}, errors.New("empty amount")
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

func dayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
