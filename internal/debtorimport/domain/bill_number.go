package debtorimport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const billNumberPrefix = "BILL-"

// BillPeriod is the year-month a synthesized bill number belongs to.
type BillPeriod string

// NewBillPeriod builds the period key (yyyymm) for a bill date.
func NewBillPeriod(billDate time.Time) (BillPeriod, error) {
	if billDate.IsZero() {
		return "", errors.New("bill number: zero bill date")
	}
	return BillPeriod(billDate.UTC().Format("200601")), nil
}

// String returns the raw key.
func (p BillPeriod) String() string { return string(p) }

// Prefix returns the bill number prefix shared by the period, e.g. "BILL-202601-".
func (p BillPeriod) Prefix() string { return billNumberPrefix + string(p) + "-" }

// FormatBillNumber renders BILL-{yyyymm}-{seq:03}.
func FormatBillNumber(period BillPeriod, seq int) string {
	return fmt.Sprintf("%s%03d", period.Prefix(), seq)
}

// IsSynthesizedBillNumber reports whether a bill number carries the BILL-
// prefix of synthesized numbers. Only those are unique per project; invoice
// numbers are kept verbatim and may repeat across units and dates.
func IsSynthesizedBillNumber(billNumber string) bool {
	return strings.HasPrefix(billNumber, billNumberPrefix)
}

// ParseBillSequence extracts the sequence from a synthesized bill number of the
// given period. ok is false for numbers that do not follow the pattern.
func ParseBillSequence(period BillPeriod, billNumber string) (int, bool) {
	rest, found := strings.CutPrefix(billNumber, period.Prefix())
	if !found || rest == "" {
		return 0, false
	}
	seq, err := strconv.Atoi(rest)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
