package debtorimport

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BillStatusPending is the status every imported bill starts with.
const BillStatusPending = "pending"

// Bill is an internal bill created from an accepted import row.
type Bill struct {
	ID             string
	ProjectID      string
	UnitID         string
	BillNumber     string
	CommonFee      decimal.Decimal
	WaterFee       decimal.Decimal
	ElectricityFee decimal.Decimal
	OtherFee       decimal.Decimal
	Total          decimal.Decimal
	Category       Category
	Status         string
	Reference      string
	CreatedAt      time.Time
	DueDate        time.Time
}

// NewImportedBill builds a pending bill with the amount placed in the bucket
// of the given category. CreatedAt is backdated to the bill date.
func NewImportedBill(id, projectID, unitID, billNumber string, category Category, amount decimal.Decimal, billDate, dueDate time.Time, reference string) (*Bill, error) {
	if id == "" {
		return nil, errors.New("bill: empty id")
	}
	if projectID == "" {
		return nil, ErrEmptyProjectID
	}
	if unitID == "" {
		return nil, errors.New("bill: empty unit id")
	}
	if billNumber == "" {
		return nil, errors.New("bill: empty bill number")
	}
	if billDate.IsZero() || dueDate.IsZero() {
		return nil, errors.New("bill: missing dates")
	}
	bill := &Bill{
		ID:             id,
		ProjectID:      projectID,
		UnitID:         unitID,
		BillNumber:     billNumber,
		CommonFee:      decimal.Zero,
		WaterFee:       decimal.Zero,
		ElectricityFee: decimal.Zero,
		OtherFee:       decimal.Zero,
		Total:          amount,
		Category:       category,
		Status:         BillStatusPending,
		Reference:      reference,
		CreatedAt:      DayOf(billDate),
		DueDate:        DayOf(dueDate),
	}
	switch category.Bucket() {
	case BucketWater:
		bill.WaterFee = amount
	case BucketElectricity:
		bill.ElectricityFee = amount
	case BucketCommon:
		bill.CommonFee = amount
	default:
		bill.OtherFee = amount
	}
	return bill, nil
}

// BucketSum returns the sum of the four fee buckets.
func (b *Bill) BucketSum() decimal.Decimal {
	return b.CommonFee.Add(b.WaterFee).Add(b.ElectricityFee).Add(b.OtherFee)
}
