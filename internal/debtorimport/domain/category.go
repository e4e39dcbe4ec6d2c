package debtorimport

// Category is the accounting category a service description maps to.
type Category string

const (
	CategoryWater       Category = "water"
	CategoryElectricity Category = "electricity"
	CategoryCommonFee   Category = "common_fee"
	CategoryFine        Category = "fine"
	CategoryInsurance   Category = "insurance"
	CategoryOther       Category = "other"
)

// ParseCategory validates a category name.
func ParseCategory(value string) (Category, bool) {
	switch Category(value) {
	case CategoryWater, CategoryElectricity, CategoryCommonFee, CategoryFine, CategoryInsurance, CategoryOther:
		return Category(value), true
	default:
		return "", false
	}
}

// Bucket is one of the four fee columns on a bill.
type Bucket string

const (
	BucketCommon      Bucket = "common"
	BucketWater       Bucket = "water"
	BucketElectricity Bucket = "electricity"
	BucketOther       Bucket = "other"
)

// Bucket returns the fee bucket that absorbs an amount of this category.
// Fines and insurance fold into other.
func (c Category) Bucket() Bucket {
	switch c {
	case CategoryWater:
		return BucketWater
	case CategoryElectricity:
		return BucketElectricity
	case CategoryCommonFee:
		return BucketCommon
	default:
		return BucketOther
	}
}
