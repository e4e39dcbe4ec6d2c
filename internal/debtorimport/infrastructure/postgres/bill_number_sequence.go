package postgres

import (
	"context"
	"database/sql"
	"errors"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// BillNumberSequence allocates bill sequences with a single upsert. The row
// is seeded from, and never falls behind, the highest bill number already
// stored for the period.
type BillNumberSequence struct {
	db *sql.DB
}

// NewBillNumberSequence constructs a sequence.
func NewBillNumberSequence(db *sql.DB) *BillNumberSequence {
	return &BillNumberSequence{db: db}
}

// Next returns the next sequence for the project and period.
func (s *BillNumberSequence) Next(ctx context.Context, projectID string, period debtorimport.BillPeriod) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("bill number sequence: nil db")
	}
	if projectID == "" {
		return 0, debtorimport.ErrEmptyProjectID
	}
	var next int
	err := s.db.QueryRowContext(ctx, `
INSERT INTO bill_number_sequences (project_id, period, last_value, updated_at)
VALUES (
	$1, $2,
	(SELECT COALESCE(MAX(CAST(SUBSTRING(bill_number FROM char_length($3::text) + 1) AS INTEGER)), 0)
	 FROM bills
	 WHERE project_id = $1 AND bill_number ~ ('^' || $3::text || '[0-9]+$')) + 1,
	NOW()
)
ON CONFLICT (project_id, period)
DO UPDATE SET last_value = GREATEST(bill_number_sequences.last_value + 1, EXCLUDED.last_value), updated_at = NOW()
RETURNING last_value`, projectID, period.String(), period.Prefix()).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}
