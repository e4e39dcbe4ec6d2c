package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

const uniqueViolation = "23505"

// BillStore persists imported bills.
type BillStore struct {
	db *sql.DB
}

// NewBillStore constructs a store.
func NewBillStore(db *sql.DB) *BillStore {
	return &BillStore{db: db}
}

// InsertBill inserts a bill. A taken synthesized bill number maps to
// debtorimport.ErrDuplicateBillNumber; invoice numbers may repeat.
func (s *BillStore) InsertBill(ctx context.Context, bill *debtorimport.Bill) error {
	if s == nil || s.db == nil {
		return errors.New("bill store: nil db")
	}
	if bill == nil {
		return errors.New("bill store: nil bill")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO bills (
	id, project_id, unit_id, bill_number, common_fee, water_fee, electricity_fee, other_fee,
	total, category, status, reference, created_at, due_date
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)`,
		bill.ID, bill.ProjectID, bill.UnitID, bill.BillNumber, bill.CommonFee, bill.WaterFee, bill.ElectricityFee, bill.OtherFee,
		bill.Total, string(bill.Category), bill.Status, bill.Reference, bill.CreatedAt.UTC(), bill.DueDate.UTC(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return debtorimport.ErrDuplicateBillNumber
	}
	return err
}

// DeleteBill removes a bill of the project.
func (s *BillStore) DeleteBill(ctx context.Context, projectID, billID string) error {
	if s == nil || s.db == nil {
		return errors.New("bill store: nil db")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM bills WHERE project_id = $1 AND id = $2`, projectID, billID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return debtorimport.ErrBillNotFound
	}
	return nil
}

// FindForUnitsOnDates returns bills of the given units created on any of the
// given days.
func (s *BillStore) FindForUnitsOnDates(ctx context.Context, projectID string, unitIDs []string, billDates []time.Time) ([]debtorimport.Bill, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("bill store: nil db")
	}
	if len(unitIDs) == 0 || len(billDates) == 0 {
		return nil, nil
	}
	days := make(map[time.Time]struct{}, len(billDates))
	from := debtorimport.DayOf(billDates[0])
	to := from
	for _, date := range billDates {
		day := debtorimport.DayOf(date)
		days[day] = struct{}{}
		if day.Before(from) {
			from = day
		}
		if day.After(to) {
			to = day
		}
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, project_id, unit_id, bill_number, common_fee, water_fee, electricity_fee, other_fee,
	total, category, status, reference, created_at, due_date
FROM bills
WHERE project_id = $1 AND unit_id = ANY($2) AND created_at >= $3 AND created_at < $4
ORDER BY bill_number ASC`, projectID, unitIDs, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []debtorimport.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		if _, ok := days[debtorimport.DayOf(bill.CreatedAt)]; !ok {
			continue
		}
		bills = append(bills, *bill)
	}
	return bills, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*debtorimport.Bill, error) {
	var bill debtorimport.Bill
	var category string
	err := row.Scan(
		&bill.ID,
		&bill.ProjectID,
		&bill.UnitID,
		&bill.BillNumber,
		&bill.CommonFee,
		&bill.WaterFee,
		&bill.ElectricityFee,
		&bill.OtherFee,
		&bill.Total,
		&category,
		&bill.Status,
		&bill.Reference,
		&bill.CreatedAt,
		&bill.DueDate,
	)
	if err != nil {
		return nil, err
	}
	bill.Category = debtorimport.Category(category)
	bill.CreatedAt = bill.CreatedAt.UTC()
	bill.DueDate = bill.DueDate.UTC()
	return &bill, nil
}
