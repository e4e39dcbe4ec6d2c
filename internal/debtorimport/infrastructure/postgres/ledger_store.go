package postgres

import (
	"context"
	"database/sql"
	"errors"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// LedgerStore persists general-ledger lines.
type LedgerStore struct {
	db *sql.DB
}

// NewLedgerStore constructs a store.
func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// InsertEntries inserts the lines in one transaction.
func (s *LedgerStore) InsertEntries(ctx context.Context, entries []debtorimport.LedgerEntry) error {
	if s == nil || s.db == nil {
		return errors.New("ledger store: nil db")
	}
	if err := debtorimport.CheckBalanced(entries); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, `
INSERT INTO ledger_entries (
	id, project_id, bill_id, transaction_date, account_code, debit, credit, description
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			entry.ID, entry.ProjectID, entry.BillID, entry.TransactionDate.UTC(), entry.AccountCode,
			entry.Debit, entry.Credit, entry.Description)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DeleteEntries removes lines of the project by id.
func (s *LedgerStore) DeleteEntries(ctx context.Context, projectID string, entryIDs []string) error {
	if s == nil || s.db == nil {
		return errors.New("ledger store: nil db")
	}
	if len(entryIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE project_id = $1 AND id = ANY($2)`, projectID, entryIDs)
	return err
}

// ListByBill returns the lines of a bill, debit first.
func (s *LedgerStore) ListByBill(ctx context.Context, billID string) ([]debtorimport.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, project_id, bill_id, transaction_date, account_code, debit, credit, description
FROM ledger_entries
WHERE bill_id = $1
ORDER BY debit DESC, id ASC`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []debtorimport.LedgerEntry
	for rows.Next() {
		var entry debtorimport.LedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ProjectID,
			&entry.BillID,
			&entry.TransactionDate,
			&entry.AccountCode,
			&entry.Debit,
			&entry.Credit,
			&entry.Description,
		); err != nil {
			return nil, err
		}
		entry.TransactionDate = entry.TransactionDate.UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
