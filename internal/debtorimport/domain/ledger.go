package debtorimport

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one line of a double-entry pair.
type LedgerEntry struct {
	ID              string
	ProjectID       string
	BillID          string
	TransactionDate time.Time
	AccountCode     string
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	Description     string
}

// Accounts names the ledger accounts an imported bill posts to.
type Accounts struct {
	Receivable string
	Revenue    string
}

// NewPostingPair builds the balanced receivable/revenue pair for a bill.
// ids must hold exactly two entry ids: debit first, then credit.
func NewPostingPair(bill *Bill, accounts Accounts, ids [2]string, description string) ([2]LedgerEntry, error) {
	var pair [2]LedgerEntry
	if bill == nil {
		return pair, errors.New("ledger: nil bill")
	}
	if accounts.Receivable == "" || accounts.Revenue == "" {
		return pair, errors.New("ledger: account codes required")
	}
	if ids[0] == "" || ids[1] == "" {
		return pair, errors.New("ledger: empty entry id")
	}
	if !bill.Total.IsPositive() {
		return pair, fmt.Errorf("%w: bill total %s must be positive", ErrUnbalancedPosting, bill.Total.String())
	}
	pair[0] = LedgerEntry{
		ID:              ids[0],
		ProjectID:       bill.ProjectID,
		BillID:          bill.ID,
		TransactionDate: bill.CreatedAt,
		AccountCode:     accounts.Receivable,
		Debit:           bill.Total,
		Credit:          decimal.Zero,
		Description:     description,
	}
	pair[1] = LedgerEntry{
		ID:              ids[1],
		ProjectID:       bill.ProjectID,
		BillID:          bill.ID,
		TransactionDate: bill.CreatedAt,
		AccountCode:     accounts.Revenue,
		Debit:           decimal.Zero,
		Credit:          bill.Total,
		Description:     description,
	}
	if err := CheckBalanced(pair[:]); err != nil {
		return pair, err
	}
	return pair, nil
}

// CheckBalanced verifies debits equal credits and each line is one-sided.
func CheckBalanced(entries []LedgerEntry) error {
	debit := decimal.Zero
	credit := decimal.Zero
	for _, entry := range entries {
		if !entry.Debit.IsZero() && !entry.Credit.IsZero() {
			return fmt.Errorf("%w: entry %s has both debit and credit", ErrUnbalancedPosting, entry.ID)
		}
		debit = debit.Add(entry.Debit)
		credit = credit.Add(entry.Credit)
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s != credit %s", ErrUnbalancedPosting, debit.String(), credit.String())
	}
	return nil
}
