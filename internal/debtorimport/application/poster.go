package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
	"condo-backoffice/internal/saga"
)

// IDGenerator returns new unique ids for bills and ledger lines.
type IDGenerator func() string

// NewUUID is the default IDGenerator.
func NewUUID() string { return uuid.NewString() }

// Posting is what the poster wrote for one row.
type Posting struct {
	Bill    *debtorimport.Bill
	Entries [2]debtorimport.LedgerEntry
}

// EntryIDs returns the ids of the posted ledger lines.
func (p *Posting) EntryIDs() []string {
	return []string{p.Entries[0].ID, p.Entries[1].ID}
}

// Poster turns a validated row into a bill plus its balanced ledger pair.
type Poster struct {
	bills      BillStore
	ledger     LedgerStore
	sequence   BillNumberSequence
	classifier *Classifier
	accounts   debtorimport.Accounts
	newID      IDGenerator
}

// NewPoster constructs a poster.
func NewPoster(bills BillStore, ledger LedgerStore, sequence BillNumberSequence, classifier *Classifier, accounts debtorimport.Accounts, newID IDGenerator) (*Poster, error) {
	if bills == nil {
		return nil, errors.New("poster: nil bill store")
	}
	if ledger == nil {
		return nil, errors.New("poster: nil ledger store")
	}
	if sequence == nil {
		return nil, errors.New("poster: nil bill number sequence")
	}
	if classifier == nil {
		return nil, errors.New("poster: nil classifier")
	}
	if newID == nil {
		newID = NewUUID
	}
	return &Poster{
		bills:      bills,
		ledger:     ledger,
		sequence:   sequence,
		classifier: classifier,
		accounts:   accounts,
		newID:      newID,
	}, nil
}

// BillNumber reuses the invoice number or synthesizes BILL-{yyyymm}-{seq}.
func (p *Poster) BillNumber(ctx context.Context, projectID string, row debtorimport.ImportRow) (string, error) {
	if row.HasInvoice() {
		return strings.TrimSpace(row.InvoiceNumber), nil
	}
	period, err := debtorimport.NewBillPeriod(row.BillDate)
	if err != nil {
		return "", err
	}
	seq, err := p.sequence.Next(ctx, projectID, period)
	if err != nil {
		return "", err
	}
	return debtorimport.FormatBillNumber(period, seq), nil
}

// Post writes the bill and its ledger pair as one saga unit. When the ledger
// insert fails the bill is deleted again before Post returns, and nothing is
// added to the saga's log.
func (p *Poster) Post(ctx context.Context, sg *saga.Saga, projectID, unitID string, row debtorimport.ImportRow) (*Posting, error) {
	if sg == nil {
		return nil, errors.New("poster: nil saga")
	}
	billNumber, err := p.BillNumber(ctx, projectID, row)
	if err != nil {
		return nil, &debtorimport.PersistenceError{Op: "allocate bill number", Err: err}
	}

	category := p.classifier.Classify(row.ServiceName)
	bill, err := debtorimport.NewImportedBill(
		p.newID(),
		projectID,
		unitID,
		billNumber,
		category,
		row.Amount.Decimal,
		row.BillDate,
		row.DueDate,
		row.Reference(),
	)
	if err != nil {
		return nil, err
	}
	entries, err := debtorimport.NewPostingPair(bill, p.accounts, [2]string{p.newID(), p.newID()}, postingDescription(bill, row))
	if err != nil {
		return nil, err
	}
	posting := &Posting{Bill: bill, Entries: entries}

	err = sg.Execute(ctx,
		saga.Step{
			Name:       "insert bill " + bill.BillNumber,
			Action:     func(ctx context.Context) error { return p.bills.InsertBill(ctx, bill) },
			Compensate: func(ctx context.Context) error { return p.bills.DeleteBill(ctx, projectID, bill.ID) },
		},
		saga.Step{
			Name:   "post ledger " + bill.BillNumber,
			Action: func(ctx context.Context) error { return p.ledger.InsertEntries(ctx, entries[:]) },
			Compensate: func(ctx context.Context) error {
				return p.ledger.DeleteEntries(ctx, projectID, posting.EntryIDs())
			},
		},
	)
	if err != nil {
		return nil, &debtorimport.PersistenceError{Op: "post bill", BillNumber: bill.BillNumber, Err: err}
	}
	return posting, nil
}

// postingDescription keeps the classifier's category even when the amount
// folds into the other bucket.
func postingDescription(bill *debtorimport.Bill, row debtorimport.ImportRow) string {
	service := strings.TrimSpace(row.ServiceName)
	if service == "" {
		service = "outstanding balance"
	}
	return fmt.Sprintf("Imported %s: %s [%s]", bill.BillNumber, service, bill.Category)
}
