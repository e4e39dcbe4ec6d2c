package application

import (
	"context"
	"time"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// UnitDirectory lists the units of a project.
type UnitDirectory interface {
	ListUnits(ctx context.Context, projectID string) ([]debtorimport.Unit, error)
}

// BillStore persists imported bills.
type BillStore interface {
	InsertBill(ctx context.Context, bill *debtorimport.Bill) error
	DeleteBill(ctx context.Context, projectID, billID string) error
	FindForUnitsOnDates(ctx context.Context, projectID string, unitIDs []string, billDates []time.Time) ([]debtorimport.Bill, error)
}

// LedgerStore persists general-ledger lines.
type LedgerStore interface {
	InsertEntries(ctx context.Context, entries []debtorimport.LedgerEntry) error
	DeleteEntries(ctx context.Context, projectID string, entryIDs []string) error
}

// BillNumberSequence hands out collision-free bill sequences per project and
// period. Next is atomic: two callers never receive the same value.
type BillNumberSequence interface {
	Next(ctx context.Context, projectID string, period debtorimport.BillPeriod) (int, error)
}

// RunLocker serializes import runs per project. Acquire fails with
// debtorimport.ErrImportInProgress when another run holds the lock.
type RunLocker interface {
	Acquire(ctx context.Context, projectID string) (release func(), err error)
}

// CompletionPublisher signals that a project's bills changed.
type CompletionPublisher interface {
	PublishImportCompleted(ctx context.Context, event ImportCompleted) error
}

// ImportCompleted is emitted after a successful run with at least one bill.
type ImportCompleted struct {
	ProjectID  string
	RunID      string
	Actor      string
	Imported   int
	BillIDs    []string
	OccurredAt time.Time
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
