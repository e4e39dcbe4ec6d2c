package debtorimport

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the root of every pre-mutation rejection.
	ErrValidation = errors.New("debtor import: validation failed")
	// ErrMissingField is returned when a required row field is empty.
	ErrMissingField = fmt.Errorf("%w: missing required field", ErrValidation)
	// ErrUnmappedUnit is returned when a unit identifier cannot be resolved.
	ErrUnmappedUnit = fmt.Errorf("%w: unmapped unit", ErrValidation)
	// ErrDuplicateInBatch is returned when two rows share a duplicate key.
	ErrDuplicateInBatch = fmt.Errorf("%w: duplicate in batch", ErrValidation)
	// ErrDuplicateInStore is returned when a row matches a persisted bill.
	ErrDuplicateInStore = fmt.Errorf("%w: duplicate of existing bill", ErrValidation)
	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be positive", ErrValidation)
	// ErrTooManyRows is returned when a batch exceeds the configured row limit.
	ErrTooManyRows = fmt.Errorf("%w: too many rows", ErrValidation)
	// ErrEmptyBatch is returned when no rows are supplied.
	ErrEmptyBatch = fmt.Errorf("%w: empty batch", ErrValidation)

	// ErrEmptyProjectID is returned when the project scope is missing.
	ErrEmptyProjectID = errors.New("debtor import: empty project id")
	// ErrUnitFetch is returned when the unit directory cannot be read.
	ErrUnitFetch = errors.New("debtor import: fetch units")
	// ErrImportInProgress is returned when another run holds the project lock.
	ErrImportInProgress = errors.New("debtor import: import already running for project")
	// ErrBillNotFound is returned when deleting an unknown bill.
	ErrBillNotFound = errors.New("debtor import: bill not found")
	// ErrDuplicateBillNumber is returned when a bill number is already taken.
	ErrDuplicateBillNumber = errors.New("debtor import: duplicate bill number")
	// ErrCompensation is reported when undoing a committed write failed.
	ErrCompensation = errors.New("debtor import: compensation failed")
	// ErrUnbalancedPosting is returned when a ledger pair does not balance.
	ErrUnbalancedPosting = errors.New("debtor import: unbalanced posting")
)

// PersistenceError wraps a store failure that happened mid-run.
type PersistenceError struct {
	Op         string
	BillNumber string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.BillNumber == "" {
		return fmt.Sprintf("debtor import: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("debtor import: %s (bill %s): %v", e.Op, e.BillNumber, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
