package memory

import (
	"context"
	"sync"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// BillNumberSequence is a mutex-guarded counter per project and period,
// seeded from the highest bill number already in the bill store.
type BillNumberSequence struct {
	mu       sync.Mutex
	bills    *BillStore
	counters map[string]int
}

// NewBillNumberSequence constructs a sequence. bills may be nil.
func NewBillNumberSequence(bills *BillStore) *BillNumberSequence {
	return &BillNumberSequence{bills: bills, counters: make(map[string]int)}
}

// Next returns the next sequence for the project and period.
func (s *BillNumberSequence) Next(ctx context.Context, projectID string, period debtorimport.BillPeriod) (int, error) {
	_ = ctx
	if projectID == "" {
		return 0, debtorimport.ErrEmptyProjectID
	}
	key := projectID + "|" + period.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.counters[key]
	if !ok && s.bills != nil {
		current = s.bills.MaxSequence(projectID, period)
	}
	current++
	s.counters[key] = current
	return current, nil
}
