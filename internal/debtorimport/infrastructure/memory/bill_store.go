package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// BillStore is an in-memory bill store for demo/testing.
type BillStore struct {
	mu    sync.RWMutex
	bills map[string]debtorimport.Bill
}

// NewBillStore constructs a store.
func NewBillStore() *BillStore {
	return &BillStore{bills: make(map[string]debtorimport.Bill)}
}

// InsertBill stores a bill. Synthesized bill numbers are unique per project.
func (s *BillStore) InsertBill(ctx context.Context, bill *debtorimport.Bill) error {
	_ = ctx
	if bill == nil || bill.ID == "" {
		return errors.New("memory bill store: bill id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bills[bill.ID]; exists {
		return errors.New("memory bill store: bill id already exists")
	}
	if debtorimport.IsSynthesizedBillNumber(bill.BillNumber) {
		for _, existing := range s.bills {
			if existing.ProjectID == bill.ProjectID && existing.BillNumber == bill.BillNumber {
				return debtorimport.ErrDuplicateBillNumber
			}
		}
	}
	s.bills[bill.ID] = *bill
	return nil
}

// DeleteBill removes a bill of the project.
func (s *BillStore) DeleteBill(ctx context.Context, projectID, billID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[billID]
	if !ok || bill.ProjectID != projectID {
		return debtorimport.ErrBillNotFound
	}
	delete(s.bills, billID)
	return nil
}

// FindForUnitsOnDates returns bills of the given units created on any of the
// given days.
func (s *BillStore) FindForUnitsOnDates(ctx context.Context, projectID string, unitIDs []string, billDates []time.Time) ([]debtorimport.Bill, error) {
	_ = ctx
	units := make(map[string]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		units[id] = struct{}{}
	}
	days := make(map[time.Time]struct{}, len(billDates))
	for _, day := range billDates {
		days[debtorimport.DayOf(day)] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []debtorimport.Bill
	for _, bill := range s.bills {
		if bill.ProjectID != projectID {
			continue
		}
		if _, ok := units[bill.UnitID]; !ok {
			continue
		}
		if _, ok := days[debtorimport.DayOf(bill.CreatedAt)]; !ok {
			continue
		}
		found = append(found, bill)
	}
	sortBills(found)
	return found, nil
}

// List returns all bills of a project ordered by bill number.
func (s *BillStore) List(projectID string) []debtorimport.Bill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var bills []debtorimport.Bill
	for _, bill := range s.bills {
		if bill.ProjectID == projectID {
			bills = append(bills, bill)
		}
	}
	sortBills(bills)
	return bills
}

// MaxSequence returns the highest synthesized sequence of a period.
func (s *BillStore) MaxSequence(projectID string, period debtorimport.BillPeriod) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	maxSeq := 0
	for _, bill := range s.bills {
		if bill.ProjectID != projectID {
			continue
		}
		if seq, ok := debtorimport.ParseBillSequence(period, bill.BillNumber); ok && seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq
}

func sortBills(bills []debtorimport.Bill) {
	sort.Slice(bills, func(i, j int) bool { return bills[i].BillNumber < bills[j].BillNumber })
}
