package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// LedgerStore is an in-memory general ledger for demo/testing.
type LedgerStore struct {
	mu      sync.RWMutex
	entries map[string]debtorimport.LedgerEntry
}

// NewLedgerStore constructs a store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{entries: make(map[string]debtorimport.LedgerEntry)}
}

// InsertEntries stores the entries all or none.
func (s *LedgerStore) InsertEntries(ctx context.Context, entries []debtorimport.LedgerEntry) error {
	_ = ctx
	if err := debtorimport.CheckBalanced(entries); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if entry.ID == "" {
			return errors.New("memory ledger store: entry id required")
		}
		if _, exists := s.entries[entry.ID]; exists {
			return errors.New("memory ledger store: entry id already exists")
		}
	}
	for _, entry := range entries {
		s.entries[entry.ID] = entry
	}
	return nil
}

// DeleteEntries removes entries of the project. Unknown ids are ignored.
func (s *LedgerStore) DeleteEntries(ctx context.Context, projectID string, entryIDs []string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range entryIDs {
		if entry, ok := s.entries[id]; ok && entry.ProjectID == projectID {
			delete(s.entries, id)
		}
	}
	return nil
}

// List returns the entries of a project ordered by date then id.
func (s *LedgerStore) List(projectID string) []debtorimport.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []debtorimport.LedgerEntry
	for _, entry := range s.entries {
		if entry.ProjectID == projectID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].TransactionDate.Equal(entries[j].TransactionDate) {
			return entries[i].TransactionDate.Before(entries[j].TransactionDate)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}
