package memory

import (
	"context"
	"sync"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// RunLocker is a process-local per-project run lock.
type RunLocker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewRunLocker constructs a locker.
func NewRunLocker() *RunLocker {
	return &RunLocker{active: make(map[string]struct{})}
}

// Acquire takes the project lock or fails with ErrImportInProgress.
func (l *RunLocker) Acquire(ctx context.Context, projectID string) (func(), error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.active[projectID]; busy {
		return nil, debtorimport.ErrImportInProgress
	}
	l.active[projectID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, projectID)
			l.mu.Unlock()
		})
	}, nil
}
