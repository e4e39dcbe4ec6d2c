package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// AdvisoryRunLocker serializes import runs per project across processes with
// a session-level advisory lock held on a dedicated connection.
type AdvisoryRunLocker struct {
	db     *sql.DB
	logger *log.Logger
}

// NewAdvisoryRunLocker constructs a locker.
func NewAdvisoryRunLocker(db *sql.DB, logger *log.Logger) *AdvisoryRunLocker {
	if logger == nil {
		logger = log.Default()
	}
	return &AdvisoryRunLocker{db: db, logger: logger}
}

// Acquire takes the project lock or fails with ErrImportInProgress.
func (l *AdvisoryRunLocker) Acquire(ctx context.Context, projectID string) (func(), error) {
	if l == nil || l.db == nil {
		return nil, errors.New("run locker: nil db")
	}
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	var locked bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, projectID).Scan(&locked); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if !locked {
		_ = conn.Close()
		return nil, debtorimport.ErrImportInProgress
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.unlock(conn, projectID)
		})
	}, nil
}

func (l *AdvisoryRunLocker) unlock(conn *sql.Conn, projectID string) {
	if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, projectID); err != nil {
		l.logger.Printf("run locker: unlock project=%s: %v", projectID, err)
	}
	_ = conn.Close()
}
