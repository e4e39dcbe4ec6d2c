package auth

import (
	"context"
	"database/sql"
	"errors"
)

// ProjectTenantChecker validates project ownership.
type ProjectTenantChecker interface {
	EnsureProjectTenant(ctx context.Context, tenantID, projectID string) error
}

// ProjectChecker checks project ownership against the projects table.
type ProjectChecker struct {
	db *sql.DB
}

// NewProjectChecker constructs a ProjectChecker.
func NewProjectChecker(db *sql.DB) *ProjectChecker {
	if db == nil {
		return nil
	}
	return &ProjectChecker{db: db}
}

// EnsureProjectTenant verifies the project belongs to the tenant.
func (c *ProjectChecker) EnsureProjectTenant(ctx context.Context, tenantID, projectID string) error {
	if c == nil || c.db == nil {
		return nil
	}
	if tenantID == "" || projectID == "" {
		return nil
	}
	var owner string
	err := c.db.QueryRowContext(ctx, `SELECT tenant_id FROM projects WHERE id = $1`, projectID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProjectNotFound
	}
	if err != nil {
		return err
	}
	if owner != tenantID {
		return ErrProjectMismatch
	}
	return nil
}
