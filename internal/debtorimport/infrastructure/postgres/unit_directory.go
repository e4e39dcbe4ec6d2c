package postgres

import (
	"context"
	"database/sql"
	"errors"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// UnitDirectory reads project units.
type UnitDirectory struct {
	db *sql.DB
}

// NewUnitDirectory constructs a directory.
func NewUnitDirectory(db *sql.DB) *UnitDirectory {
	return &UnitDirectory{db: db}
}

// ListUnits returns the units of a project.
func (d *UnitDirectory) ListUnits(ctx context.Context, projectID string) ([]debtorimport.Unit, error) {
	if d == nil || d.db == nil {
		return nil, errors.New("unit directory: nil db")
	}
	rows, err := d.db.QueryContext(ctx, `
SELECT id, project_id, unit_number
FROM units
WHERE project_id = $1
ORDER BY unit_number ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []debtorimport.Unit
	for rows.Next() {
		var unit debtorimport.Unit
		if err := rows.Scan(&unit.ID, &unit.ProjectID, &unit.UnitNumber); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}
