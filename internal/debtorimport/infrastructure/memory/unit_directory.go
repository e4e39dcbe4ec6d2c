package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// UnitDirectory is an in-memory unit directory for demo/testing.
type UnitDirectory struct {
	mu    sync.RWMutex
	units map[string]map[string]debtorimport.Unit
}

// NewUnitDirectory constructs a directory seeded with units.
func NewUnitDirectory(units ...debtorimport.Unit) *UnitDirectory {
	d := &UnitDirectory{units: make(map[string]map[string]debtorimport.Unit)}
	for _, unit := range units {
		_ = d.Add(unit)
	}
	return d
}

// Add registers a unit.
func (d *UnitDirectory) Add(unit debtorimport.Unit) error {
	if unit.ID == "" || unit.ProjectID == "" {
		return errors.New("memory unit directory: unit id and project id required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	byID := d.units[unit.ProjectID]
	if byID == nil {
		byID = make(map[string]debtorimport.Unit)
		d.units[unit.ProjectID] = byID
	}
	byID[unit.ID] = unit
	return nil
}

// ListUnits returns the units of a project ordered by unit number.
func (d *UnitDirectory) ListUnits(ctx context.Context, projectID string) ([]debtorimport.Unit, error) {
	_ = ctx
	if projectID == "" {
		return nil, debtorimport.ErrEmptyProjectID
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	units := make([]debtorimport.Unit, 0, len(d.units[projectID]))
	for _, unit := range d.units[projectID] {
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].UnitNumber < units[j].UnitNumber })
	return units, nil
}
