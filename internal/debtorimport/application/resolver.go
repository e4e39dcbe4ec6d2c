package application

import (
	"context"
	"errors"
	"fmt"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// UnitIndex maps normalized unit numbers to unit ids for one project.
type UnitIndex struct {
	byKey   map[string]string
	fetched int
}

// BuildUnitIndex fetches the project's units and indexes them by
// debtorimport.NormalizeUnit. A fetch failure aborts the run.
func BuildUnitIndex(ctx context.Context, directory UnitDirectory, projectID string) (*UnitIndex, error) {
	if directory == nil {
		return nil, errors.New("unit index: nil directory")
	}
	if projectID == "" {
		return nil, debtorimport.ErrEmptyProjectID
	}
	units, err := directory.ListUnits(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", debtorimport.ErrUnitFetch, err)
	}
	index := &UnitIndex{byKey: make(map[string]string, len(units)), fetched: len(units)}
	for _, unit := range units {
		key := debtorimport.NormalizeUnit(unit.UnitNumber)
		if key == "" || unit.ID == "" {
			continue
		}
		index.byKey[key] = unit.ID
	}
	return index, nil
}

// Resolve returns the unit id for a raw unit identifier.
func (i *UnitIndex) Resolve(unitNumber string) (string, bool) {
	if i == nil {
		return "", false
	}
	id, ok := i.byKey[debtorimport.NormalizeUnit(unitNumber)]
	return id, ok
}

// Fetched returns the number of units the directory returned.
func (i *UnitIndex) Fetched() int {
	if i == nil {
		return 0
	}
	return i.fetched
}

// Size returns the number of indexed unit keys.
func (i *UnitIndex) Size() int {
	if i == nil {
		return 0
	}
	return len(i.byKey)
}
