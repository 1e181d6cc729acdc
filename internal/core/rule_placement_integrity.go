package core

import (
	"context"

	"shipyard/pkg/domain"
)

// NewPlacementIntegrityRule blocks any commit that breaks grid, placed set
// and inventory disjointness.
func NewPlacementIntegrityRule() Rule {
	return placementIntegrityRule{}
}

type placementIntegrityRule struct{}

func (placementIntegrityRule) Name() string { return "placement_integrity" }

func (placementIntegrityRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	placed := view.ListPlaced()
	snapshot := Session{
		Grid:      view.Grid(),
		Inventory: view.ListInventory(),
		Placed:    make(map[string]RoomInstance, len(placed)),
	}
	for _, inst := range placed {
		snapshot.Placed[inst.InstanceID] = inst
	}
	res := Result{}
	if err := snapshot.CheckConsistency(); err != nil {
		res.Violations = append(res.Violations, Violation{
			Rule:     "placement_integrity",
			Severity: domain.SeverityBlock,
			Message:  err.Error(),
		})
	}
	return res, nil
}
