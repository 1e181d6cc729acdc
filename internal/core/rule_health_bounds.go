package core

import (
	"context"
	"fmt"
)

// NewHealthBoundsRule blocks instances whose current health leaves [0, hpMax].
func NewHealthBoundsRule() Rule {
	return healthBoundsRule{}
}

type healthBoundsRule struct{}

func (healthBoundsRule) Name() string { return "health_bounds" }

func (healthBoundsRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	res := Result{}
	check := func(inst RoomInstance) {
		if inst.HPMax >= 0 && inst.HP >= 0 && inst.HP <= inst.HPMax {
			return
		}
		res.Violations = append(res.Violations, Violation{
			Rule:       "health_bounds",
			Severity:   SeverityBlock,
			Message:    fmt.Sprintf("%s (%s) health %d outside [0,%d]", inst.Name, inst.InstanceID, inst.HP, inst.HPMax),
			InstanceID: inst.InstanceID,
		})
	}
	for _, inst := range view.ListPlaced() {
		check(inst)
	}
	for _, inst := range view.ListInventory() {
		check(inst)
	}
	return res, nil
}
