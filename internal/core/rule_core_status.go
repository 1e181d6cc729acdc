package core

import (
	"context"
	"fmt"
)

// NewCoreStatusRule logs missing mandatory categories once the ship has any
// placed room.
func NewCoreStatusRule() Rule {
	return coreStatusRule{}
}

type coreStatusRule struct{}

func (coreStatusRule) Name() string { return "core_status" }

func (coreStatusRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	placed := view.ListPlaced()
	res := Result{}
	if len(placed) == 0 {
		return res, nil
	}
	session := Session{Placed: make(map[string]RoomInstance, len(placed))}
	for _, inst := range placed {
		session.Placed[inst.InstanceID] = inst
	}
	for _, cat := range ComputeCoreStatus(session).Missing() {
		res.Violations = append(res.Violations, Violation{
			Rule:     "core_status",
			Severity: SeverityLog,
			Message:  fmt.Sprintf("no %s room placed", cat),
		})
	}
	return res, nil
}
