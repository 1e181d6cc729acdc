package core

import (
	"context"
	"fmt"
)

// NewRoomCapRule warns when more rooms are placed than the cap allows and the
// waiver does not apply. Placement itself refuses to cross the cap; imports
// and lowering the cap can still leave a ship above it.
func NewRoomCapRule(waiver CapWaiver) Rule {
	return roomCapRule{waiver: waiver}
}

type roomCapRule struct {
	waiver CapWaiver
}

func (roomCapRule) Name() string { return "room_cap" }

func (r roomCapRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	placed := view.ListPlaced()
	res := Result{}
	if len(placed) <= view.MaxRooms() {
		return res, nil
	}
	if r.waiver != nil && r.waiver(placed) {
		return res, nil
	}
	res.Violations = append(res.Violations, Violation{
		Rule:     "room_cap",
		Severity: SeverityWarn,
		Message:  fmt.Sprintf("%d rooms placed, cap is %d", len(placed), view.MaxRooms()),
	})
	return res, nil
}
