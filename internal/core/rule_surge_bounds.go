package core

import (
	"context"
	"fmt"
)

// NewSurgeBoundsRule warns when stored surge exceeds the placed room count.
func NewSurgeBoundsRule() Rule {
	return surgeBoundsRule{}
}

type surgeBoundsRule struct{}

func (surgeBoundsRule) Name() string { return "surge_bounds" }

func (surgeBoundsRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	res := Result{}
	if limit := len(view.ListPlaced()); view.Surge() > limit {
		res.Violations = append(res.Violations, Violation{
			Rule:     "surge_bounds",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("surge %d exceeds placed room count %d", view.Surge(), limit),
		})
	}
	return res, nil
}
