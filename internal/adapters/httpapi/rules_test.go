package httpapi_test

import (
	"context"

	"shipyard/internal/core"
)

type rejectAll struct{}

func (rejectAll) Name() string { return "reject_all" }

func (rejectAll) Evaluate(context.Context, core.RuleView, []core.Change) (core.Result, error) {
	return core.Result{Violations: []core.Violation{{Rule: "reject_all", Severity: core.SeverityBlock, Message: "frozen"}}}, nil
}
