package core

import "shipyard/pkg/domain"

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// DefaultRules returns the built-in rule set; waiver feeds the room cap rule.
func DefaultRules(waiver CapWaiver) []Rule {
	return []Rule{
		NewPlacementIntegrityRule(),
		NewHealthBoundsRule(),
		NewRoomCapRule(waiver),
		NewCoreStatusRule(),
		NewSurgeBoundsRule(),
	}
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set
// and the cockpit-upgrade cap waiver.
func NewDefaultRulesEngine() *RulesEngine {
	return NewRulesEngineWith(DefaultRules(CockpitUpgradeWaiver)...)
}

// NewRulesEngineWith builds an engine registering rules in order.
func NewRulesEngineWith(rules ...Rule) *RulesEngine {
	engine := NewRulesEngine()
	for _, rule := range rules {
		engine.Register(rule)
	}
	return engine
}
