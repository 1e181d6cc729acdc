// Package domain defines the ship-building state model: room templates and
// instances, the placement grid, the session aggregate, and the rule
// evaluation primitives used by shipyard.
package domain

import "sort"

// Category identifies the functional kind of a room.
type Category string

// Room categories recognised by the catalog and the stats aggregator.
const (
	CategoryEngine      Category = "Engine"
	CategoryShield      Category = "Shield"
	CategoryCockpit     Category = "Cockpit"
	CategoryLifeSupport Category = "Life Support"
	CategoryEngineering Category = "Engineering"
	CategorySensors     Category = "Sensors"
	CategoryWeapon      Category = "Weapon"
	CategoryPower       Category = "Power"
)

// Categories lists every known category in catalog display order.
var Categories = []Category{
	CategoryEngine,
	CategoryShield,
	CategoryCockpit,
	CategoryLifeSupport,
	CategoryEngineering,
	CategorySensors,
	CategoryWeapon,
	CategoryPower,
}

// CoreCategories are the mandatory categories a flyable ship must carry.
var CoreCategories = []Category{
	CategoryEngine,
	CategoryShield,
	CategoryCockpit,
	CategoryLifeSupport,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Template is an immutable catalog definition of a room kind.
type Template struct {
	ID              string   `json:"id" yaml:"id"`
	Category        Category `json:"type" yaml:"type"`
	Letter          string   `json:"letter" yaml:"letter"`
	Name            string   `json:"name" yaml:"name"`
	HPMax           int      `json:"hpMax" yaml:"hpMax"`
	Cost            int      `json:"cost" yaml:"cost"`
	Maneuverability int      `json:"maneuverability" yaml:"maneuverability"`
	Defense         int      `json:"defense" yaml:"defense"`
	Damage          int      `json:"damage" yaml:"damage"`
	Battery         int      `json:"battery" yaml:"battery"`
	WeaponClass     string   `json:"class,omitempty" yaml:"class"`
	Traits          []string `json:"traits" yaml:"traits"`
	Disabled        []string `json:"disabled" yaml:"disabled"`
	Stabilized      []string `json:"stabilized" yaml:"stabilized"`
	Notes           string   `json:"notes" yaml:"notes"`
}

// RoomInstance is a uniquely identified, mutable copy of a template. Every
// template field is copied by value at creation and never re-read.
type RoomInstance struct {
	InstanceID      string   `json:"instanceId"`
	TemplateID      string   `json:"templateId"`
	Category        Category `json:"type"`
	Letter          string   `json:"letter"`
	Name            string   `json:"name"`
	HPMax           int      `json:"hpMax"`
	HP              int      `json:"hp"`
	Cost            int      `json:"cost"`
	Damage          int      `json:"damage"`
	Defense         int      `json:"defense"`
	Battery         int      `json:"battery"`
	Maneuverability int      `json:"maneuverability"`
	WeaponClass     string   `json:"class"`
	Traits          []string `json:"traits"`
	Disabled        []string `json:"disabled"`
	Stabilized      []string `json:"stabilized"`
	Notes           string   `json:"notes"`
}

// NewRoomInstance copies t into a fresh instance carrying the supplied id.
// Current health starts at max health.
func NewRoomInstance(id string, t Template) RoomInstance {
	return RoomInstance{
		InstanceID:      id,
		TemplateID:      t.ID,
		Category:        t.Category,
		Letter:          t.Letter,
		Name:            t.Name,
		HPMax:           t.HPMax,
		HP:              t.HPMax,
		Cost:            t.Cost,
		Damage:          t.Damage,
		Defense:         t.Defense,
		Battery:         t.Battery,
		Maneuverability: t.Maneuverability,
		WeaponClass:     t.WeaponClass,
		Traits:          copyStrings(t.Traits),
		Disabled:        copyStrings(t.Disabled),
		Stabilized:      copyStrings(t.Stabilized),
		Notes:           t.Notes,
	}
}

// Clone returns a deep copy of the instance.
func (r RoomInstance) Clone() RoomInstance {
	cp := r
	cp.Traits = copyStrings(r.Traits)
	cp.Disabled = copyStrings(r.Disabled)
	cp.Stabilized = copyStrings(r.Stabilized)
	return cp
}

// SetHealth assigns current health clamped to [0, HPMax].
func (r *RoomInstance) SetHealth(hp int) {
	r.HP = ClampHealth(hp, r.HPMax)
}

// Online reports whether the room still has health left.
func (r RoomInstance) Online() bool { return r.HP > 0 }

// ClampHealth bounds hp to [0, max].
func ClampHealth(hp, max int) int {
	if max < 0 {
		max = 0
	}
	if hp < 0 {
		return 0
	}
	if hp > max {
		return max
	}
	return hp
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// SortInstances orders instances by name, then instance id.
func SortInstances(list []RoomInstance) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name == list[j].Name {
			return list[i].InstanceID < list[j].InstanceID
		}
		return list[i].Name < list[j].Name
	})
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Action indicates the kind of mutation captured in a Change.
type Action string

// Change actions recorded by transactions and passed to rules.
const (
	ActionCreate  Action = "create"
	ActionDiscard Action = "discard"
	ActionPlace   Action = "place"
	ActionUnplace Action = "unplace"
	ActionUpdate  Action = "update"
	ActionResize  Action = "resize"
	ActionScalar  Action = "scalar"
	ActionReplace Action = "replace_session"
)

// Change describes a single mutation applied inside a transaction.
type Change struct {
	Action     Action
	InstanceID string
	Cell       int
	Before     any
	After      any
}

// Violation describes a rule finding.
type Violation struct {
	Rule       string
	Severity   Severity
	Message    string
	InstanceID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
