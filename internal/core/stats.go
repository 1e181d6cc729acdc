package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"shipyard/pkg/domain"
)

// StatsPolicy selects how maneuverability is derived from the layout.
type StatsPolicy string

const (
	// PolicySimple sums maneuverability and adds pilot skill unclamped.
	PolicySimple StatsPolicy = "simple"
	// PolicySizePenalized subtracts one point per placed room and floors the
	// pilot figure at zero.
	PolicySizePenalized StatsPolicy = "size_penalized"
)

// Valid reports whether p names a known policy.
func (p StatsPolicy) Valid() bool {
	return p == PolicySimple || p == PolicySizePenalized
}

// ParseStatsPolicy maps a configuration string to a policy.
func ParseStatsPolicy(s string) (StatsPolicy, error) {
	p := StatsPolicy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PolicySizePenalized, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("unknown stats policy %q", s)
	}
	return p, nil
}

var engineSpeedPattern = regexp.MustCompile(`Engine Speed \+(\d+)`)

// WeaponStatus is a placed weapon as listed in the stats.
type WeaponStatus struct {
	InstanceID string `json:"instanceId"`
	Name       string `json:"name"`
	Damage     int    `json:"damage"`
	HP         int    `json:"hp"`
	HPMax      int    `json:"hpMax"`
	Class      string `json:"class"`
	Online     bool   `json:"online"`
}

// Stats are the ship-wide figures derived from the placed set.
type Stats struct {
	Policy               StatsPolicy    `json:"policy"`
	HP                   int            `json:"hp"`
	HPMax                int            `json:"hpMax"`
	Defense              int            `json:"defense"`
	Battery              int            `json:"battery"`
	Maneuverability      int            `json:"maneuverability"`
	EngineSpeedBonus     int            `json:"engineSpeedBonus"`
	SizePenalty          int            `json:"sizePenalty"`
	PilotManeuverability int            `json:"pilotManeuverability"`
	Weapons              []WeaponStatus `json:"weapons"`
	Surge                int            `json:"surge"`
	SurgeMax             int            `json:"surgeMax"`
	RoomCap              int            `json:"roomCap"`
	CapWaived            bool           `json:"capWaived"`
	PlacedCount          int            `json:"placedCount"`
	Value                int            `json:"value"`
	Core                 CoreStatus     `json:"core"`
}

// ComputeStats folds over the placed set only; grid cell order is never
// consulted. Engine trait speed bonuses count regardless of current health.
func ComputeStats(session Session, policy StatsPolicy, waiver CapWaiver) Stats {
	if !policy.Valid() {
		policy = PolicySizePenalized
	}
	placed := session.PlacedList()
	st := Stats{
		Policy:      policy,
		Weapons:     []WeaponStatus{},
		Surge:       session.Surge,
		SurgeMax:    len(placed),
		RoomCap:     session.MaxRooms,
		PlacedCount: len(placed),
		Value:       ComputeValue(session),
		Core:        ComputeCoreStatus(session),
	}
	if waiver != nil {
		st.CapWaived = waiver(placed)
	}
	attribute := 0
	for _, inst := range placed {
		st.HP += inst.HP
		st.HPMax += inst.HPMax
		st.Defense += inst.Defense
		st.Battery += inst.Battery
		attribute += inst.Maneuverability
		if inst.Category == CategoryEngine {
			st.EngineSpeedBonus += EngineSpeedBonus(inst.Traits)
		}
		if inst.Category == CategoryWeapon && inst.Damage > 0 {
			st.Weapons = append(st.Weapons, WeaponStatus{
				InstanceID: inst.InstanceID,
				Name:       inst.Name,
				Damage:     inst.Damage,
				HP:         inst.HP,
				HPMax:      inst.HPMax,
				Class:      inst.WeaponClass,
				Online:     inst.Online(),
			})
		}
	}
	total := attribute + st.EngineSpeedBonus
	switch policy {
	case PolicySimple:
		st.Maneuverability = total
		st.PilotManeuverability = session.PilotSkill + total
	default:
		st.SizePenalty = len(placed)
		st.Maneuverability = total - st.SizePenalty
		st.PilotManeuverability = max(0, session.PilotSkill+total-st.SizePenalty)
	}
	return st
}

// EngineSpeedBonus sums the first "Engine Speed +N" figure of every trait.
func EngineSpeedBonus(traits []string) int {
	bonus := 0
	for _, trait := range traits {
		m := engineSpeedPattern.FindStringSubmatch(trait)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		bonus += n
	}
	return bonus
}

// ComputeValue sums cost over the placed set.
func ComputeValue(session Session) int {
	total := 0
	for _, inst := range session.Placed {
		total += inst.Cost
	}
	return total
}

// CoreStatus reports per-category counts of the mandatory rooms.
type CoreStatus struct {
	OK     bool             `json:"ok"`
	Counts map[Category]int `json:"counts"`
}

// Missing lists the mandatory categories with no placed room.
func (c CoreStatus) Missing() []Category {
	var out []Category
	for _, cat := range domain.CoreCategories {
		if c.Counts[cat] < 1 {
			out = append(out, cat)
		}
	}
	return out
}

// String renders e.g. "OK | Engine:1 Shield:1 Cockpit:1 Life Support:1".
func (c CoreStatus) String() string {
	parts := make([]string, 0, len(domain.CoreCategories))
	for _, cat := range domain.CoreCategories {
		parts = append(parts, fmt.Sprintf("%s:%d", cat, c.Counts[cat]))
	}
	label := "MISSING"
	if c.OK {
		label = "OK"
	}
	return label + " | " + strings.Join(parts, " ")
}

// ComputeCoreStatus counts placed rooms in each mandatory category.
func ComputeCoreStatus(session Session) CoreStatus {
	status := CoreStatus{OK: true, Counts: make(map[Category]int, len(domain.CoreCategories))}
	for _, cat := range domain.CoreCategories {
		status.Counts[cat] = 0
	}
	for _, inst := range session.Placed {
		if _, core := status.Counts[inst.Category]; core {
			status.Counts[inst.Category]++
		}
	}
	for _, cat := range domain.CoreCategories {
		if status.Counts[cat] < 1 {
			status.OK = false
		}
	}
	return status
}
