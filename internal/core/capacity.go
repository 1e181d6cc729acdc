package core

import (
	"strings"

	"shipyard/pkg/domain"
)

// CapWaiver decides, from the placed rooms, whether the room cap is lifted.
type CapWaiver func(placed []RoomInstance) bool

var upgradeMarkers = []string{"upgrade", "advanced", "mk ii"}

// CockpitUpgradeWaiver lifts the cap when a placed cockpit looks upgraded:
// its name mentions "upgrade", "advanced" or "mk ii", or a trait mentions
// "upgrade" or "advanced".
func CockpitUpgradeWaiver(placed []RoomInstance) bool {
	for _, inst := range placed {
		if inst.Category != CategoryCockpit {
			continue
		}
		name := strings.ToLower(inst.Name)
		for _, marker := range upgradeMarkers {
			if strings.Contains(name, marker) {
				return true
			}
		}
		for _, trait := range inst.Traits {
			t := strings.ToLower(trait)
			if strings.Contains(t, "upgrade") || strings.Contains(t, "advanced") {
				return true
			}
		}
	}
	return false
}

// NoCapWaiver never lifts the cap.
func NoCapWaiver([]RoomInstance) bool { return false }

// checkCapacity reports a CapacityError when adding one more room to an empty
// cell would exceed maxRooms.
func checkCapacity(placed []RoomInstance, maxRooms int, waiver CapWaiver) error {
	if len(placed) < maxRooms {
		return nil
	}
	if waiver != nil && waiver(placed) {
		return nil
	}
	return domain.CapacityError{Placed: len(placed), MaxRooms: maxRooms}
}
