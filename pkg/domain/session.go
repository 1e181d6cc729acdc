package domain

import (
	"fmt"
	"sort"
)

// Session scalar bounds and defaults.
const (
	MinPilotSkill   = 0
	MaxPilotSkill   = 10
	DefaultMaxRooms = 6
)

// RoomCapTiers are the selectable room-count caps.
var RoomCapTiers = []int{6, 9, 12}

// ValidRoomCap reports whether n is one of RoomCapTiers.
func ValidRoomCap(n int) bool {
	for _, tier := range RoomCapTiers {
		if n == tier {
			return true
		}
	}
	return false
}

// ClampPilotSkill bounds a pilot skill to [MinPilotSkill, MaxPilotSkill].
func ClampPilotSkill(n int) int {
	if n < MinPilotSkill {
		return MinPilotSkill
	}
	if n > MaxPilotSkill {
		return MaxPilotSkill
	}
	return n
}

// Session is the root aggregate of a ship-building session. It exclusively
// owns its grid, inventory, placed set and scalar fields.
type Session struct {
	Grid       Grid
	Inventory  []RoomInstance
	Placed     map[string]RoomInstance
	PilotSkill int
	Surge      int
	MaxRooms   int
	Tuned      map[string]struct{}
}

// NewSession returns an empty session with the default grid and room cap.
func NewSession() Session {
	return Session{
		Grid:      NewGrid(DefaultGridRows, DefaultGridCols),
		Inventory: []RoomInstance{},
		Placed:    make(map[string]RoomInstance),
		MaxRooms:  DefaultMaxRooms,
		Tuned:     make(map[string]struct{}),
	}
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	cp := Session{
		Grid:       s.Grid.Clone(),
		Inventory:  make([]RoomInstance, len(s.Inventory)),
		Placed:     make(map[string]RoomInstance, len(s.Placed)),
		PilotSkill: s.PilotSkill,
		Surge:      s.Surge,
		MaxRooms:   s.MaxRooms,
		Tuned:      make(map[string]struct{}, len(s.Tuned)),
	}
	for i, inst := range s.Inventory {
		cp.Inventory[i] = inst.Clone()
	}
	for id, inst := range s.Placed {
		cp.Placed[id] = inst.Clone()
	}
	for id := range s.Tuned {
		cp.Tuned[id] = struct{}{}
	}
	return cp
}

// PlacedList returns the placed instances ordered by name, then id.
func (s Session) PlacedList() []RoomInstance {
	out := make([]RoomInstance, 0, len(s.Placed))
	for _, inst := range s.Placed {
		out = append(out, inst.Clone())
	}
	SortInstances(out)
	return out
}

// InventoryCount returns the number of unplaced instances of templateID.
func (s Session) InventoryCount(templateID string) int {
	n := 0
	for _, inst := range s.Inventory {
		if inst.TemplateID == templateID {
			n++
		}
	}
	return n
}

// IsTuned reports whether id carries an active tuning.
func (s Session) IsTuned(id string) bool {
	_, ok := s.Tuned[id]
	return ok
}

// TunedIDs returns the tuned instance ids in ascending order.
func (s Session) TunedIDs() []string {
	out := make([]string, 0, len(s.Tuned))
	for id := range s.Tuned {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CheckConsistency verifies that every instance is either placed (in the
// placed set and exactly one cell) or unplaced (in the inventory only).
func (s Session) CheckConsistency() error {
	if len(s.Grid.Cells) != s.Grid.Rows*s.Grid.Cols {
		return fmt.Errorf("grid has %d cells, want %d", len(s.Grid.Cells), s.Grid.Rows*s.Grid.Cols)
	}
	cellsByID := make(map[string]int)
	for _, cell := range s.Grid.Cells {
		if cell == "" {
			continue
		}
		cellsByID[cell]++
	}
	for id, n := range cellsByID {
		if n > 1 {
			return fmt.Errorf("instance %s occupies %d cells", id, n)
		}
		if _, ok := s.Placed[id]; !ok {
			return fmt.Errorf("cell references instance %s missing from placed set", id)
		}
	}
	for id, inst := range s.Placed {
		if inst.InstanceID != id {
			return fmt.Errorf("placed key %s holds instance %s", id, inst.InstanceID)
		}
		if cellsByID[id] != 1 {
			return fmt.Errorf("placed instance %s is not bound to a cell", id)
		}
	}
	seen := make(map[string]struct{}, len(s.Inventory))
	for _, inst := range s.Inventory {
		if _, dup := seen[inst.InstanceID]; dup {
			return fmt.Errorf("instance %s appears twice in inventory", inst.InstanceID)
		}
		seen[inst.InstanceID] = struct{}{}
		if _, placed := s.Placed[inst.InstanceID]; placed {
			return fmt.Errorf("instance %s is both placed and in inventory", inst.InstanceID)
		}
		if _, onGrid := cellsByID[inst.InstanceID]; onGrid {
			return fmt.Errorf("inventory instance %s is referenced by the grid", inst.InstanceID)
		}
	}
	return nil
}
