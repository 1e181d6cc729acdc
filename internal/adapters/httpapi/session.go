package httpapi

import (
	"shipyard/internal/core"
)

type gridView struct {
	Rows  int       `json:"rows"`
	Cols  int       `json:"cols"`
	Cells []*string `json:"cells"`
}

// sessionView is the JSON shape of a session. Placed rooms carry their cell
// so clients need not scan the grid.
type sessionView struct {
	Grid       gridView            `json:"grid"`
	Inventory  []core.RoomInstance `json:"inventory"`
	Placed     []placedView        `json:"placed"`
	PilotSkill int                 `json:"pilotSkill"`
	Surge      int                 `json:"surge"`
	MaxRooms   int                 `json:"maxRooms"`
	Tuned      []string            `json:"tuned"`
}

type placedView struct {
	core.RoomInstance
	Cell       int             `json:"cell"`
	Coordinate core.Coordinate `json:"coordinate"`
	Tuned      bool            `json:"tuned"`
}

func newSessionView(s core.Session) sessionView {
	view := sessionView{
		Grid:       gridView{Rows: s.Grid.Rows, Cols: s.Grid.Cols, Cells: make([]*string, len(s.Grid.Cells))},
		Inventory:  append([]core.RoomInstance{}, s.Inventory...),
		Placed:     []placedView{},
		PilotSkill: s.PilotSkill,
		Surge:      s.Surge,
		MaxRooms:   s.MaxRooms,
		Tuned:      s.TunedIDs(),
	}
	for i, id := range s.Grid.Cells {
		if id == "" {
			continue
		}
		cell := id
		view.Grid.Cells[i] = &cell
	}
	for _, inst := range s.PlacedList() {
		cell, _ := s.Grid.LocateInstance(inst.InstanceID)
		view.Placed = append(view.Placed, placedView{
			RoomInstance: inst,
			Cell:         cell,
			Coordinate:   s.Grid.IndexToCoordinate(cell),
			Tuned:        s.IsTuned(inst.InstanceID),
		})
	}
	return view
}
