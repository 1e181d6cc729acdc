// Package sessiondoc converts sessions to and from the portable JSON save
// document. Encode always writes version 2; Decode accepts versions 1 and 2,
// backfills stats older saves did not carry, and reconciles the result so
// the returned session satisfies the placement invariants.
package sessiondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"shipyard/pkg/domain"
)

// CurrentVersion is the document version produced by Encode.
const CurrentVersion = 2

// TemplateLookup resolves templates for backfilling older saves.
type TemplateLookup interface {
	Lookup(id string) (domain.Template, bool)
}

type gridDoc struct {
	Rows  int       `json:"rows"`
	Cols  int       `json:"cols"`
	Cells []*string `json:"cells"`
}

type placedEntry struct {
	ID       string
	Instance domain.RoomInstance
}

func (p placedEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.ID, p.Instance})
}

type document struct {
	Version            int                   `json:"version"`
	Grid               gridDoc               `json:"grid"`
	Inventory          []domain.RoomInstance `json:"inventory"`
	Placed             []placedEntry         `json:"placed"`
	PilotSkill         int                   `json:"pilotSkill"`
	ShipSurge          int                   `json:"shipSurge"`
	ShipMaxRooms       int                   `json:"shipMaxRooms"`
	TunedRooms         []string              `json:"tunedRooms"`
	SelectedTemplateID *string               `json:"selectedTemplateId"`
}

// Encode renders the session as an indented version 2 document. Placed pairs
// and tuned ids are written in ascending id order.
func Encode(s domain.Session) ([]byte, error) {
	doc := document{
		Version: CurrentVersion,
		Grid: gridDoc{
			Rows:  s.Grid.Rows,
			Cols:  s.Grid.Cols,
			Cells: make([]*string, len(s.Grid.Cells)),
		},
		Inventory:    make([]domain.RoomInstance, 0, len(s.Inventory)),
		Placed:       make([]placedEntry, 0, len(s.Placed)),
		PilotSkill:   s.PilotSkill,
		ShipSurge:    s.Surge,
		ShipMaxRooms: s.MaxRooms,
		TunedRooms:   s.TunedIDs(),
	}
	for i, cell := range s.Grid.Cells {
		if cell == "" {
			continue
		}
		id := cell
		doc.Grid.Cells[i] = &id
	}
	for _, inst := range s.Inventory {
		doc.Inventory = append(doc.Inventory, normalizeLists(inst.Clone()))
	}
	ids := make([]string, 0, len(s.Placed))
	for id := range s.Placed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		doc.Placed = append(doc.Placed, placedEntry{ID: id, Instance: normalizeLists(s.Placed[id].Clone())})
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return out, nil
}

type rawGrid struct {
	Rows  *int            `json:"rows"`
	Cols  *int            `json:"cols"`
	Cells json.RawMessage `json:"cells"`
}

type rawDocument struct {
	Version      json.RawMessage `json:"version"`
	Grid         *rawGrid        `json:"grid"`
	Inventory    json.RawMessage `json:"inventory"`
	Placed       json.RawMessage `json:"placed"`
	PilotSkill   *int            `json:"pilotSkill"`
	ShipSurge    *int            `json:"shipSurge"`
	ShipMaxRooms *int            `json:"shipMaxRooms"`
	TunedRooms   json.RawMessage `json:"tunedRooms"`
}

type rawInstance struct {
	InstanceID      string          `json:"instanceId"`
	TemplateID      string          `json:"templateId"`
	Category        domain.Category `json:"type"`
	Letter          string          `json:"letter"`
	Name            string          `json:"name"`
	HPMax           *int            `json:"hpMax"`
	HP              *int            `json:"hp"`
	Cost            *int            `json:"cost"`
	Damage          *int            `json:"damage"`
	Defense         *int            `json:"defense"`
	Battery         *int            `json:"battery"`
	Maneuverability *int            `json:"maneuverability"`
	WeaponClass     string          `json:"class"`
	Traits          []string        `json:"traits"`
	Disabled        []string        `json:"disabled"`
	Stabilized      []string        `json:"stabilized"`
	Notes           string          `json:"notes"`
}

// Decode parses a save document into a fresh session. A nil lookup disables
// stat backfill. Nothing is returned unless the whole document validates.
func Decode(data []byte, lookup TemplateLookup) (domain.Session, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	version, err := checkVersion(raw.Version)
	if err != nil {
		return domain.Session{}, err
	}
	grid, err := decodeGrid(raw.Grid, version)
	if err != nil {
		return domain.Session{}, err
	}

	s := domain.NewSession()
	s.Grid = grid

	var inventory []rawInstance
	if err := decodeList(raw.Inventory, &inventory); err != nil {
		return domain.Session{}, fmt.Errorf("inventory: %w", err)
	}
	for i, ri := range inventory {
		if ri.InstanceID == "" {
			return domain.Session{}, fmt.Errorf("%w: inventory[%d] has no instanceId", domain.ErrMalformedDocument, i)
		}
		s.Inventory = append(s.Inventory, ri.toInstance(lookup))
	}

	var pairs []json.RawMessage
	if err := decodeList(raw.Placed, &pairs); err != nil {
		return domain.Session{}, fmt.Errorf("placed: %w", err)
	}
	for i, pair := range pairs {
		id, ri, err := decodePair(pair)
		if err != nil {
			return domain.Session{}, fmt.Errorf("placed[%d]: %w", i, err)
		}
		inst := ri.toInstance(lookup)
		inst.InstanceID = id
		s.Placed[id] = inst
	}

	var tuned []string
	if err := decodeList(raw.TunedRooms, &tuned); err != nil {
		return domain.Session{}, fmt.Errorf("tunedRooms: %w", err)
	}
	for _, id := range tuned {
		if id != "" {
			s.Tuned[id] = struct{}{}
		}
	}

	if raw.PilotSkill != nil {
		s.PilotSkill = domain.ClampPilotSkill(*raw.PilotSkill)
	}
	if raw.ShipSurge != nil && *raw.ShipSurge > 0 {
		s.Surge = *raw.ShipSurge
	}
	if raw.ShipMaxRooms != nil && domain.ValidRoomCap(*raw.ShipMaxRooms) {
		s.MaxRooms = *raw.ShipMaxRooms
	}

	reconcile(&s)
	if err := s.CheckConsistency(); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrInvalidGrid, err)
	}
	return s, nil
}

func checkVersion(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, domain.UnsupportedVersionError{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	if n, ok := v.(float64); ok && (n == 1 || n == 2) {
		return int(n), nil
	}
	return 0, domain.UnsupportedVersionError{Version: v}
}

// decodeGrid validates the grid section. Version 1 documents may omit the
// dimensions, which then default to the standard grid.
func decodeGrid(raw *rawGrid, version int) (domain.Grid, error) {
	if raw == nil {
		return domain.Grid{}, domain.InvalidGridError{Reason: "grid missing"}
	}
	rows, cols := domain.DefaultGridRows, domain.DefaultGridCols
	switch {
	case raw.Rows != nil && raw.Cols != nil:
		rows, cols = *raw.Rows, *raw.Cols
	case version == 1:
		if raw.Rows != nil {
			rows = *raw.Rows
		}
		if raw.Cols != nil {
			cols = *raw.Cols
		}
	default:
		return domain.Grid{}, domain.InvalidGridError{Reason: "rows and cols are required"}
	}
	if rows < domain.MinGridDimension || rows > domain.MaxGridDimension ||
		cols < domain.MinGridDimension || cols > domain.MaxGridDimension {
		return domain.Grid{}, domain.InvalidGridError{Reason: fmt.Sprintf("dimensions %dx%d out of range", rows, cols)}
	}
	trimmed := bytes.TrimSpace(raw.Cells)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return domain.Grid{}, domain.InvalidGridError{Reason: "cells must be an array"}
	}
	var cells []json.RawMessage
	if err := json.Unmarshal(trimmed, &cells); err != nil {
		return domain.Grid{}, domain.InvalidGridError{Reason: "cells must be an array"}
	}
	if len(cells) != rows*cols {
		return domain.Grid{}, domain.InvalidGridError{Reason: fmt.Sprintf("%d cells for a %dx%d grid", len(cells), rows, cols)}
	}
	grid := domain.NewGrid(rows, cols)
	seen := make(map[string]int, len(cells))
	for i, cell := range cells {
		var v any
		if err := json.Unmarshal(cell, &v); err != nil {
			return domain.Grid{}, domain.InvalidGridError{Reason: fmt.Sprintf("cell %d unreadable", i)}
		}
		switch id := v.(type) {
		case nil:
		case string:
			if id == "" {
				continue
			}
			if prev, dup := seen[id]; dup {
				return domain.Grid{}, domain.InvalidGridError{Reason: fmt.Sprintf("instance %s in cells %d and %d", id, prev, i)}
			}
			seen[id] = i
			grid.Cells[i] = id
		default:
			return domain.Grid{}, domain.InvalidGridError{Reason: fmt.Sprintf("cell %d is neither an id nor null", i)}
		}
	}
	return grid, nil
}

// decodeList unmarshals raw into dst when it is a JSON array and leaves dst
// empty for any other shape, mirroring how lenient older saves were read.
func decodeList(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	return nil
}

func decodePair(raw json.RawMessage) (string, rawInstance, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
		return "", rawInstance{}, fmt.Errorf("%w: expected [id, instance] pair", domain.ErrMalformedDocument)
	}
	var id string
	if err := json.Unmarshal(parts[0], &id); err != nil || id == "" {
		return "", rawInstance{}, fmt.Errorf("%w: pair key must be a non-empty id", domain.ErrMalformedDocument)
	}
	var ri rawInstance
	if err := json.Unmarshal(parts[1], &ri); err != nil {
		return "", rawInstance{}, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	return id, ri, nil
}

func (ri rawInstance) toInstance(lookup TemplateLookup) domain.RoomInstance {
	var tpl domain.Template
	found := false
	if lookup != nil && ri.TemplateID != "" {
		tpl, found = lookup.Lookup(ri.TemplateID)
	}
	fill := func(v *int, fallback int) int {
		if v != nil && *v != 0 {
			return *v
		}
		if found {
			return fallback
		}
		if v != nil {
			return *v
		}
		return 0
	}
	inst := domain.RoomInstance{
		InstanceID:      ri.InstanceID,
		TemplateID:      ri.TemplateID,
		Category:        ri.Category,
		Letter:          ri.Letter,
		Name:            ri.Name,
		Cost:            fill(ri.Cost, tpl.Cost),
		Damage:          fill(ri.Damage, tpl.Damage),
		Defense:         fill(ri.Defense, tpl.Defense),
		Battery:         fill(ri.Battery, tpl.Battery),
		Maneuverability: fill(ri.Maneuverability, tpl.Maneuverability),
		WeaponClass:     ri.WeaponClass,
		Traits:          ri.Traits,
		Disabled:        ri.Disabled,
		Stabilized:      ri.Stabilized,
		Notes:           ri.Notes,
	}
	switch {
	case ri.HPMax != nil:
		inst.HPMax = max(*ri.HPMax, 0)
	case found:
		inst.HPMax = tpl.HPMax
	}
	if ri.HP != nil {
		inst.HP = domain.ClampHealth(*ri.HP, inst.HPMax)
	} else {
		inst.HP = inst.HPMax
	}
	return normalizeLists(inst)
}

func normalizeLists(inst domain.RoomInstance) domain.RoomInstance {
	if inst.Traits == nil {
		inst.Traits = []string{}
	}
	if inst.Disabled == nil {
		inst.Disabled = []string{}
	}
	if inst.Stabilized == nil {
		inst.Stabilized = []string{}
	}
	return inst
}

// reconcile restores the placement invariants on a freshly decoded session:
// cells must name placed instances, placed instances must sit in a cell, an
// id lives in exactly one of grid or inventory, and only placed rooms stay
// tuned.
func reconcile(s *domain.Session) {
	for i, id := range s.Grid.Cells {
		if id == "" {
			continue
		}
		if _, ok := s.Placed[id]; !ok {
			s.Grid.Cells[i] = ""
		}
	}
	referenced := s.Grid.Referenced()
	var orphans []domain.RoomInstance
	for id, inst := range s.Placed {
		if _, ok := referenced[id]; !ok {
			orphans = append(orphans, inst)
			delete(s.Placed, id)
		}
	}
	domain.SortInstances(orphans)

	seen := make(map[string]struct{}, len(s.Inventory))
	kept := s.Inventory[:0]
	for _, inst := range s.Inventory {
		if _, placed := s.Placed[inst.InstanceID]; placed {
			continue
		}
		if _, dup := seen[inst.InstanceID]; dup {
			continue
		}
		seen[inst.InstanceID] = struct{}{}
		kept = append(kept, inst)
	}
	for _, inst := range orphans {
		if _, dup := seen[inst.InstanceID]; dup {
			continue
		}
		seen[inst.InstanceID] = struct{}{}
		kept = append(kept, inst)
	}
	s.Inventory = kept

	for id := range s.Tuned {
		if _, ok := s.Placed[id]; !ok {
			delete(s.Tuned, id)
		}
	}
}
