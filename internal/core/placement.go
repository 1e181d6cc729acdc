package core

import (
	"context"
	"fmt"

	"shipyard/pkg/domain"
)

// PlacementOutcome describes a committed placement.
type PlacementOutcome struct {
	Cell      int           `json:"cell"`
	Placed    RoomInstance  `json:"placed"`
	Displaced *RoomInstance `json:"displaced,omitempty"`
}

// PlacementPreview describes what placing templateID at Cell would do
// without changing anything.
type PlacementPreview struct {
	Cell       int           `json:"cell"`
	Coordinate Coordinate    `json:"coordinate"`
	Available  int           `json:"available"`
	Occupant   *RoomInstance `json:"occupant,omitempty"`
	CapBlocked bool          `json:"capBlocked"`
}

// NeedsDecision reports whether the placement would displace a room.
func (p PlacementPreview) NeedsDecision() bool { return p.Occupant != nil }

// Place moves one inventory instance of templateID into cell, asking the
// configured Decider before displacing an occupant.
func (s *Service) Place(ctx context.Context, templateID string, cell int) (PlacementOutcome, Result, error) {
	return s.PlaceWithDecision(ctx, templateID, cell, DecisionAsk)
}

// PlaceWithDecision is Place with the replace answer supplied up front.
// DecisionAsk falls back to the Decider; without one an occupied cell yields
// ErrDecisionRequired.
func (s *Service) PlaceWithDecision(ctx context.Context, templateID string, cell int, decision Decision) (PlacementOutcome, Result, error) {
	var out PlacementOutcome
	res, err := s.run(ctx, "place", templateID, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			out, err = placeInto(tx, templateID, cell, s.waiver, s.confirmer(decision))
			return err
		})
	})
	return out, res, err
}

func (s *Service) confirmer(decision Decision) func(RoomInstance) (bool, error) {
	return func(occupant RoomInstance) (bool, error) {
		switch decision {
		case DecisionReplace:
			return true, nil
		case DecisionCancel:
			return false, nil
		}
		if s.decider == nil {
			return false, fmt.Errorf("cell holds %s: %w", occupant.Name, domain.ErrDecisionRequired)
		}
		return s.decider.ConfirmReplace(occupant.Name), nil
	}
}

// placeInto runs the placement steps inside tx. Any error aborts the
// transaction, which returns the taken instance to inventory.
func placeInto(tx Transaction, templateID string, cell int, waiver CapWaiver, confirm func(RoomInstance) (bool, error)) (PlacementOutcome, error) {
	view := tx.Snapshot()
	grid := view.Grid()
	if !grid.InBounds(cell) {
		return PlacementOutcome{}, fmt.Errorf("%w: %d", domain.ErrCellOutOfRange, cell)
	}
	inst, ok := tx.TakeFromInventory(templateID)
	if !ok {
		return PlacementOutcome{}, inventoryExhausted(templateID)
	}
	out := PlacementOutcome{Cell: cell}
	occupantID, occupied := grid.Occupant(cell)
	if !occupied {
		if err := checkCapacity(view.ListPlaced(), view.MaxRooms(), waiver); err != nil {
			return PlacementOutcome{}, err
		}
	} else {
		occupant, _ := view.FindPlaced(occupantID)
		replace, err := confirm(occupant)
		if err != nil {
			return PlacementOutcome{}, err
		}
		if !replace {
			return PlacementOutcome{}, fmt.Errorf("keep %s: %w", occupant.Name, domain.ErrReplaceCancelled)
		}
		displaced, err := tx.Unplace(occupantID)
		if err != nil {
			return PlacementOutcome{}, err
		}
		out.Displaced = &displaced
	}
	if err := tx.BindCell(cell, inst); err != nil {
		return PlacementOutcome{}, err
	}
	out.Placed = inst.Clone()
	return out, nil
}

func inventoryExhausted(templateID string) error {
	return fmt.Errorf("%w: %s", domain.ErrInventoryExhausted, templateID)
}

// PreviewPlacement inspects the committed session for a pending placement.
func (s *Service) PreviewPlacement(ctx context.Context, templateID string, cell int) (PlacementPreview, error) {
	var preview PlacementPreview
	err := s.store.View(ctx, func(view TransactionView) error {
		grid := view.Grid()
		if !grid.InBounds(cell) {
			return fmt.Errorf("%w: %d", domain.ErrCellOutOfRange, cell)
		}
		preview.Cell = cell
		preview.Coordinate = grid.IndexToCoordinate(cell)
		for _, inst := range view.ListInventory() {
			if inst.TemplateID == templateID {
				preview.Available++
			}
		}
		if id, ok := grid.Occupant(cell); ok {
			if occupant, found := view.FindPlaced(id); found {
				preview.Occupant = &occupant
			}
			return nil
		}
		preview.CapBlocked = checkCapacity(view.ListPlaced(), view.MaxRooms(), s.waiver) != nil
		return nil
	})
	return preview, err
}

// RemoveFromGrid clears the instance's cell, drops it from the placed set
// and its tuning, and returns it to inventory in one transaction.
func (s *Service) RemoveFromGrid(ctx context.Context, instanceID string) (RoomInstance, Result, error) {
	var removed RoomInstance
	res, err := s.run(ctx, "remove_from_grid", instanceID, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			removed, err = tx.Unplace(instanceID)
			return err
		})
	})
	return removed, res, err
}

// ResizeGrid resizes the grid (dimensions clamped to [1,20]) and returns the
// rooms that fell outside the kept overlap, now back in inventory.
func (s *Service) ResizeGrid(ctx context.Context, rows, cols int) ([]RoomInstance, Result, error) {
	var orphans []RoomInstance
	res, err := s.run(ctx, "resize_grid", fmt.Sprintf("%dx%d", rows, cols), func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			orphans, err = tx.ResizeGrid(rows, cols)
			return err
		})
	})
	return orphans, res, err
}
