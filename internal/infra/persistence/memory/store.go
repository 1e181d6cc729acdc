// Package memory provides an in-memory implementation of the session
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"shipyard/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// RoomInstance aliases domain.RoomInstance for in-memory persistence operations.
	RoomInstance = domain.RoomInstance
	// Session aliases domain.Session.
	Session = domain.Session
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// Store provides an in-memory transactional store for a single session.
type Store struct {
	mu     sync.RWMutex
	state  Session
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  domain.NewSession(),
		engine: engine,
	}
}

// ExportState clones the current session for external persistence.
func (s *Store) ExportState() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// ImportState replaces the store state with the provided session.
func (s *Store) ImportState(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = normalizeSession(session.Clone())
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Nothing fn does is visible unless it returns nil and no blocking rule fires.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.Clone()}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.Clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func normalizeSession(s Session) Session {
	if s.Grid.Rows == 0 || s.Grid.Cols == 0 || len(s.Grid.Cells) != s.Grid.Rows*s.Grid.Cols {
		s.Grid = domain.NewGrid(s.Grid.Rows, s.Grid.Cols)
	}
	if s.Inventory == nil {
		s.Inventory = []RoomInstance{}
	}
	if s.Placed == nil {
		s.Placed = make(map[string]RoomInstance)
	}
	if s.Tuned == nil {
		s.Tuned = make(map[string]struct{})
	}
	if s.MaxRooms == 0 {
		s.MaxRooms = domain.DefaultMaxRooms
	}
	return s
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *Session
}

func newTransactionView(state *Session) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) Grid() domain.Grid { return v.state.Grid.Clone() }

func (v transactionView) ListInventory() []RoomInstance {
	out := make([]RoomInstance, 0, len(v.state.Inventory))
	for _, inst := range v.state.Inventory {
		out = append(out, inst.Clone())
	}
	return out
}

func (v transactionView) ListPlaced() []RoomInstance { return v.state.PlacedList() }

func (v transactionView) FindPlaced(id string) (RoomInstance, bool) {
	inst, ok := v.state.Placed[id]
	if !ok {
		return RoomInstance{}, false
	}
	return inst.Clone(), true
}

func (v transactionView) FindInventory(id string) (RoomInstance, bool) {
	for _, inst := range v.state.Inventory {
		if inst.InstanceID == id {
			return inst.Clone(), true
		}
	}
	return RoomInstance{}, false
}

func (v transactionView) PilotSkill() int { return v.state.PilotSkill }

func (v transactionView) Surge() int { return v.state.Surge }

func (v transactionView) MaxRooms() int { return v.state.MaxRooms }

func (v transactionView) IsTuned(id string) bool { return v.state.IsTuned(id) }

func (v transactionView) Session() Session { return v.state.Clone() }

// transaction represents a mutation set applied to a cloned session.
type transaction struct {
	state   Session
	changes []Change
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// AddToInventory appends an unplaced instance.
func (tx *transaction) AddToInventory(inst RoomInstance) (RoomInstance, error) {
	if inst.InstanceID == "" {
		return RoomInstance{}, fmt.Errorf("instance id is required")
	}
	if tx.known(inst.InstanceID) {
		return RoomInstance{}, fmt.Errorf("instance %q already exists", inst.InstanceID)
	}
	inst.SetHealth(inst.HP)
	tx.state.Inventory = append(tx.state.Inventory, inst.Clone())
	tx.recordChange(Change{Action: domain.ActionCreate, InstanceID: inst.InstanceID, Cell: -1, After: inst.Clone()})
	return inst.Clone(), nil
}

// TakeFromInventory removes and returns the first inventory instance of templateID.
func (tx *transaction) TakeFromInventory(templateID string) (RoomInstance, bool) {
	for i, inst := range tx.state.Inventory {
		if inst.TemplateID != templateID {
			continue
		}
		tx.state.Inventory = append(tx.state.Inventory[:i], tx.state.Inventory[i+1:]...)
		return inst, true
	}
	return RoomInstance{}, false
}

// RemoveFromInventory deletes an unplaced instance by id.
func (tx *transaction) RemoveFromInventory(instanceID string) (RoomInstance, error) {
	for i, inst := range tx.state.Inventory {
		if inst.InstanceID != instanceID {
			continue
		}
		tx.state.Inventory = append(tx.state.Inventory[:i], tx.state.Inventory[i+1:]...)
		tx.recordChange(Change{Action: domain.ActionDiscard, InstanceID: instanceID, Cell: -1, Before: inst.Clone()})
		return inst, nil
	}
	return RoomInstance{}, fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, instanceID)
}

// BindCell places inst into an empty cell and the placed set.
func (tx *transaction) BindCell(index int, inst RoomInstance) error {
	if !tx.state.Grid.InBounds(index) {
		return fmt.Errorf("%w: %d", domain.ErrCellOutOfRange, index)
	}
	if occupant, ok := tx.state.Grid.Occupant(index); ok {
		return fmt.Errorf("cell %d already holds %s", index, occupant)
	}
	if inst.InstanceID == "" {
		return fmt.Errorf("instance id is required")
	}
	if _, placed := tx.state.Placed[inst.InstanceID]; placed {
		return fmt.Errorf("instance %q is already placed", inst.InstanceID)
	}
	tx.state.Grid.Cells[index] = inst.InstanceID
	tx.state.Placed[inst.InstanceID] = inst.Clone()
	tx.recordChange(Change{Action: domain.ActionPlace, InstanceID: inst.InstanceID, Cell: index, After: inst.Clone()})
	return nil
}

// ClearCell empties the cell referencing instanceID without touching the placed set.
func (tx *transaction) ClearCell(instanceID string) (int, bool) {
	idx, ok := tx.state.Grid.LocateInstance(instanceID)
	if !ok {
		return 0, false
	}
	tx.state.Grid.Cells[idx] = ""
	return idx, true
}

// Unplace clears the instance's cell, removes it from the placed set, drops
// any tuning and returns it to inventory with its current health.
func (tx *transaction) Unplace(instanceID string) (RoomInstance, error) {
	inst, ok := tx.state.Placed[instanceID]
	if !ok {
		return RoomInstance{}, fmt.Errorf("%w: %s", domain.ErrNotPlaced, instanceID)
	}
	cell, _ := tx.ClearCell(instanceID)
	delete(tx.state.Placed, instanceID)
	delete(tx.state.Tuned, instanceID)
	tx.state.Inventory = append(tx.state.Inventory, inst.Clone())
	tx.recordChange(Change{Action: domain.ActionUnplace, InstanceID: instanceID, Cell: cell, Before: inst.Clone()})
	return inst.Clone(), nil
}

// ResizeGrid resizes the grid and unplaces every instance that fell outside
// the retained overlap. The orphans are returned in their former cell order.
func (tx *transaction) ResizeGrid(rows, cols int) ([]RoomInstance, error) {
	before := tx.state.Grid
	next := before.Resized(rows, cols)
	orphanIDs := before.Orphans(next)
	tx.state.Grid = next
	tx.recordChange(Change{
		Action: domain.ActionResize,
		Cell:   -1,
		Before: domain.Coordinate{Row: before.Rows, Col: before.Cols},
		After:  domain.Coordinate{Row: next.Rows, Col: next.Cols},
	})
	orphans := make([]RoomInstance, 0, len(orphanIDs))
	for _, id := range orphanIDs {
		inst, err := tx.Unplace(id)
		if err != nil {
			return nil, err
		}
		orphans = append(orphans, inst)
	}
	return orphans, nil
}

// UpdateInstance mutates a placed or inventory instance; health is re-clamped
// and the id is preserved.
func (tx *transaction) UpdateInstance(id string, mutator func(*RoomInstance) error) (RoomInstance, error) {
	if current, ok := tx.state.Placed[id]; ok {
		updated, err := tx.applyUpdate(current, mutator)
		if err != nil {
			return RoomInstance{}, err
		}
		tx.state.Placed[id] = updated
		return updated.Clone(), nil
	}
	for i, current := range tx.state.Inventory {
		if current.InstanceID != id {
			continue
		}
		updated, err := tx.applyUpdate(current, mutator)
		if err != nil {
			return RoomInstance{}, err
		}
		tx.state.Inventory[i] = updated
		return updated.Clone(), nil
	}
	return RoomInstance{}, fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, id)
}

func (tx *transaction) applyUpdate(current RoomInstance, mutator func(*RoomInstance) error) (RoomInstance, error) {
	before := current.Clone()
	working := current.Clone()
	if err := mutator(&working); err != nil {
		return RoomInstance{}, err
	}
	working.InstanceID = before.InstanceID
	working.SetHealth(working.HP)
	tx.recordChange(Change{Action: domain.ActionUpdate, InstanceID: before.InstanceID, Cell: -1, Before: before, After: working.Clone()})
	return working, nil
}

// SetPilotSkill stores the clamped pilot skill and returns it.
func (tx *transaction) SetPilotSkill(n int) int {
	before := tx.state.PilotSkill
	tx.state.PilotSkill = domain.ClampPilotSkill(n)
	tx.recordChange(Change{Action: domain.ActionScalar, Cell: -1, Before: before, After: tx.state.PilotSkill})
	return tx.state.PilotSkill
}

// SetSurge stores the surge energy, floored at zero.
func (tx *transaction) SetSurge(n int) {
	before := tx.state.Surge
	tx.state.Surge = max(n, 0)
	tx.recordChange(Change{Action: domain.ActionScalar, Cell: -1, Before: before, After: tx.state.Surge})
}

// SetMaxRooms stores the room cap; only the configured tiers are accepted.
func (tx *transaction) SetMaxRooms(n int) error {
	if !domain.ValidRoomCap(n) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidRoomCap, n)
	}
	before := tx.state.MaxRooms
	tx.state.MaxRooms = n
	tx.recordChange(Change{Action: domain.ActionScalar, Cell: -1, Before: before, After: n})
	return nil
}

// SetTuned flags or unflags a placed instance as tuned.
func (tx *transaction) SetTuned(id string, tuned bool) error {
	if !tuned {
		delete(tx.state.Tuned, id)
		tx.recordChange(Change{Action: domain.ActionUpdate, InstanceID: id, Cell: -1, Before: true, After: false})
		return nil
	}
	if _, ok := tx.state.Placed[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotPlaced, id)
	}
	tx.state.Tuned[id] = struct{}{}
	tx.recordChange(Change{Action: domain.ActionUpdate, InstanceID: id, Cell: -1, Before: false, After: true})
	return nil
}

// ClearLayout empties the grid, inventory, placed set and tuning while
// keeping grid dimensions and session scalars.
func (tx *transaction) ClearLayout() {
	before := tx.state.Clone()
	tx.state.Grid = domain.NewGrid(tx.state.Grid.Rows, tx.state.Grid.Cols)
	tx.state.Inventory = []RoomInstance{}
	tx.state.Placed = make(map[string]RoomInstance)
	tx.state.Tuned = make(map[string]struct{})
	tx.recordChange(Change{Action: domain.ActionReplace, Cell: -1, Before: before})
}

// ReplaceSession swaps the whole session for next after checking it is consistent.
func (tx *transaction) ReplaceSession(next Session) error {
	next = normalizeSession(next.Clone())
	if err := next.CheckConsistency(); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	before := tx.state.Clone()
	tx.state = next
	tx.recordChange(Change{Action: domain.ActionReplace, Cell: -1, Before: before, After: next.Clone()})
	return nil
}

func (tx *transaction) known(id string) bool {
	if _, ok := tx.state.Placed[id]; ok {
		return true
	}
	for _, inst := range tx.state.Inventory {
		if inst.InstanceID == id {
			return true
		}
	}
	return false
}
