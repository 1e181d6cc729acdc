package domain

import "context"

// Transaction exposes the session mutations a persistence implementation
// must support within an atomic scope. Nothing is visible outside the
// transaction until the store commits it.
type Transaction interface {
	Snapshot() TransactionView
	AddToInventory(RoomInstance) (RoomInstance, error)
	TakeFromInventory(templateID string) (RoomInstance, bool)
	RemoveFromInventory(instanceID string) (RoomInstance, error)
	BindCell(index int, inst RoomInstance) error
	ClearCell(instanceID string) (int, bool)
	Unplace(instanceID string) (RoomInstance, error)
	ResizeGrid(rows, cols int) ([]RoomInstance, error)
	UpdateInstance(id string, mutator func(*RoomInstance) error) (RoomInstance, error)
	SetPilotSkill(n int) int
	SetSurge(n int)
	SetMaxRooms(n int) error
	SetTuned(id string, tuned bool) error
	ClearLayout()
	ReplaceSession(Session) error
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	Session() Session
}

// PersistentStore is a minimal abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	ExportState() Session
	ImportState(Session)
}
