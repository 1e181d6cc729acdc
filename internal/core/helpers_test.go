package core

import (
	"context"
	"fmt"
	"testing"

	"shipyard/pkg/catalog"
	"shipyard/pkg/domain"
	"shipyard/pkg/sessiondoc"
)

// upgradedCockpit is not part of the embedded catalog; it trips the
// cockpit-upgrade waiver by name.
var upgradedCockpit = domain.Template{
	ID:       "cp_mk2",
	Category: domain.CategoryCockpit,
	Letter:   "C",
	Name:     "Cockpit Mk II",
	HPMax:    5,
	Cost:     60,
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	templates := append(catalog.Default().Templates(), upgradedCockpit)
	cat, err := catalog.New(templates)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("room-%03d", n), nil
	}
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	return NewInMemoryService(nil, testCatalog(t), opts...)
}

func mustAdd(t *testing.T, svc *Service, templateID string) RoomInstance {
	t.Helper()
	inst, _, err := svc.AddToInventory(context.Background(), templateID)
	if err != nil {
		t.Fatalf("add %s: %v", templateID, err)
	}
	return inst
}

func mustPlace(t *testing.T, svc *Service, templateID string, cell int) RoomInstance {
	t.Helper()
	mustAdd(t, svc, templateID)
	out, _, err := svc.Place(context.Background(), templateID, cell)
	if err != nil {
		t.Fatalf("place %s at %d: %v", templateID, cell, err)
	}
	return out.Placed
}

func mustSession(t *testing.T, svc *Service) Session {
	t.Helper()
	s, err := svc.Session(context.Background())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := s.CheckConsistency(); err != nil {
		t.Fatalf("inconsistent session: %v", err)
	}
	return s
}

func encoded(t *testing.T, svc *Service) string {
	t.Helper()
	doc, err := sessiondoc.Encode(mustSession(t, svc))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(doc)
}

func instance(t *testing.T, templateID, id string) RoomInstance {
	t.Helper()
	tmpl, ok := testCatalog(t).Lookup(templateID)
	if !ok {
		t.Fatalf("missing template %s", templateID)
	}
	return domain.NewRoomInstance(id, tmpl)
}

// placedSession binds insts to consecutive cells of a default grid.
func placedSession(insts ...RoomInstance) Session {
	s := domain.NewSession()
	for i, inst := range insts {
		s.Grid.Cells[i] = inst.InstanceID
		s.Placed[inst.InstanceID] = inst
	}
	return s
}

func inventoryIDs(s Session) map[string]RoomInstance {
	out := make(map[string]RoomInstance, len(s.Inventory))
	for _, inst := range s.Inventory {
		out[inst.InstanceID] = inst
	}
	return out
}

// sessionView exposes a Session as a RuleView for rule tests.
type sessionView struct {
	s Session
}

func (v sessionView) Grid() Grid { return v.s.Grid.Clone() }
func (v sessionView) ListInventory() []RoomInstance {
	return append([]RoomInstance(nil), v.s.Inventory...)
}
func (v sessionView) ListPlaced() []RoomInstance { return v.s.PlacedList() }
func (v sessionView) PilotSkill() int            { return v.s.PilotSkill }
func (v sessionView) Surge() int                 { return v.s.Surge }
func (v sessionView) MaxRooms() int              { return v.s.MaxRooms }
func (v sessionView) IsTuned(id string) bool     { return v.s.IsTuned(id) }
func (v sessionView) FindPlaced(id string) (RoomInstance, bool) {
	inst, ok := v.s.Placed[id]
	return inst, ok
}
func (v sessionView) FindInventory(id string) (RoomInstance, bool) {
	for _, inst := range v.s.Inventory {
		if inst.InstanceID == id {
			return inst, true
		}
	}
	return RoomInstance{}, false
}
