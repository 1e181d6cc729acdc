package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"shipyard/pkg/domain"
)

func bindCockpit(tx domain.Transaction, id string, cell int) error {
	inst := domain.NewRoomInstance(id, domain.Template{ID: "cp_standard", Category: domain.CategoryCockpit, Name: "Cockpit", HPMax: 4})
	return tx.BindCell(cell, inst)
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := bindCockpit(tx, "cp-1", 4); err != nil {
			return err
		}
		tx.SetPilotSkill(6)
		return tx.SetMaxRooms(12)
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	got := reloaded.ExportState()
	if got.Grid.Cells[4] != "cp-1" || got.PilotSkill != 6 || got.MaxRooms != 12 {
		t.Fatalf("unexpected reloaded session %+v", got)
	}
}

func TestSQLiteStoreFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	boom := errors.New("boom")
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := bindCockpit(tx, "cp-1", 0); err != nil {
			return err
		}
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var n int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no persisted rows, got %d", n)
	}
}

func TestSQLiteStoreLoadInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, err := store.DB().Exec(`INSERT INTO state(bucket,payload) VALUES(?,?)`, sessionBucket, []byte(`{"version":2}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = store.Close()
	if _, err := NewStore(path, nil); !errors.Is(err, domain.ErrInvalidGrid) {
		t.Fatalf("expected invalid grid error, got %v", err)
	}
}
