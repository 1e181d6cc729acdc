package core

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, closeFn, err := OpenPersistentStore(StorageOptions{Driver: StorageMemory}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = closeFn() }()
	svc := NewService(store, testCatalog(t), WithIDGenerator(sequentialIDs()))
	mustPlace(t, svc, "eng_standard", 0)
	if s := mustSession(t, svc); len(s.Placed) != 1 {
		t.Fatalf("placed %d", len(s.Placed))
	}
}

func TestOpenPersistentStoreSQLitePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ship.db")
	opts := StorageOptions{Driver: StorageSQLite, SQLitePath: path}

	store, closeFn, err := OpenPersistentStore(opts, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	svc := NewService(store, testCatalog(t), WithIDGenerator(sequentialIDs()))
	placed := mustPlace(t, svc, "sh_standard", 8)
	if _, _, err := svc.SetPilotSkill(context.Background(), 7); err != nil {
		t.Fatalf("pilot: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, closeAgain, err := OpenPersistentStore(opts, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = closeAgain() }()
	s := NewService(reopened, testCatalog(t))
	got := mustSession(t, s)
	if got.Grid.Cells[8] != placed.InstanceID || got.PilotSkill != 7 {
		t.Fatalf("state not persisted: cell8=%q skill=%d", got.Grid.Cells[8], got.PilotSkill)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	if _, _, err := OpenPersistentStore(StorageOptions{Driver: "etcd"}, nil); err == nil {
		t.Fatal("expected unknown driver error")
	}
}
