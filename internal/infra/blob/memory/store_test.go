package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"shipyard/internal/blob/core"
)

func TestStoreCRUD(t *testing.T) {
	store := New()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	ctx := context.Background()

	info, err := store.Put(ctx, "sessions/a.json", bytes.NewBufferString("payload"), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ETag == "" || !info.LastModified.Equal(fixed) {
		t.Fatalf("unexpected info %+v", info)
	}
	info.Metadata["k"] = "mutated"
	head, err := store.Head(ctx, "sessions/a.json")
	if err != nil || head.Metadata["k"] != "v" {
		t.Fatalf("metadata leaked or head failed: %+v %v", head, err)
	}
	_, rc, err := store.Get(ctx, "sessions/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "payload" {
		t.Fatalf("unexpected payload %s", b)
	}

	if _, err := store.Put(ctx, "sessions/a.json", bytes.NewBufferString("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, "sessions/a.json", bytes.NewBufferString("xy"), core.PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if head, _ := store.Head(ctx, "sessions/a.json"); head.Size != 2 {
		t.Fatalf("expected overwritten size 2, got %d", head.Size)
	}
	if _, err := store.Put(ctx, "other", bytes.NewBufferString("o"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	if list, err := store.List(ctx, "sessions/"); err != nil || len(list) != 1 {
		t.Fatalf("list prefix: %v %d", err, len(list))
	}
	if list, err := store.List(ctx, ""); err != nil || len(list) != 2 || list[0].Key != "other" {
		t.Fatalf("list all: %v %v", err, list)
	}
	if ok, err := store.Delete(ctx, "other"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "other"); err != nil || ok {
		t.Fatalf("expected delete false")
	}
}

func TestStoreMissingAndErrors(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Put(ctx, " ", bytes.NewBufferString("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	if _, err := store.Put(ctx, "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign")
	}
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }
