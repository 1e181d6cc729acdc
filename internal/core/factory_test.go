package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"shipyard/pkg/catalog"
	"shipyard/pkg/domain"
)

func TestCreateInstanceCopiesTemplate(t *testing.T) {
	f := NewInstanceFactory(catalog.Default(), sequentialIDs())
	inst, err := f.CreateInstance("eng_standard")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.InstanceID != "room-001" || inst.TemplateID != "eng_standard" {
		t.Fatalf("unexpected identity %+v", inst)
	}
	if inst.HP != 5 || inst.HPMax != 5 || inst.Cost != 30 || inst.Maneuverability != 0 {
		t.Fatalf("unexpected figures %+v", inst)
	}
	if inst.Category != CategoryEngine {
		t.Fatalf("expected Engine category, got %s", inst.Category)
	}
}

func TestCreateInstanceUnknownTemplate(t *testing.T) {
	f := NewInstanceFactory(catalog.Default(), sequentialIDs())
	_, err := f.CreateInstance("nope")
	if !errors.Is(err, domain.ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
	var typed domain.UnknownTemplateError
	if !errors.As(err, &typed) || typed.TemplateID != "nope" {
		t.Fatalf("expected typed error carrying id, got %v", err)
	}
	if _, err := NewInstanceFactory(nil, nil).CreateInstance("eng_standard"); !errors.Is(err, domain.ErrUnknownTemplate) {
		t.Fatalf("nil template source should miss, got %v", err)
	}
}

func TestCreateInstanceDoesNotAliasTemplateLists(t *testing.T) {
	f := NewInstanceFactory(catalog.Default(), sequentialIDs())
	a, err := f.CreateInstance("eng_high_output")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := f.CreateInstance("eng_high_output")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.InstanceID == b.InstanceID {
		t.Fatalf("instances share id %s", a.InstanceID)
	}
	a.Traits[0] = "mutated"
	if b.Traits[0] == "mutated" {
		t.Fatal("instances share trait storage")
	}
	tmpl, _ := catalog.Default().Lookup("eng_high_output")
	if tmpl.Traits[0] == "mutated" {
		t.Fatal("instance aliases template traits")
	}
}

func TestCreateInstancePropagatesGeneratorError(t *testing.T) {
	boom := errors.New("entropy exhausted")
	f := NewInstanceFactory(catalog.Default(), func() (string, error) { return "", boom })
	if _, err := f.CreateInstance("eng_standard"); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestNewUUIDv7(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		id, err := NewUUIDv7()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("parse %s: %v", id, err)
		}
		if parsed.Version() != 7 {
			t.Fatalf("expected version 7, got %d", parsed.Version())
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
