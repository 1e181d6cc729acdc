package sessiondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"shipyard/pkg/catalog"
	"shipyard/pkg/domain"
)

func buildSession(t *testing.T) domain.Session {
	t.Helper()
	cat := catalog.Default()
	s := domain.NewSession()
	add := func(id, templateID string) domain.RoomInstance {
		tpl, ok := cat.Lookup(templateID)
		if !ok {
			t.Fatalf("template %s missing", templateID)
		}
		return domain.NewRoomInstance(id, tpl)
	}
	eng := add("eng-1", "eng_standard")
	eng.SetHealth(2)
	laser := add("wp-1", "wp_laser")
	s.Placed[eng.InstanceID] = eng
	s.Placed[laser.InstanceID] = laser
	s.Grid.Cells[0] = eng.InstanceID
	s.Grid.Cells[12] = laser.InstanceID
	s.Inventory = append(s.Inventory, add("sh-1", "sh_standard"))
	s.PilotSkill = 4
	s.Surge = 1
	s.MaxRooms = 9
	s.Tuned["wp-1"] = struct{}{}
	return s
}

func TestRoundTripPreservesSession(t *testing.T) {
	s := buildSession(t)
	data, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data, catalog.Default())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	again, err := Encode(got)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("round trip changed the document:\n%s\n---\n%s", data, again)
	}
	if got.Placed["eng-1"].HP != 2 {
		t.Fatalf("expected damaged engine hp to survive, got %d", got.Placed["eng-1"].HP)
	}
	if got.PilotSkill != 4 || got.Surge != 1 || got.MaxRooms != 9 || !got.IsTuned("wp-1") {
		t.Fatalf("scalars not preserved: %+v", got)
	}
}

func TestEncodeShape(t *testing.T) {
	data, err := Encode(buildSession(t))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["version"] != float64(2) {
		t.Fatalf("unexpected version %v", doc["version"])
	}
	if v, ok := doc["selectedTemplateId"]; !ok || v != nil {
		t.Fatalf("expected null selectedTemplateId, got %v", v)
	}
	grid := doc["grid"].(map[string]any)
	cells := grid["cells"].([]any)
	if len(cells) != 25 || cells[0] != "eng-1" || cells[1] != nil {
		t.Fatalf("unexpected cells %v", cells)
	}
	placed := doc["placed"].([]any)
	first := placed[0].([]any)
	if len(placed) != 2 || first[0] != "eng-1" {
		t.Fatalf("expected sorted [id, instance] pairs, got %v", placed)
	}
	if inst := first[1].(map[string]any); inst["instanceId"] != "eng-1" || inst["hp"] != float64(2) {
		t.Fatalf("unexpected placed instance %v", inst)
	}
	for _, key := range []string{"inventory", "pilotSkill", "shipSurge", "shipMaxRooms", "tunedRooms"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("missing key %s", key)
		}
	}
}

func TestDecodeRejectsVersions(t *testing.T) {
	base := `{"grid":{"rows":1,"cols":1,"cells":[null]}`
	for _, version := range []string{`3`, `0`, `"2"`, `null`} {
		_, err := Decode([]byte(base+`,"version":`+version+`}`), nil)
		if !errors.Is(err, domain.ErrUnsupportedVersion) {
			t.Fatalf("version %s: expected ErrUnsupportedVersion, got %v", version, err)
		}
		var typed domain.UnsupportedVersionError
		if !errors.As(err, &typed) {
			t.Fatalf("version %s: expected typed error", version)
		}
	}
	if _, err := Decode([]byte(base+`}`), nil); !errors.Is(err, domain.ErrUnsupportedVersion) {
		t.Fatalf("missing version: expected ErrUnsupportedVersion, got %v", err)
	}
	for _, version := range []string{`1`, `2`} {
		if _, err := Decode([]byte(base+`,"version":`+version+`}`), nil); err != nil {
			t.Fatalf("version %s: unexpected error %v", version, err)
		}
	}
}

func TestDecodeRejectsInvalidGrid(t *testing.T) {
	cases := map[string]string{
		"no grid":        `{"version":2}`,
		"no cells":       `{"version":2,"grid":{"rows":1,"cols":1}}`,
		"cells object":   `{"version":2,"grid":{"rows":1,"cols":1,"cells":{}}}`,
		"rows zero":      `{"version":2,"grid":{"rows":0,"cols":1,"cells":[]}}`,
		"cols too large": `{"version":2,"grid":{"rows":1,"cols":21,"cells":[]}}`,
		"length":         `{"version":2,"grid":{"rows":2,"cols":2,"cells":[null,null,null]}}`,
		"number cell":    `{"version":2,"grid":{"rows":1,"cols":2,"cells":[null,7]}}`,
		"duplicate id":   `{"version":2,"grid":{"rows":1,"cols":2,"cells":["a","a"]},"placed":[["a",{"instanceId":"a","hpMax":1,"hp":1}]]}`,
		"missing rows":   `{"version":2,"grid":{"cols":1,"cells":[null]}}`,
	}
	for name, doc := range cases {
		_, err := Decode([]byte(doc), nil)
		if !errors.Is(err, domain.ErrInvalidGrid) {
			t.Fatalf("%s: expected ErrInvalidGrid, got %v", name, err)
		}
	}
}

func TestDecodeVersionOneDefaultsGridSize(t *testing.T) {
	cells := strings.TrimSuffix(strings.Repeat("null,", 24), ",")
	doc := `{"version":1,"grid":{"cells":[` + cells + `,"a"]},"inventory":[],
		"placed":[["a",{"instanceId":"a","templateId":"wp_laser","type":"Weapon","name":"Laser","hpMax":4,"hp":4}]]}`
	s, err := Decode([]byte(doc), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Grid.Rows != domain.DefaultGridRows || s.Grid.Cols != domain.DefaultGridCols {
		t.Fatalf("expected default grid, got %dx%d", s.Grid.Rows, s.Grid.Cols)
	}
	if id, ok := s.Grid.Occupant(24); !ok || id != "a" {
		t.Fatalf("expected laser in last cell, got %q", id)
	}

	short := `{"version":1,"grid":{"cells":[null,null]}}`
	if _, err := Decode([]byte(short), nil); !errors.Is(err, domain.ErrInvalidGrid) {
		t.Fatalf("expected ErrInvalidGrid for short v1 grid, got %v", err)
	}
	if _, err := Decode([]byte(`{"version":1,"grid":{"rows":1,"cells":[`+cells+`]}}`), nil); !errors.Is(err, domain.ErrInvalidGrid) {
		t.Fatalf("expected ErrInvalidGrid for 1x5 grid with 24 cells, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, doc := range []string{`{`, `[]`, `{"version":2,"grid":{"rows":1,"cols":1,"cells":[null]},"placed":[["a"]]}`} {
		if _, err := Decode([]byte(doc), nil); !errors.Is(err, domain.ErrMalformedDocument) {
			t.Fatalf("%s: expected ErrMalformedDocument, got %v", doc, err)
		}
	}
}

func TestDecodeDefaultsAndClamps(t *testing.T) {
	doc := `{"version":1,"grid":{"rows":1,"cols":2,"cells":["a",null]},
		"placed":[["a",{"instanceId":"a","templateId":"eng_standard","type":"Engine","name":"E","hpMax":5,"hp":9}]],
		"shipMaxRooms":7,"pilotSkill":14,"futureField":true}`
	s, err := Decode([]byte(doc), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.MaxRooms != domain.DefaultMaxRooms || s.PilotSkill != domain.MaxPilotSkill || s.Surge != 0 {
		t.Fatalf("unexpected scalars %+v", s)
	}
	inst := s.Placed["a"]
	if inst.HP != 5 {
		t.Fatalf("expected hp clamped to 5, got %d", inst.HP)
	}
	if inst.Traits == nil || inst.Disabled == nil || inst.Stabilized == nil {
		t.Fatalf("expected normalized lists")
	}
	if len(s.Inventory) != 0 || len(s.Tuned) != 0 {
		t.Fatalf("expected empty inventory and tuning")
	}
}

func TestDecodeBackfillsFromTemplates(t *testing.T) {
	doc := `{"version":1,"grid":{"rows":1,"cols":1,"cells":["p"]},
		"inventory":[{"instanceId":"i","templateId":"wp_missile","type":"Weapon","name":"Missile Launcher","hpMax":5,"hp":5}],
		"placed":[["p",{"instanceId":"p","templateId":"sh_reinforced","type":"Shield","name":"Reinforced","hpMax":6,"hp":3,"cost":0}]]}`
	s, err := Decode([]byte(doc), catalog.Default())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := s.Inventory[0]; got.Damage != 5 || got.Cost != 35 {
		t.Fatalf("inventory not backfilled: %+v", got)
	}
	if got := s.Placed["p"]; got.Defense != 4 || got.Cost != 40 || got.HP != 3 {
		t.Fatalf("placed not backfilled: %+v", got)
	}

	s, err = Decode([]byte(doc), nil)
	if err != nil {
		t.Fatalf("decode without lookup: %v", err)
	}
	if s.Inventory[0].Damage != 0 {
		t.Fatalf("nil lookup must not backfill")
	}
}

func TestDecodeBackfillLeavesUnknownTemplates(t *testing.T) {
	doc := `{"version":2,"grid":{"rows":1,"cols":1,"cells":[null]},
		"inventory":[{"instanceId":"i","templateId":"retired_room","type":"Power","name":"Old","hpMax":2,"battery":7}]}`
	s, err := Decode([]byte(doc), catalog.Default())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Inventory[0].Battery != 7 || s.Inventory[0].Cost != 0 {
		t.Fatalf("unexpected instance %+v", s.Inventory[0])
	}
}

func TestDecodeReconciles(t *testing.T) {
	doc := `{"version":2,"grid":{"rows":1,"cols":3,"cells":["ghost","a",null]},
		"inventory":[{"instanceId":"a","hpMax":1},{"instanceId":"c","hpMax":1},{"instanceId":"c","hpMax":1}],
		"placed":[["a",{"instanceId":"a","hpMax":2,"hp":2}],["b",{"instanceId":"b","hpMax":1,"hp":1}]],
		"tunedRooms":["a","b","zzz"]}`
	s, err := Decode([]byte(doc), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Grid.Cells[0] != "" {
		t.Fatalf("expected dangling cell cleared")
	}
	if _, ok := s.Placed["b"]; ok {
		t.Fatalf("expected unreferenced placed entry moved out")
	}
	ids := make([]string, 0, len(s.Inventory))
	for _, inst := range s.Inventory {
		ids = append(ids, inst.InstanceID)
	}
	if strings.Join(ids, ",") != "c,b" {
		t.Fatalf("unexpected inventory %v", ids)
	}
	if tuned := s.TunedIDs(); len(tuned) != 1 || tuned[0] != "a" {
		t.Fatalf("unexpected tuned ids %v", tuned)
	}
	if err := s.CheckConsistency(); err != nil {
		t.Fatalf("decoded session inconsistent: %v", err)
	}
}
