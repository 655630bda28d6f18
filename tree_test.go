package configkit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestTreeInsertionOrder(t *testing.T) {
	tr := NewTree()
	tr.Set("zebra", 1)
	tr.Set("alpha", "x")
	tr.Set("zebra", 2) // re-set keeps the original position

	keys := tr.Keys()
	if len(keys) != 2 || keys[0] != "zebra" || keys[1] != "alpha" {
		t.Fatalf("keys: got %v, want [zebra alpha]", keys)
	}
	if v, ok := tr.Get("zebra"); !ok || v != 2 {
		t.Fatalf("Get(zebra): got %v, %v", v, ok)
	}
	if tr.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", tr.Len())
	}
}

func TestTreeMarshalJSONKeepsOrder(t *testing.T) {
	inner := NewTree()
	inner.Set("k", true)

	tr := NewTree()
	tr.Set("zebra", 1)
	tr.Set("alpha", "x")
	tr.Set("middle", inner)

	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"zebra":1,"alpha":"x","middle":{"k":true}}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestTreeCanonicalSortsKeys(t *testing.T) {
	a := NewTree()
	a.Set("zebra", 1)
	a.Set("alpha", "x")

	b := NewTree()
	b.Set("alpha", "x")
	b.Set("zebra", 1)

	ca, err := a.canonical()
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	cb, err := b.canonical()
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("canonical form depends on insertion order: %s vs %s", ca, cb)
	}
	want := `{"alpha":"x","zebra":1}`
	if string(ca) != want {
		t.Fatalf("canonical: got %s, want %s", ca, want)
	}
}

func TestToTreeExportsDeclarationOrder(t *testing.T) {
	cfg := ServerConfig{
		Host:    "db.internal",
		Port:    5432,
		Timeout: 30 * time.Second,
	}
	tr, err := ToTree(cfg)
	if err != nil {
		t.Fatalf("ToTree: %v", err)
	}
	wantKeys := []string{"host", "port", "timeout", "debug"}
	keys := tr.Keys()
	if len(keys) != len(wantKeys) {
		t.Fatalf("keys: got %v, want %v", keys, wantKeys)
	}
	for i, k := range wantKeys {
		if keys[i] != k {
			t.Fatalf("key %d: got %q, want %q", i, keys[i], k)
		}
	}
	if v, _ := tr.Get("timeout"); v != "30s" {
		t.Fatalf("timeout: got %v (%T), want \"30s\"", v, v)
	}
	if v, _ := tr.Get("debug"); v != nil {
		t.Fatalf("debug: got %v, want nil for unset optional", v)
	}
}

func TestToTreeNestedAndCollections(t *testing.T) {
	cfg := ComplexConfig{
		Name:         "cluster",
		ListOfSimple: []SimpleConfig{{Field1: 1, Field2: "a"}},
		DictOfSimple: map[string]SimpleConfig{
			"zeta":  {Field1: 2, Field2: "z"},
			"alpha": {Field1: 3, Field2: "b"},
		},
	}
	tr, err := ToTree(cfg)
	if err != nil {
		t.Fatalf("ToTree: %v", err)
	}

	list, _ := tr.Get("list_of_simple")
	seq, ok := list.([]any)
	if !ok || len(seq) != 1 {
		t.Fatalf("list_of_simple: got %T %v", list, list)
	}
	el, ok := seq[0].(*Tree)
	if !ok {
		t.Fatalf("list element: got %T, want *Tree", seq[0])
	}
	if v, _ := el.Get("field1"); v != 1 {
		t.Fatalf("list element field1: got %v", v)
	}

	dict, _ := tr.Get("dict_of_simple")
	dt, ok := dict.(*Tree)
	if !ok {
		t.Fatalf("dict_of_simple: got %T, want *Tree", dict)
	}
	// Map keys have no reliable Go-side order; emission sorts them.
	if keys := dt.Keys(); len(keys) != 2 || keys[0] != "alpha" || keys[1] != "zeta" {
		t.Fatalf("dict keys: got %v, want [alpha zeta]", dt.Keys())
	}
}

func TestToTreeNilRecordPointer(t *testing.T) {
	var p *SimpleConfig
	if _, err := ToTree(p); err == nil {
		t.Fatalf("expected error for nil record pointer")
	}
}
