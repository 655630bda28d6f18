package configkit

import (
	"errors"
	"testing"
)

func TestSchemaOfFields(t *testing.T) {
	s, err := SchemaOf[ComplexConfig]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantKeys := []string{"name", "list_of_simple", "dict_of_simple"}
	if len(s.Fields) != len(wantKeys) {
		t.Fatalf("fields: got %d, want %d", len(s.Fields), len(wantKeys))
	}
	for i, k := range wantKeys {
		if s.Fields[i].Key != k {
			t.Fatalf("field %d key: got %q, want %q", i, s.Fields[i].Key, k)
		}
	}

	wantKinds := []Kind{KindScalar, KindSequence, KindMapping}
	for i, k := range wantKinds {
		if s.Fields[i].Type.Kind != k {
			t.Fatalf("field %q kind: got %v, want %v", s.Fields[i].Key, s.Fields[i].Type.Kind, k)
		}
	}
	if elem := s.Fields[1].Type.Elem; elem == nil || elem.Kind != KindRecord {
		t.Fatalf("list_of_simple element: expected nested record, got %+v", elem)
	}
	if elem := s.Fields[2].Type.Elem; elem == nil || elem.Kind != KindRecord {
		t.Fatalf("dict_of_simple element: expected nested record, got %+v", elem)
	}

	if f, ok := s.FieldByKey("list_of_simple"); !ok || f.Name != "ListOfSimple" {
		t.Fatalf("FieldByKey(list_of_simple): got %+v, ok=%v", f, ok)
	}
}

func TestSchemaOfDefaultsAndOptional(t *testing.T) {
	s, err := SchemaOf[ServerConfig]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	host, _ := s.FieldByKey("host")
	if !host.HasDefault || host.Default != "localhost" {
		t.Fatalf("host default: got %+v", host)
	}
	timeout, _ := s.FieldByKey("timeout")
	if timeout.Type.Kind != KindScalar {
		t.Fatalf("duration must be scalar, got %v", timeout.Type.Kind)
	}
	debug, ok := s.FieldByKey("debug")
	if !ok || debug.HasDefault {
		t.Fatalf("debug: got %+v, ok=%v", debug, ok)
	}
}

func TestSchemaOfKeyNaming(t *testing.T) {
	type TaggedRecord struct {
		Base
		PlainName  string
		JSONTagged int    `json:"json_key"`
		YAMLWins   int    `yaml:"yaml_key" json:"ignored"`
		OmitEmpty  string `yaml:"oe,omitempty"`
		Skipped    string `yaml:"-"`
		ApiKey2FA  string
	}
	s, err := schemaFor(typeOf[TaggedRecord](t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"PlainName":  "plain_name",
		"JSONTagged": "json_key",
		"YAMLWins":   "yaml_key",
		"OmitEmpty":  "oe",
		"ApiKey2FA":  "api_key2fa",
	}
	if len(s.Fields) != len(want) {
		t.Fatalf("fields: got %d, want %d (Skipped must be excluded)", len(s.Fields), len(want))
	}
	for _, f := range s.Fields {
		if want[f.Name] != f.Key {
			t.Fatalf("%s: got key %q, want %q", f.Name, f.Key, want[f.Name])
		}
	}
}

func TestSchemaOfRejections(t *testing.T) {
	type plainInner struct{ X int }

	type withPlainStruct struct {
		Base
		Inner plainInner `yaml:"inner"`
	}
	type withChan struct {
		Base
		C chan int `yaml:"c"`
	}
	type withIntKeyedMap struct {
		Base
		M map[int]string `yaml:"m"`
	}
	type withUnknownUnion struct {
		Base
		U any `yaml:"u" record:"NoSuchConfig"`
	}
	type cycleNode struct {
		Base
		Next *cycleNode `yaml:"next"`
	}

	tests := []struct {
		name  string
		build func() error
	}{
		{"plain struct field without Base", func() error { _, err := schemaFor(typeOf[withPlainStruct](t)); return err }},
		{"chan field", func() error { _, err := schemaFor(typeOf[withChan](t)); return err }},
		{"non-string map key", func() error { _, err := schemaFor(typeOf[withIntKeyedMap](t)); return err }},
		{"unregistered union alternative", func() error { _, err := schemaFor(typeOf[withUnknownUnion](t)); return err }},
		{"cyclic nesting", func() error { _, err := schemaFor(typeOf[cycleNode](t)); return err }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("expected ErrSchema, got %v", err)
			}
		})
	}
}

func TestSchemaOfUnionAlternatives(t *testing.T) {
	s, err := SchemaOf[PathResolvingConfig]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nested, ok := s.FieldByKey("nested")
	if !ok || nested.Type.Kind != KindUnion {
		t.Fatalf("nested: got %+v, ok=%v", nested, ok)
	}
	if len(nested.Type.Alts) != 1 || nested.Type.Alts[0].Name() != "SimpleConfig" {
		t.Fatalf("alternatives: got %v", nested.Type.Alts)
	}
}
