package configkit

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Kind classifies the shape of a declared field. The resolver dispatches on
// it; nothing mutates a descriptor after derivation.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
	KindUnion
	KindRecord
)

// FieldType describes the declared shape of a field. For sequences and
// mappings Elem describes the element shape; for nested records Record holds
// the record struct type (never a pointer type); for unions Alts lists the
// admissible record types in declaration order.
type FieldType struct {
	Kind   Kind
	Elem   *FieldType
	Record reflect.Type
	Ptr    bool
	Alts   []reflect.Type
}

// Field is one declared field of a record type.
type Field struct {
	Name       string // Go struct field name
	Key        string // mapping key used in files and trees
	Index      int    // struct field index
	GoType     reflect.Type
	Type       FieldType
	Default    string // raw `default` tag value
	HasDefault bool
}

// Schema enumerates the declared fields of a record type in declaration
// order. It is derived once per type and cached; no instance is required.
type Schema struct {
	Type   reflect.Type
	Fields []Field

	byKey map[string]int
}

// FieldByKey returns the declared field for a mapping key.
func (s *Schema) FieldByKey(key string) (Field, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

var schemaCache sync.Map // reflect.Type -> *Schema

// SchemaOf returns the derived schema for record type T. The schema is built
// on first use and cached. Declarations with cyclic nesting, struct fields
// that do not embed Base, or unsupported field types are rejected with an
// error wrapping ErrSchema.
func SchemaOf[T Record]() (*Schema, error) {
	return schemaFor(reflect.TypeOf((*T)(nil)).Elem())
}

func schemaFor(t reflect.Type) (*Schema, error) {
	if s, ok := schemaCache.Load(t); ok {
		return s.(*Schema), nil
	}
	s, err := buildSchema(t, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	actual, _ := schemaCache.LoadOrStore(t, s)
	return actual.(*Schema), nil
}

// buildSchema derives the schema for t. seen holds the record types currently
// on the derivation stack; revisiting one means the declaration graph is
// cyclic, which cannot terminate at resolution time and is rejected here.
func buildSchema(t reflect.Type, seen map[reflect.Type]bool) (*Schema, error) {
	if !isRecordStruct(t) {
		return nil, fmt.Errorf("%w: %s is not a struct embedding configkit.Base", ErrSchema, t)
	}
	if seen[t] {
		return nil, fmt.Errorf("%w: cyclic nesting through %s", ErrSchema, t)
	}
	seen[t] = true
	defer delete(seen, t)

	s := &Schema{Type: t, byKey: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type == baseType {
			continue
		}
		if sf.PkgPath != "" { // unexported
			continue
		}
		key := keyFor(sf)
		if key == "-" {
			continue
		}
		ft, err := buildFieldType(sf.Type, sf.Tag.Get("record"), seen)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrSchema, t.Name(), sf.Name, err)
		}
		def, hasDef := sf.Tag.Lookup("default")
		s.byKey[key] = len(s.Fields)
		s.Fields = append(s.Fields, Field{
			Name:       sf.Name,
			Key:        key,
			Index:      i,
			GoType:     sf.Type,
			Type:       ft,
			Default:    def,
			HasDefault: hasDef,
		})
	}
	return s, nil
}

func buildFieldType(t reflect.Type, recordTag string, seen map[reflect.Type]bool) (FieldType, error) {
	switch {
	case t == durationType:
		return FieldType{Kind: KindScalar}, nil

	case isRecordStruct(t):
		if _, err := buildSchema(t, seen); err != nil {
			return FieldType{}, err
		}
		return FieldType{Kind: KindRecord, Record: t}, nil

	case t.Kind() == reflect.Pointer && isRecordStruct(t.Elem()):
		if _, err := buildSchema(t.Elem(), seen); err != nil {
			return FieldType{}, err
		}
		return FieldType{Kind: KindRecord, Record: t.Elem(), Ptr: true}, nil

	case t.Kind() == reflect.Pointer:
		// Optional field; the element shape drives resolution.
		return buildFieldType(t.Elem(), recordTag, seen)

	case t.Kind() == reflect.Slice:
		elem, err := buildFieldType(t.Elem(), recordTag, seen)
		if err != nil {
			return FieldType{}, err
		}
		return FieldType{Kind: KindSequence, Elem: &elem}, nil

	case t.Kind() == reflect.Map:
		if t.Key().Kind() != reflect.String {
			return FieldType{}, fmt.Errorf("mapping key type %s is not a string", t.Key())
		}
		elem, err := buildFieldType(t.Elem(), recordTag, seen)
		if err != nil {
			return FieldType{}, err
		}
		return FieldType{Kind: KindMapping, Elem: &elem}, nil

	case t.Kind() == reflect.Interface:
		if recordTag == "" {
			// A bare interface field holds whatever the codec produced.
			return FieldType{Kind: KindScalar}, nil
		}
		var alts []reflect.Type
		for _, name := range strings.Split(recordTag, ",") {
			name = strings.TrimSpace(name)
			rt, ok := registeredType(name)
			if !ok {
				return FieldType{}, fmt.Errorf("union alternative %q is not a registered record type", name)
			}
			if _, err := buildSchema(rt, seen); err != nil {
				return FieldType{}, err
			}
			alts = append(alts, rt)
		}
		return FieldType{Kind: KindUnion, Alts: alts}, nil

	case t.Kind() == reflect.Struct:
		return FieldType{}, fmt.Errorf("struct type %s does not embed configkit.Base", t)

	case t.Kind() == reflect.Bool,
		t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64,
		t.Kind() == reflect.Float32, t.Kind() == reflect.Float64,
		t.Kind() == reflect.String:
		return FieldType{Kind: KindScalar}, nil

	default:
		return FieldType{}, fmt.Errorf("unsupported field type %s", t)
	}
}

// keyFor picks the mapping key for a struct field: the yaml tag, then the
// json tag, then the field name in snake_case.
func keyFor(sf reflect.StructField) string {
	for _, tag := range []string{"yaml", "json"} {
		v := sf.Tag.Get(tag)
		if v == "" {
			continue
		}
		if idx := strings.IndexByte(v, ','); idx >= 0 {
			v = v[:idx]
		}
		if v != "" {
			return v
		}
	}
	return toSnake(sf.Name)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && isBoundary(rune(s[i-1]), r) {
			b.WriteByte('_')
		}
		b.WriteRune(toLower(r))
	}
	return b.String()
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r - 'A' + 'a'
	}
	return r
}
