package configkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Tree is the generic intermediate form used during (de)serialization: a
// string-keyed mapping that preserves insertion order. Values are nil, bool,
// numbers, strings, []any, or nested *Tree. It is the only representation
// ever written to or read from storage; the canonical (sorted-key) form used
// for fingerprinting is derived from it and never persisted.
type Tree struct {
	keys   []string
	values map[string]any
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{values: make(map[string]any)}
}

// Set stores v under key, appending the key if it is new and keeping its
// original position otherwise.
func (t *Tree) Set(key string, v any) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (any, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (t *Tree) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of keys.
func (t *Tree) Len() int { return len(t.keys) }

// MarshalJSON emits the mapping with keys in insertion order. Indentation is
// applied by the caller (json.MarshalIndent re-indents nested output).
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(t.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// yamlNode converts the tree to a yaml.Node mapping so that emission keeps
// the key order (yaml.Marshal of a Go map would sort keys).
func (t *Tree) yamlNode() (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range t.keys {
		kn := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		vn, err := yamlValueNode(t.values[k])
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, kn, vn)
	}
	return n, nil
}

func yamlValueNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *Tree:
		return x.yamlNode()
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, el := range x {
			en, err := yamlValueNode(el)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	default:
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return &n, nil
	}
}

// canonical returns the sorted-key JSON encoding used only for
// fingerprinting. encoding/json marshals map keys in lexicographic order at
// every nesting level, which is exactly the canonical form required.
func (t *Tree) canonical() ([]byte, error) {
	return json.Marshal(flattenValue(t))
}

func flattenValue(v any) any {
	switch x := v.(type) {
	case *Tree:
		m := make(map[string]any, len(x.keys))
		for k, el := range x.values {
			m[k] = flattenValue(el)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = flattenValue(el)
		}
		return out
	default:
		return v
	}
}

// ToTree exports a record to its tree form: a mapping from field key to
// value, with nested records recursively expanded, sequences and mappings
// converted elementwise, and scalars passed through. No field is omitted and
// no extra key is added. The returned tree shares no state with the record.
func ToTree(rec Record) (*Tree, error) {
	v := reflect.ValueOf(rec)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: nil record", ErrEncode)
		}
		v = v.Elem()
	}
	return treeOf(v)
}

func treeOf(v reflect.Value) (*Tree, error) {
	s, err := schemaFor(v.Type())
	if err != nil {
		return nil, err
	}
	t := NewTree()
	for _, f := range s.Fields {
		ev, err := exportValue(v.Field(f.Index))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Type.Name(), f.Key, err)
		}
		t.Set(f.Key, ev)
	}
	return t, nil
}

func exportValue(v reflect.Value) (any, error) {
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		return exportValue(v.Elem())
	}
	if v.Type() == durationType {
		return v.Interface().(time.Duration).String(), nil
	}
	if isRecordStruct(v.Type()) {
		return treeOf(v)
	}
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			ev, err := exportValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		keys := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().String())
		}
		// Go map iteration order is random; sort for stable emission.
		sort.Strings(keys)
		out := NewTree()
		for _, k := range keys {
			ev, err := exportValue(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())))
			if err != nil {
				return nil, err
			}
			out.Set(k, ev)
		}
		return out, nil
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.Interface(), nil
	default:
		return nil, fmt.Errorf("%w: cannot export %s", ErrEncode, v.Type())
	}
}
