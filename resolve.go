package configkit

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// fromTree constructs a record of type t from a parsed mapping. Keys that do
// not correspond to a declared field are dropped silently. A required field
// with no value fails with ErrMissingField; a value whose shape the declared
// field cannot accept fails with ErrTypeMismatch. On error no record is
// returned. The constructed record owns its field values; nothing references
// raw after construction.
func fromTree(t reflect.Type, raw map[string]any) (reflect.Value, error) {
	s, err := schemaFor(t)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(t).Elem()
	for _, f := range s.Fields {
		where := s.Type.Name() + "." + f.Key
		rv, ok := raw[f.Key]
		if !ok {
			switch {
			case f.HasDefault:
				if err := applyDefault(out.Field(f.Index), f); err != nil {
					return reflect.Value{}, fmt.Errorf("%s: %w", where, err)
				}
			case f.GoType.Kind() == reflect.Pointer:
				// optional, stays nil
			default:
				return reflect.Value{}, fmt.Errorf("%w: %s", ErrMissingField, where)
			}
			continue
		}
		resolved, err := resolveValue(rv, f.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%s: %w", where, err)
		}
		if err := assign(out.Field(f.Index), resolved, where); err != nil {
			return reflect.Value{}, err
		}
	}
	return out, nil
}

// mergeTree resolves raw against the schema of dst's type and assigns only
// the fields present in raw, leaving the rest untouched. Used by Provider,
// where absent fields keep their factory or model defaults.
func mergeTree(dst reflect.Value, raw map[string]any) error {
	s, err := schemaFor(dst.Type())
	if err != nil {
		return err
	}
	for _, f := range s.Fields {
		rv, ok := raw[f.Key]
		if !ok {
			continue
		}
		where := s.Type.Name() + "." + f.Key
		resolved, err := resolveValue(rv, f.Type)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		if err := assign(dst.Field(f.Index), resolved, where); err != nil {
			return err
		}
	}
	return nil
}

// resolveValue produces the typed form of a raw value according to the
// field's declared shape descriptor.
//
// Scalars pass through unchanged. Sequence and mapping descriptors require
// the matching raw shape and resolve elementwise; a mismatched raw shape
// passes through untouched and is rejected at assignment with
// ErrTypeMismatch. Union descriptors try each
// admissible record type in declaration order and keep the first that
// resolves; if none does, the raw value passes through unchanged. Record
// descriptors accept a path string to a saved file of that type, an inline
// mapping, or an already-resolved value of that type (returned unchanged).
func resolveValue(raw any, ft FieldType) (any, error) {
	switch ft.Kind {
	case KindScalar:
		return raw, nil

	case KindSequence:
		seq, ok := raw.([]any)
		if !ok {
			return raw, nil
		}
		out := make([]any, len(seq))
		for i, el := range seq {
			rv, err := resolveValue(el, *ft.Elem)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil

	case KindMapping:
		m, ok := raw.(map[string]any)
		if !ok {
			return raw, nil
		}
		out := make(map[string]any, len(m))
		for k, el := range m {
			rv, err := resolveValue(el, *ft.Elem)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil

	case KindUnion:
		for _, alt := range ft.Alts {
			v, err := resolveNested(raw, alt)
			if err == nil {
				return v, nil
			}
		}
		return raw, nil

	case KindRecord:
		return resolveNested(raw, ft.Record)

	default:
		return raw, nil
	}
}

// resolveNested materializes a value for a nested record of type rt.
func resolveNested(raw any, rt reflect.Type) (any, error) {
	switch x := raw.(type) {
	case string:
		if isPathReference(x) {
			v, err := loadRecordValue(rt, x)
			if err != nil {
				return nil, err
			}
			return v.Interface(), nil
		}
		// Not a readable file of a supported format; leave the string alone.
		return raw, nil
	case map[string]any:
		v, err := fromTree(rt, x)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	default:
		// Already resolved, or something resolution does not recognize;
		// either way return it unchanged.
		return raw, nil
	}
}

// assign places a resolved value into a struct field, allocating pointers
// and converting codec-native numeric representations (JSON decodes every
// number as float64) where the value is exactly representable. No other
// coercion happens: a string for an integer field is a type mismatch.
func assign(dst reflect.Value, v any, where string) error {
	if v == nil {
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := assign(p.Elem(), v, where); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}

	val := reflect.ValueOf(v)
	if val.Type().AssignableTo(dst.Type()) {
		dst.Set(val)
		return nil
	}

	if dst.Type() == durationType {
		switch x := v.(type) {
		case string:
			d, err := time.ParseDuration(x)
			if err != nil {
				return mismatch(dst, v, where)
			}
			dst.SetInt(int64(d))
			return nil
		}
		// fall through to the integer cases below (duration from a raw
		// nanosecond count)
	}

	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := asInt64(v)
		if !ok || dst.OverflowInt(n) {
			return mismatch(dst, v, where)
		}
		dst.SetInt(n)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := asInt64(v)
		if !ok || n < 0 || dst.OverflowUint(uint64(n)) {
			return mismatch(dst, v, where)
		}
		dst.SetUint(uint64(n))
		return nil

	case reflect.Float32, reflect.Float64:
		switch x := v.(type) {
		case float64:
			dst.SetFloat(x)
			return nil
		case int:
			dst.SetFloat(float64(x))
			return nil
		case int64:
			dst.SetFloat(float64(x))
			return nil
		}
		return mismatch(dst, v, where)

	case reflect.Slice:
		seq, ok := v.([]any)
		if !ok {
			return mismatch(dst, v, where)
		}
		out := reflect.MakeSlice(dst.Type(), len(seq), len(seq))
		for i, el := range seq {
			if err := assign(out.Index(i), el, fmt.Sprintf("%s[%d]", where, i)); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil

	case reflect.Map:
		m, ok := v.(map[string]any)
		if !ok {
			return mismatch(dst, v, where)
		}
		out := reflect.MakeMapWithSize(dst.Type(), len(m))
		for k, el := range m {
			ev := reflect.New(dst.Type().Elem()).Elem()
			if err := assign(ev, el, where+"."+k); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(dst.Type().Key()), ev)
		}
		dst.Set(out)
		return nil
	}

	return mismatch(dst, v, where)
}

func mismatch(dst reflect.Value, v any, where string) error {
	return fmt.Errorf("%w: %s: cannot use %T as %s", ErrTypeMismatch, where, v, dst.Type())
}

// asInt64 extracts an exact integer from the representations the codecs
// produce: YAML decodes integers as int (or uint64 when too large), JSON
// decodes every number as float64.
func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		if x > 1<<63-1 {
			return 0, false
		}
		return int64(x), true
	case float64:
		n := int64(x)
		if float64(n) != x {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// applyDefault fills a field absent from the file with its `default` tag
// value, parsed against the declared type.
func applyDefault(dst reflect.Value, f Field) error {
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := parseScalarInto(p.Elem(), f.Default); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	return parseScalarInto(dst, f.Default)
}

func parseScalarInto(dst reflect.Value, s string) error {
	if dst.Type() == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%w: bad default %q: %v", ErrSchema, s, err)
		}
		dst.SetInt(int64(d))
		return nil
	}
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%w: bad default %q: %v", ErrSchema, s, err)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || dst.OverflowInt(n) {
			return fmt.Errorf("%w: bad default %q for %s", ErrSchema, s, dst.Type())
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil || dst.OverflowUint(n) {
			return fmt.Errorf("%w: bad default %q for %s", ErrSchema, s, dst.Type())
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		fl, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: bad default %q for %s", ErrSchema, s, dst.Type())
		}
		dst.SetFloat(fl)
	default:
		return fmt.Errorf("%w: default tag on non-scalar field %s", ErrSchema, dst.Type())
	}
	return nil
}
