package configkit

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const envVarTagName = "env"

// applyEnv walks a record struct and overrides fields from environment
// variables. The variable name is PREFIX_SEGMENTS where each segment comes
// from the field's `env` tag or its name in SCREAMING_SNAKE_CASE; nested
// records contribute a segment and recurse. A tag of "-" opts a field out.
func applyEnv(v reflect.Value, prefix string, segments []string) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		if sf.Anonymous && sf.Type == baseType {
			continue
		}
		tag := sf.Tag.Get(envVarTagName)
		if tag == "-" {
			continue
		}
		seg := tag
		if seg == "" {
			seg = toScreamingSnake(sf.Name)
		}
		field := v.Field(i)
		envName := buildEnvName(prefix, append(segments, seg))
		switch field.Kind() {
		case reflect.Struct:
			applyEnv(field, prefix, append(segments, seg))
		case reflect.String:
			if s, ok := os.LookupEnv(envName); ok && field.CanSet() {
				field.SetString(s)
			}
		case reflect.Bool:
			if b, ok := getBool(envName); ok && field.CanSet() {
				field.SetBool(b)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if field.Type() == durationType {
				if d, ok := getDuration(envName); ok && field.CanSet() {
					field.SetInt(int64(d))
				}
			} else if n, ok := getInt(envName); ok && field.CanSet() {
				field.SetInt(n)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if n, ok := getInt(envName); ok && field.CanSet() && n >= 0 {
				field.SetUint(uint64(n))
			}
		case reflect.Float32, reflect.Float64:
			if f, ok := getFloat(envName); ok && field.CanSet() {
				field.SetFloat(f)
			}
		case reflect.Pointer:
			applyEnvPointer(field, envName, prefix, append(segments, seg))
		}
	}
}

// applyEnvPointer handles optional (pointer) fields: a *struct is allocated
// only when at least one nested variable for its segment is present; scalar
// pointers are allocated when their variable is set.
func applyEnvPointer(field reflect.Value, envName, prefix string, segments []string) {
	if !field.CanSet() {
		return
	}
	elem := field.Type().Elem()
	alloc := func() reflect.Value {
		if field.IsNil() {
			field.Set(reflect.New(elem))
		}
		return field.Elem()
	}
	switch elem.Kind() {
	case reflect.Struct:
		if hasAnyEnvWithPrefix(buildEnvName(prefix, segments) + "_") {
			alloc()
			applyEnv(field, prefix, segments)
		}
	case reflect.String:
		if s, ok := os.LookupEnv(envName); ok {
			alloc().SetString(s)
		}
	case reflect.Bool:
		if b, ok := getBool(envName); ok {
			alloc().SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if elem == durationType {
			if d, ok := getDuration(envName); ok {
				alloc().SetInt(int64(d))
			}
		} else if n, ok := getInt(envName); ok {
			alloc().SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := getInt(envName); ok && n >= 0 {
			alloc().SetUint(uint64(n))
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := getFloat(envName); ok {
			alloc().SetFloat(f)
		}
	}
}

func buildEnvName(prefix string, segments []string) string {
	switch {
	case prefix == "" && len(segments) == 0:
		return ""
	case prefix == "":
		return strings.Join(segments, "_")
	case len(segments) == 0:
		return prefix
	default:
		return prefix + "_" + strings.Join(segments, "_")
	}
}

func getInt(name string) (int64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func getBool(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}

func getFloat(name string) (float64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func getDuration(name string) (time.Duration, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return d, true
}

func hasAnyEnvWithPrefix(prefix string) bool {
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

func toScreamingSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && isBoundary(rune(s[i-1]), r) {
			b.WriteByte('_')
		}
		b.WriteRune(toUpper(r))
	}
	return b.String()
}

func isBoundary(prev, curr rune) bool {
	// Split words only on lower→upper case transitions (e.g., ApiKey → API_KEY).
	// Do NOT split between letters and digits so that ApiKey2FA → API_KEY2FA.
	return (prev >= 'a' && prev <= 'z') && (curr >= 'A' && curr <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
