package configkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/configkit/configkit/streams"
)

type format int

const (
	formatJSON format = iota + 1
	formatYAML
)

// formatForPath maps a file extension to a codec. Extensions are matched
// case-insensitively; anything outside the recognized set fails with
// ErrUnsupportedFormat before any I/O happens.
func formatForPath(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q (use .json, .jsonc, .yaml or .yml)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

type settings struct {
	streams streams.IOStreams
}

// Option configures a single Save or Load call.
type Option func(*settings)

// WithStreams routes the "saved ..." / "loaded ..." notifications to the
// given streams. Without it, operations are silent.
func WithStreams(s streams.IOStreams) Option {
	return func(st *settings) { st.streams = s }
}

func newSettings(opts []Option) settings {
	var st settings
	for _, opt := range opts {
		opt(&st)
	}
	return st
}

// Save writes rec to path, choosing the codec by file extension. Parent
// directories are created as needed. The write goes through a temp file and
// rename so a failed write never leaves a truncated config behind.
func Save(rec Record, path string, opts ...Option) error {
	f, err := formatForPath(path)
	if err != nil {
		return err
	}
	return save(rec, path, f, opts)
}

// SaveJSON writes rec to path as indented JSON regardless of extension.
func SaveJSON(rec Record, path string, opts ...Option) error {
	return save(rec, path, formatJSON, opts)
}

// SaveYAML writes rec to path as YAML regardless of extension. Keys are
// emitted in field declaration order, not sorted.
func SaveYAML(rec Record, path string, opts ...Option) error {
	return save(rec, path, formatYAML, opts)
}

func save(rec Record, path string, f format, opts []Option) error {
	st := newSettings(opts)
	tree, err := ToTree(rec)
	if err != nil {
		return err
	}
	data, err := encodeTree(tree, f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if err := EnsurePath(path); err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	if st.streams != nil && st.streams.Out() != nil {
		fmt.Fprintf(st.streams.Out(), "configkit: saved %s\n", path)
	}
	return nil
}

func encodeTree(tree *Tree, f format) ([]byte, error) {
	switch f {
	case formatJSON:
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		node, err := tree.yamlNode()
		if err != nil {
			return nil, err
		}
		return yaml.Marshal(node)
	}
}

// Load reads path, chooses the codec by file extension, resolves the parsed
// tree against T's declared fields (materializing nested records from inline
// mappings or path references), and constructs the record. Unknown keys are
// dropped; a missing required field or an incompatible value shape fails
// with ErrMissingField / ErrTypeMismatch and no record is returned.
func Load[T Record](path string, opts ...Option) (T, error) {
	var zero T
	f, err := formatForPath(path)
	if err != nil {
		return zero, err
	}
	v, err := loadRecord(reflect.TypeOf(zero), path, f, newSettings(opts))
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// LoadJSON reads path as JSON (comments and trailing commas tolerated)
// regardless of extension.
func LoadJSON[T Record](path string, opts ...Option) (T, error) {
	var zero T
	v, err := loadRecord(reflect.TypeOf(zero), path, formatJSON, newSettings(opts))
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// LoadYAML reads path as YAML regardless of extension.
func LoadYAML[T Record](path string, opts ...Option) (T, error) {
	var zero T
	v, err := loadRecord(reflect.TypeOf(zero), path, formatYAML, newSettings(opts))
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// loadRecordValue is the entry point used when resolution follows a path
// reference found inside another file; the referenced file's own extension
// picks its codec.
func loadRecordValue(rt reflect.Type, path string) (reflect.Value, error) {
	f, err := formatForPath(path)
	if err != nil {
		return reflect.Value{}, err
	}
	return loadRecord(rt, path, f, settings{})
}

func loadRecord(rt reflect.Type, path string, f format, st settings) (reflect.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("read %s: %w", path, err)
	}
	raw, err := decodeTree(data, f)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w %s: %w", ErrParse, path, err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %s: top-level value is not a mapping", ErrTypeMismatch, path)
	}
	v, err := fromTree(rt, m)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("load %s: %w", path, err)
	}
	if st.streams != nil && st.streams.Out() != nil {
		fmt.Fprintf(st.streams.Out(), "configkit: loaded %s\n", path)
	}
	return v, nil
}

func decodeTree(data []byte, f format) (any, error) {
	var raw any
	switch f {
	case formatJSON:
		// Strip // and /* */ comments and trailing commas first, so .jsonc
		// authoring works and plain .json is unaffected.
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// isPathReference reports whether a string found where a nested record was
// declared names a readable file of a supported format. Anything else leaves
// the string untouched for the caller to reject or pass through.
func isPathReference(s string) bool {
	if _, err := formatForPath(s); err != nil {
		return false
	}
	info, err := os.Stat(s)
	return err == nil && !info.IsDir()
}

// EnsurePath ensures the directories for a file path exist and the path does
// not already exist as a directory.
func EnsurePath(p string) error {
	info, err := os.Stat(p)
	switch {
	case err == nil:
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrInaccessiblePath, p)
		}
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrInaccessiblePath, p)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrCannotCreateDirectories, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w %s: close temp file: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w %s: rename temp file: %w", ErrWrite, path, err)
	}
	return nil
}
