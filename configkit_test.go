package configkit

import (
	"io"
	"reflect"
	"testing"
	"time"
)

// ---- Shared record fixtures ----

type SimpleConfig struct {
	Base
	Field1 int    `yaml:"field1"`
	Field2 string `yaml:"field2"`
}

type NestedConfig struct {
	Base
	Name   string       `yaml:"name"`
	Simple SimpleConfig `yaml:"simple"`
}

// PathResolvingConfig declares a union field: the nested value may be a
// SimpleConfig (inline or by path reference) or any other raw value.
type PathResolvingConfig struct {
	Base
	Name   string `yaml:"name"`
	Nested any    `yaml:"nested" record:"SimpleConfig"`
}

type ComplexConfig struct {
	Base
	Name         string                  `yaml:"name"`
	ListOfSimple []SimpleConfig          `yaml:"list_of_simple"`
	DictOfSimple map[string]SimpleConfig `yaml:"dict_of_simple"`
}

// ServerConfig exercises defaults, durations and optional (pointer) fields.
type ServerConfig struct {
	Base
	Host    string        `yaml:"host" default:"localhost"`
	Port    int           `yaml:"port" default:"8080"`
	Timeout time.Duration `yaml:"timeout" default:"30s"`
	Debug   *bool         `yaml:"debug"`
}

// BackendConfig is a second union alternative for the union tests.
type BackendConfig struct {
	Base
	Driver string `yaml:"driver"`
}

func init() {
	Register[SimpleConfig]()
	Register[BackendConfig]()
}

// Minimal IOStreams-like stub used only for testing. It must satisfy the
// streams.IOStreams interface consumed by Save/Load and Provider.
type fakeStreams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func (s fakeStreams) In() io.Reader     { return s.in }
func (s fakeStreams) Out() io.Writer    { return s.out }
func (s fakeStreams) ErrOut() io.Writer { return s.errOut }

func typeOf[T any](t *testing.T) reflect.Type {
	t.Helper()
	return reflect.TypeOf((*T)(nil)).Elem()
}

// valueOf returns the addressable struct value behind a record pointer.
func valueOf(p any) reflect.Value {
	return reflect.ValueOf(p).Elem()
}
