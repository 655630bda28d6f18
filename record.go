package configkit

import (
	"reflect"
	"sync"
	"time"
)

// Record marks a struct type as a configuration record. It is satisfied by
// embedding Base; no type outside this package implements it any other way.
type Record interface {
	configRecord()
}

// Base is embedded in every record declaration. It carries no data; it only
// ties the struct into the record machinery (schema derivation, fingerprint,
// save/load). The embedded field itself is invisible to serialization.
type Base struct{}

func (Base) configRecord() {}

var (
	recordType   = reflect.TypeOf((*Record)(nil)).Elem()
	baseType     = reflect.TypeOf(Base{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// typeRegistry maps record type names to their reflect.Type for union fields
// declared with a `record:"..."` tag.
var typeRegistry sync.Map // string -> reflect.Type

// Register makes a record type resolvable by name from `record:"Name"` tags
// on interface-typed fields. Registration is only needed for union fields;
// plain nested record fields are discovered from the field's declared type.
func Register[T Record]() {
	t := reflect.TypeOf((*T)(nil)).Elem()
	typeRegistry.Store(t.Name(), t)
}

func registeredType(name string) (reflect.Type, bool) {
	v, ok := typeRegistry.Load(name)
	if !ok {
		return nil, false
	}
	return v.(reflect.Type), true
}

// Equal reports whether two records are recursively value-equal: all fields
// compare equal, including nested records, sequences, and mappings.
func Equal(a, b Record) bool {
	return reflect.DeepEqual(a, b)
}

// isRecordStruct reports whether t is a struct type that embeds Base.
func isRecordStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t != baseType && t.Implements(recordType)
}
