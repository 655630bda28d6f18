package configkit

import "errors"

// Exported error categories returned by this package. These are used with
// wrapping so callers can detect error classes using errors.Is/As.
//   - ErrUnsupportedFormat: file extension is neither .json/.jsonc nor .yaml/.yml.
//   - ErrMissingField: a required field has no value after unknown keys are dropped.
//   - ErrTypeMismatch: a raw value's shape is incompatible with the declared field.
//   - ErrSchema: a record type declaration is invalid (cyclic nesting, a struct
//     field that does not embed Base, an unregistered union alternative, ...).
//   - ErrParse: failure to parse an existing config file.
//   - ErrEncode: failure to encode a record to bytes.
//   - ErrWrite: failure to write the config file to disk.
//
// Filesystem errors (os.ErrNotExist and friends) are propagated wrapped but
// untranslated.
var (
	ErrUnsupportedFormat = errors.New("unsupported config file format")
	ErrMissingField      = errors.New("missing required field")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrSchema            = errors.New("invalid record schema")
	ErrParse             = errors.New("parse config file")
	ErrEncode            = errors.New("encode config")
	ErrWrite             = errors.New("write config file")

	ErrInaccessiblePath        = errors.New("inaccessible path")
	ErrCannotCreateDirectories = errors.New("cannot create directories")
)
