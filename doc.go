// Package configkit provides a small base layer for declaring immutable,
// strongly-typed configuration records that can be fingerprinted, persisted
// to JSON or YAML, and composed hierarchically.
//
// A record is an ordinary struct that embeds Base:
//
//	type ServerConfig struct {
//	    configkit.Base
//	    Host string `yaml:"host"`
//	    Port int    `yaml:"port" default:"8080"`
//	}
//
// Records are value types: Load returns a fresh value on every call, nested
// records are held by value, and the package never retains a reference to the
// parsed file data. Treat a constructed record as read-only and compare with
// Equal.
//
// Records nest. A field whose type is another record (or a pointer to one)
// accepts either an inline mapping or a string path to a separately saved
// file of that record type; both forms resolve to the same value and the
// same fingerprint:
//
//	type Deployment struct {
//	    configkit.Base
//	    Name   string       `yaml:"name"`
//	    Server ServerConfig `yaml:"server"` // inline map or "server.yaml"
//	}
//
// UID returns a deterministic content fingerprint of a record's fully
// expanded value, independent of field declaration order, file key order,
// and whether nested records were inlined or referenced by path.
//
// Save and Load dispatch the codec by file extension (.json/.jsonc for JSON,
// .yaml/.yml for YAML); SaveJSON/SaveYAML and LoadJSON/LoadYAML bypass the
// extension sniffing. Keys found in a file that do not correspond to a
// declared field are dropped silently.
//
// Provider wraps the record core into a once-initialized application config
// lifecycle: factory defaults, optional model-based defaults and validation
// (github.com/ygrebnov/model), file overrides, and environment overrides.
package configkit
