package configkit

import (
	"crypto/sha256"
	"encoding/hex"
)

// UID returns the content fingerprint of a record: the lowercase hex SHA-256
// digest of the canonical JSON encoding of its fully expanded tree. Keys are
// sorted lexicographically at every nesting level, so the fingerprint does
// not depend on field declaration order, on the key order of a loaded file,
// or on whether nested records arrived inline or by path reference. UID is a
// pure function: no I/O, no randomness.
func UID(rec Record) (string, error) {
	tree, err := ToTree(rec)
	if err != nil {
		return "", err
	}
	data, err := tree.canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
