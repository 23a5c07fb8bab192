package ir

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// PageSeed is mixed into every StructuralID of a page so that two pages with
// identical subtrees never collide in a shared cache. Use SeedFromPath.
type PageSeed uint64

// String returns the seed as lowercase hex.
func (s PageSeed) String() string {
	return strconv.FormatUint(uint64(s), 16)
}

// StructuralID identifies a logical slot in a document: the same slot in two
// versions of a page carries the same id even if its content changed.
// Zero means "not assigned" (Raw documents).
type StructuralID uint64

// IsZero reports whether the id is unassigned.
func (id StructuralID) IsZero() bool { return id == 0 }

// String returns the id as lowercase hex with no prefix. This is the form
// used in rendered data-vid attributes and transport messages.
func (id StructuralID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// MarshalText implements encoding.TextMarshaler.
func (id StructuralID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *StructuralID) UnmarshalText(b []byte) error {
	v, err := ParseStructuralID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// ParseStructuralID parses the hex form produced by String.
func ParseStructuralID(s string) (StructuralID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse structural id %q: %w", s, err)
	}
	return StructuralID(v), nil
}

// Fingerprint is a Merkle content hash: equal fingerprints mean identical
// subtrees (tag, attributes, text and children, recursively).
type Fingerprint [32]byte

// IsZero reports whether the fingerprint is unassigned.
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

// String returns the full fingerprint as lowercase hex.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters, for logs.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}
