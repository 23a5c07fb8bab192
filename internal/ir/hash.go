package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// Domain prefixes for identity hashing.
// Version suffix enables future algorithm migration.
const (
	DomainPage       = "vtree/page/v1"
	DomainStructural = "vtree/structural/v1"
	DomainContent    = "vtree/content/v1"
)

// hasher is a SHA-256 writer with domain separation.
// Format: SHA256(domain + 0x00 + fields...)
// Every variable-length field is length-prefixed so that adjacent fields
// cannot be shifted into each other ("ab"+"c" vs "a"+"bc").
type hasher struct {
	h   hash.Hash
	buf [binary.MaxVarintLen64]byte
}

func newHasher(domain string) *hasher {
	hs := &hasher{h: sha256.New()}
	hs.h.Write([]byte(domain))
	hs.h.Write([]byte{0x00}) // Null separator between domain and data
	return hs
}

func (hs *hasher) str(s string) *hasher {
	hs.uvarint(uint64(len(s)))
	hs.h.Write([]byte(s))
	return hs
}

func (hs *hasher) uvarint(v uint64) *hasher {
	n := binary.PutUvarint(hs.buf[:], v)
	hs.h.Write(hs.buf[:n])
	return hs
}

func (hs *hasher) u64(v uint64) *hasher {
	binary.LittleEndian.PutUint64(hs.buf[:8], v)
	hs.h.Write(hs.buf[:8])
	return hs
}

func (hs *hasher) bytes(b []byte) *hasher {
	hs.h.Write(b)
	return hs
}

func (hs *hasher) sum() [32]byte {
	var out [32]byte
	hs.h.Sum(out[:0])
	return out
}

// sum64 takes the first 8 bytes of the digest as a little-endian uint64.
func (hs *hasher) sum64() uint64 {
	s := hs.sum()
	return binary.LittleEndian.Uint64(s[:8])
}

// SeedFromPath derives the PageSeed for a logical page path.
// Two pages with textually identical subtrees get disjoint StructuralIDs.
func SeedFromPath(path string) PageSeed {
	return PageSeed(newHasher(DomainPage).str(path).sum64())
}

// RootID computes the StructuralID of a document root. It depends on the
// page seed alone, so roots of two versions of the same page always match.
func RootID(seed PageSeed) StructuralID {
	return StructuralID(newHasher(DomainStructural).u64(uint64(seed)).str("#root").sum64())
}

// ChildID computes the StructuralID of a child slot.
//
// kindKey is the element tag or TextKindKey; ordinal is the number of
// siblings with the same kindKey that precede this one under parent.
// Content never enters the hash: editing a node keeps its identity.
func ChildID(seed PageSeed, parent StructuralID, kindKey string, ordinal int) StructuralID {
	return StructuralID(newHasher(DomainStructural).
		u64(uint64(seed)).
		u64(uint64(parent)).
		str(kindKey).
		uvarint(uint64(ordinal)).
		sum64())
}

// TextFingerprint computes the content fingerprint of a text node.
func TextFingerprint(text string) Fingerprint {
	return Fingerprint(newHasher(DomainContent).
		str(TextKindKey).
		str(NormalizeText(text)).
		sum())
}

// ElementFingerprint computes the Merkle fingerprint of an element from its
// own content and the already computed fingerprints of its children.
// Attributes are hashed in key order so that source attribute order does
// not matter.
func ElementFingerprint(tag string, attrs []Attr, children []Fingerprint) Fingerprint {
	hs := newHasher(DomainContent).str("#element").str(tag)

	sorted := SortedAttrs(attrs)
	hs.uvarint(uint64(len(sorted)))
	for _, a := range sorted {
		hs.str(NormalizeText(a.Key)).str(NormalizeText(a.Value))
	}

	hs.uvarint(uint64(len(children)))
	for _, fp := range children {
		hs.bytes(fp[:])
	}
	return Fingerprint(hs.sum())
}

// NodeFingerprint recomputes n's fingerprint from its content and the
// fingerprints currently stored on its children. It does not recurse.
func NodeFingerprint(n *Node) Fingerprint {
	if n.Kind == KindText {
		return TextFingerprint(n.Text)
	}
	fps := make([]Fingerprint, len(n.Children))
	for i, c := range n.Children {
		fps[i] = c.Fingerprint
	}
	return ElementFingerprint(n.Tag, n.Attrs, fps)
}

// Rehash recomputes fingerprints bottom-up over the subtree rooted at n.
// StructuralIDs are left untouched.
func Rehash(n *Node) Fingerprint {
	for _, c := range n.Children {
		Rehash(c)
	}
	n.Fingerprint = NodeFingerprint(n)
	return n.Fingerprint
}

// AssignIDs recomputes StructuralIDs top-down over the tree rooted at root
// for the given seed. Families and fingerprints are left untouched.
func AssignIDs(root *Node, seed PageSeed) {
	assignIDs(root, seed, RootID(seed))
}

func assignIDs(n *Node, seed PageSeed, id StructuralID) {
	n.ID = id
	ordinals := make(map[string]int, len(n.Children))
	for _, c := range n.Children {
		key := c.KindKey()
		assignIDs(c, seed, ChildID(seed, id, key, ordinals[key]))
		ordinals[key]++
	}
}
