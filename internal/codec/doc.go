// Package codec serializes indexed documents for the snapshot store.
//
// Layout (all integers big-endian unless noted):
//
//	magic      "VTRE"
//	version    uint16            FormatVersion
//	identity   string            ir.IdentityVersion
//	path       string
//	seed       uint64
//	phase      uint8
//	caps       uvarint count, then strings
//	root       node
//	crc32      uint32            IEEE, over every preceding byte
//
// Strings are a uvarint length followed by the bytes. A node is its kind
// byte, StructuralID (uint64), fingerprint (32 bytes) and family string,
// then for elements the tag, the attribute pairs and the children, and for
// text nodes the text.
//
// Decoding verifies the checksum and recomputes every fingerprint, so a
// buffer written by a different hashing scheme is rejected rather than
// trusted. Any failure is a *DecodeError; callers discard the snapshot and
// re-index.
package codec
