package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/roach88/vtree/internal/ir"
)

// FormatVersion is bumped whenever the layout changes.
const FormatVersion uint16 = 1

// MaxDepth bounds nesting on decode.
const MaxDepth = 512

var magic = [4]byte{'V', 'T', 'R', 'E'}

const (
	headerSize  = len(magic) + 2
	trailerSize = 4
)

// Encode serializes an indexed document.
func Encode(doc *ir.Document) ([]byte, error) {
	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("encode: nil document")
	}
	if doc.Phase() != ir.PhaseIndexed {
		return nil, &ir.PhaseError{Op: "encode", Got: doc.Phase(), Want: ir.PhaseIndexed}
	}

	w := &writer{}
	w.buf.Write(magic[:])
	w.u16(FormatVersion)
	w.str(ir.IdentityVersion)
	w.str(doc.Path)
	w.u64(uint64(doc.Seed))
	w.u8(uint8(doc.Phase()))
	caps := doc.Capabilities().List()
	w.uvarint(uint64(len(caps)))
	for _, c := range caps {
		w.str(string(c))
	}
	w.node(doc.Root)

	w.u32(crc32.ChecksumIEEE(w.buf.Bytes()))
	return w.buf.Bytes(), nil
}

type writer struct {
	buf bytes.Buffer
	tmp [binary.MaxVarintLen64]byte
}

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) u16(v uint16) {
	binary.BigEndian.PutUint16(w.tmp[:2], v)
	w.buf.Write(w.tmp[:2])
}

func (w *writer) u32(v uint32) {
	binary.BigEndian.PutUint32(w.tmp[:4], v)
	w.buf.Write(w.tmp[:4])
}

func (w *writer) u64(v uint64) {
	binary.BigEndian.PutUint64(w.tmp[:8], v)
	w.buf.Write(w.tmp[:8])
}

func (w *writer) uvarint(v uint64) {
	n := binary.PutUvarint(w.tmp[:], v)
	w.buf.Write(w.tmp[:n])
}

func (w *writer) str(s string) {
	w.uvarint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) node(n *ir.Node) {
	w.u8(uint8(n.Kind))
	w.u64(uint64(n.ID))
	w.buf.Write(n.Fingerprint[:])
	w.str(string(n.Family))
	if n.Kind == ir.KindText {
		w.str(n.Text)
		return
	}
	w.str(n.Tag)
	w.uvarint(uint64(len(n.Attrs)))
	for _, a := range n.Attrs {
		w.str(a.Key)
		w.str(a.Value)
	}
	w.uvarint(uint64(len(n.Children)))
	for _, c := range n.Children {
		w.node(c)
	}
}

// Decode parses a buffer produced by Encode. Errors are *DecodeError.
func Decode(data []byte) (*ir.Document, error) {
	if len(data) < headerSize+trailerSize {
		return nil, &DecodeError{Err: ErrTruncated, Offset: len(data)}
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, &DecodeError{Err: ErrBadMagic, Offset: 0}
	}
	if v := binary.BigEndian.Uint16(data[len(magic):headerSize]); v != FormatVersion {
		return nil, &DecodeError{
			Err:    ErrVersion,
			Offset: len(magic),
			Detail: fmt.Sprintf("got %d, want %d", v, FormatVersion),
		}
	}
	body := data[:len(data)-trailerSize]
	want := binary.BigEndian.Uint32(data[len(data)-trailerSize:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return nil, &DecodeError{Err: ErrChecksum, Offset: -1, Detail: fmt.Sprintf("got %08x, want %08x", got, want)}
	}

	r := &reader{data: body, off: headerSize}
	doc, err := r.document()
	if err != nil {
		return nil, err
	}
	if r.off != len(body) {
		return nil, r.fail(ErrCorrupt, fmt.Sprintf("%d trailing bytes", len(body)-r.off))
	}
	return doc, nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) fail(sentinel error, detail string) *DecodeError {
	return &DecodeError{Err: sentinel, Offset: r.off, Detail: detail}
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, r.fail(ErrTruncated, "")
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	if n <= 0 {
		return 0, r.fail(ErrTruncated, "bad varint")
	}
	r.off += n
	return v, nil
}

// count reads a length and bounds it by the remaining bytes, so a corrupt
// length cannot trigger a huge allocation.
func (r *reader) count() (int, error) {
	v, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(len(r.data)-r.off) {
		return 0, r.fail(ErrTruncated, fmt.Sprintf("length %d exceeds buffer", v))
	}
	return int(v), nil
}

func (r *reader) str() (string, error) {
	n, err := r.count()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) document() (*ir.Document, error) {
	idv, err := r.str()
	if err != nil {
		return nil, err
	}
	if idv != ir.IdentityVersion {
		return nil, r.fail(ErrVersion, fmt.Sprintf("identity version %q, want %q", idv, ir.IdentityVersion))
	}
	path, err := r.str()
	if err != nil {
		return nil, err
	}
	seed, err := r.u64()
	if err != nil {
		return nil, err
	}
	phase, err := r.u8()
	if err != nil {
		return nil, err
	}
	if ir.Phase(phase) != ir.PhaseIndexed {
		return nil, r.fail(ErrCorrupt, fmt.Sprintf("phase %s", ir.Phase(phase)))
	}
	ncaps, err := r.count()
	if err != nil {
		return nil, err
	}
	caps := make([]ir.Capability, 0, ncaps)
	for i := 0; i < ncaps; i++ {
		c, err := r.str()
		if err != nil {
			return nil, err
		}
		caps = append(caps, ir.Capability(c))
	}

	root, err := r.node(0)
	if err != nil {
		return nil, err
	}

	raw := ir.NewRaw(path, root)
	raw.Seed = ir.PageSeed(seed)
	doc, err := ir.Advance(raw, root, ir.PhaseIndexed, caps...)
	if err != nil {
		return nil, &DecodeError{Err: ErrCorrupt, Offset: -1, Detail: err.Error()}
	}
	return doc, nil
}

func (r *reader) node(depth int) (*ir.Node, error) {
	if depth > MaxDepth {
		return nil, r.fail(ErrCorrupt, "nesting too deep")
	}
	start := r.off
	kind, err := r.u8()
	if err != nil {
		return nil, err
	}
	id, err := r.u64()
	if err != nil {
		return nil, err
	}
	fpb, err := r.take(len(ir.Fingerprint{}))
	if err != nil {
		return nil, err
	}
	family, err := r.str()
	if err != nil {
		return nil, err
	}

	n := &ir.Node{Kind: ir.NodeKind(kind), ID: ir.StructuralID(id), Family: ir.Family(family)}
	copy(n.Fingerprint[:], fpb)

	switch n.Kind {
	case ir.KindText:
		if n.Text, err = r.str(); err != nil {
			return nil, err
		}
	case ir.KindElement:
		if n.Tag, err = r.str(); err != nil {
			return nil, err
		}
		nattrs, err := r.count()
		if err != nil {
			return nil, err
		}
		for i := 0; i < nattrs; i++ {
			var a ir.Attr
			if a.Key, err = r.str(); err != nil {
				return nil, err
			}
			if a.Value, err = r.str(); err != nil {
				return nil, err
			}
			n.Attrs = append(n.Attrs, a)
		}
		nchildren, err := r.count()
		if err != nil {
			return nil, err
		}
		for i := 0; i < nchildren; i++ {
			c, err := r.node(depth + 1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, c)
		}
	default:
		r.off = start
		return nil, r.fail(ErrCorrupt, fmt.Sprintf("unknown node kind %d", kind))
	}

	if got := ir.NodeFingerprint(n); got != n.Fingerprint {
		r.off = start
		return nil, r.fail(ErrCorrupt, "fingerprint mismatch")
	}
	return n, nil
}
