package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/testutil"
)

func sampleDoc(t *testing.T) *ir.Document {
	t.Helper()
	root := testutil.El("html",
		testutil.El("head", testutil.El("title", "Codec")),
		testutil.El("body", testutil.A("class", "page"),
			testutil.El("h1", "Café"),
			testutil.El("p", "Text with ", testutil.El("a", testutil.A("href", "/x"), testutil.A("title", ""), "a link"), "."),
			testutil.El("img", testutil.A("src", "i.png"), testutil.A("alt", "")),
		),
	)
	doc, err := index.New(ir.DefaultFamilyTable()).Index(testutil.Raw("/docs/codec", root), ir.SeedFromPath("/docs/codec"))
	require.NoError(t, err)
	doc, err = ir.Advance(doc, doc.Root, ir.PhaseIndexed, ir.CapLinksChecked)
	require.NoError(t, err)
	return doc
}

// reseal recomputes the trailer after a test edits the body.
func reseal(b []byte) []byte {
	body := b[:len(b)-trailerSize]
	binary.BigEndian.PutUint32(b[len(b)-trailerSize:], crc32.ChecksumIEEE(body))
	return b
}

func TestRoundTrip(t *testing.T) {
	doc := sampleDoc(t)

	data, err := Encode(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("VTRE")))

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, doc.Path, got.Path)
	assert.Equal(t, doc.Seed, got.Seed)
	assert.Equal(t, ir.PhaseIndexed, got.Phase())
	assert.Equal(t, doc.Capabilities(), got.Capabilities())
	assert.True(t, ir.Equal(doc.Root, got.Root))
	assert.Equal(t, testutil.IDs(doc.Root), testutil.IDs(got.Root))
	assert.Equal(t, testutil.Fingerprints(doc.Root), testutil.Fingerprints(got.Root))
	assert.Equal(t, ir.FamilyLink, testutil.FindTag(got.Root, "a").Family)

	again, err := Encode(got)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding is deterministic")
}

func TestEncodeRequiresIndexed(t *testing.T) {
	_, err := Encode(testutil.Raw("/p", testutil.El("div")))
	require.Error(t, err)
	assert.True(t, ir.IsPhaseError(err))

	doc := sampleDoc(t)
	processed, err := ir.Advance(doc, doc.Root, ir.PhaseProcessed)
	require.NoError(t, err)
	_, err = Encode(processed)
	assert.True(t, ir.IsPhaseError(err))

	_, err = Encode(nil)
	assert.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	valid, err := Encode(sampleDoc(t))
	require.NoError(t, err)

	clone := func() []byte { return bytes.Clone(valid) }

	tests := []struct {
		name string
		data func() []byte
		want error
	}{
		{name: "empty", data: func() []byte { return nil }, want: ErrTruncated},
		{name: "bad magic", data: func() []byte { b := clone(); b[0] = 'X'; return b }, want: ErrBadMagic},
		{
			name: "future version",
			data: func() []byte {
				b := clone()
				binary.BigEndian.PutUint16(b[4:6], FormatVersion+1)
				return b
			},
			want: ErrVersion,
		},
		{name: "flipped byte", data: func() []byte { b := clone(); b[len(b)/2] ^= 0xff; return b }, want: ErrChecksum},
		{name: "truncated", data: func() []byte { return clone()[:len(valid)-10] }, want: ErrChecksum},
		{
			name: "truncated and resealed",
			data: func() []byte {
				b := clone()
				short := append(b[:len(b)-trailerSize-20:len(b)-trailerSize-20], 0, 0, 0, 0)
				return reseal(short)
			},
			want: ErrTruncated,
		},
		{
			name: "content edited without fingerprint",
			data: func() []byte {
				b := clone()
				i := bytes.Index(b, []byte("a link"))
				b[i] = 'A'
				return reseal(b)
			},
			want: ErrCorrupt,
		},
		{
			name: "identity version",
			data: func() []byte {
				b := clone()
				// The identity version string follows the header: length, then bytes.
				b[headerSize+1] = 'x'
				return reseal(b)
			},
			want: ErrVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data())
			require.Error(t, err)
			assert.True(t, IsDecodeError(err), "got %T", err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestDecodeErrorMessage(t *testing.T) {
	err := &DecodeError{Err: ErrVersion, Offset: 4, Detail: "got 2, want 1"}
	assert.Equal(t, "DECODE_ERROR: unsupported format version: got 2, want 1 (offset=4)", err.Error())

	err = &DecodeError{Err: ErrChecksum, Offset: -1}
	assert.Equal(t, "DECODE_ERROR: checksum mismatch", err.Error())
}
