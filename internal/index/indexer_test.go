package index

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/testutil"
)

func mustIndex(t *testing.T, path string, root *ir.Node) *ir.Document {
	t.Helper()
	doc, err := New(ir.DefaultFamilyTable()).Index(testutil.Raw(path, root), ir.SeedFromPath(path))
	require.NoError(t, err)
	return doc
}

func TestIndexDeterminism(t *testing.T) {
	tree := func() *ir.Node {
		return testutil.El("div", testutil.A("class", "page"),
			testutil.El("h1", "Title"),
			testutil.El("p", "Body ", testutil.El("a", testutil.A("href", "/x"), "link")),
		)
	}
	a := mustIndex(t, "/p", tree())
	b := mustIndex(t, "/p", tree())

	assert.Equal(t, testutil.IDs(a.Root), testutil.IDs(b.Root))
	assert.Equal(t, testutil.Fingerprints(a.Root), testutil.Fingerprints(b.Root))
	assert.Equal(t, ir.PhaseIndexed, a.Phase())
	assert.Equal(t, ir.SeedFromPath("/p"), a.Seed)
}

func TestIndexDoesNotMutateInput(t *testing.T) {
	raw := testutil.Raw("/p", testutil.El("div", testutil.El("p", "x")))
	_, err := New(ir.DefaultFamilyTable()).Index(raw, ir.SeedFromPath("/p"))
	require.NoError(t, err)

	assert.True(t, raw.Root.ID.IsZero())
	assert.True(t, raw.Root.Fingerprint.IsZero())
	assert.Equal(t, ir.PhaseRaw, raw.Phase())
}

func TestIdsAreUniqueWithinDocument(t *testing.T) {
	doc := mustIndex(t, "/p", testutil.El("ul",
		testutil.El("li", "a"), testutil.El("li", "a"), testutil.El("li", "a"),
		"text", "text",
		testutil.El("li", testutil.El("ul", testutil.El("li", "a"))),
	))
	seen := make(map[ir.StructuralID]bool)
	for _, id := range testutil.IDs(doc.Root) {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestAttributeOrderIndependence(t *testing.T) {
	a := mustIndex(t, "/p", testutil.El("img", testutil.A("src", "a.png"), testutil.A("alt", "A")))
	b := mustIndex(t, "/p", testutil.El("img", testutil.A("alt", "A"), testutil.A("src", "a.png")))
	assert.Equal(t, a.Root.Fingerprint, b.Root.Fingerprint)
	assert.Equal(t, a.Root.ID, b.Root.ID)
}

func TestContentEditKeepsStructuralID(t *testing.T) {
	a := mustIndex(t, "/p", testutil.El("div", testutil.El("h1", "Hello"), testutil.El("p", "x")))
	b := mustIndex(t, "/p", testutil.El("div", testutil.El("h1", "World"), testutil.El("p", "x")))

	assert.Equal(t, testutil.IDs(a.Root), testutil.IDs(b.Root), "text edit keeps every slot id")
	assert.NotEqual(t, a.Root.Fingerprint, b.Root.Fingerprint)
	assert.NotEqual(t, a.Root.Children[0].Fingerprint, b.Root.Children[0].Fingerprint)
	assert.Equal(t, a.Root.Children[1].Fingerprint, b.Root.Children[1].Fingerprint,
		"untouched sibling keeps its fingerprint")
}

func TestInsertingDifferentTagDoesNotShiftIDs(t *testing.T) {
	a := mustIndex(t, "/p", testutil.El("div", testutil.El("p", "one"), testutil.El("p", "two")))
	b := mustIndex(t, "/p", testutil.El("div", testutil.El("h2", "new"), testutil.El("p", "one"), testutil.El("p", "two")))

	// Paragraph ordinals count only paragraphs.
	assert.Equal(t, a.Root.Children[0].ID, b.Root.Children[1].ID)
	assert.Equal(t, a.Root.Children[1].ID, b.Root.Children[2].ID)
}

func TestInsertingSameTagShiftsLaterIDs(t *testing.T) {
	a := mustIndex(t, "/p", testutil.El("div", testutil.El("p", "one"), testutil.El("p", "two")))
	b := mustIndex(t, "/p", testutil.El("div", testutil.El("p", "zero"), testutil.El("p", "one"), testutil.El("p", "two")))

	assert.Equal(t, a.Root.Children[0].ID, b.Root.Children[0].ID, "first slot keeps its id")
	assert.Equal(t, a.Root.Children[1].ID, b.Root.Children[1].ID)
	assert.Equal(t, a.Root.Children[0].Fingerprint, b.Root.Children[1].Fingerprint,
		"moved content keeps its fingerprint")
}

func TestSeedSeparation(t *testing.T) {
	tree := func() *ir.Node { return testutil.El("div", testutil.El("p", "same")) }
	a := mustIndex(t, "/a", tree())
	b := mustIndex(t, "/b", tree())

	assert.NotEqual(t, a.Root.ID, b.Root.ID)
	assert.NotEqual(t, a.Root.Children[0].ID, b.Root.Children[0].ID)
	assert.Equal(t, a.Root.Fingerprint, b.Root.Fingerprint, "fingerprints are position independent")
}

func TestFamiliesAssigned(t *testing.T) {
	doc := mustIndex(t, "/p", testutil.El("div",
		testutil.El("a", testutil.A("href", "/x"), "x"),
		testutil.El("h2", "Heading"),
		testutil.El("svg", testutil.El("path")),
		testutil.El("img", testutil.A("src", "i.png")),
	))

	assert.Equal(t, ir.FamilyOther, doc.Root.Family)
	assert.Equal(t, ir.FamilyLink, testutil.FindTag(doc.Root, "a").Family)
	assert.Equal(t, ir.FamilyHeading, testutil.FindTag(doc.Root, "h2").Family)
	assert.Equal(t, ir.FamilySvg, testutil.FindTag(doc.Root, "svg").Family)
	assert.Equal(t, ir.FamilyMedia, testutil.FindTag(doc.Root, "img").Family)
	assert.Equal(t, ir.Family(""), testutil.FindTag(doc.Root, "a").Children[0].Family, "text has no family")
}

func TestIndexRejectsWrongPhase(t *testing.T) {
	doc := mustIndex(t, "/p", testutil.El("div"))
	_, err := New(ir.DefaultFamilyTable()).Index(doc, doc.Seed)
	require.Error(t, err)
	assert.True(t, ir.IsPhaseError(err))
}

func TestIndexRejectsMalformed(t *testing.T) {
	bad := &ir.Node{Kind: ir.KindElement, Tag: "a", Attrs: []ir.Attr{testutil.A("x", "1"), testutil.A("x", "2")}}
	_, err := New(ir.DefaultFamilyTable()).Index(testutil.Raw("/p", testutil.El("div", bad)), ir.SeedFromPath("/p"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrMalformed))

	_, err = New(ir.DefaultFamilyTable()).Index(testutil.Raw("/p", nil), ir.SeedFromPath("/p"))
	assert.True(t, errors.Is(err, ir.ErrMalformed))
}

type headingPayload struct{}

func (headingPayload) Family() ir.Family { return ir.FamilyHeading }

func TestRefresh(t *testing.T) {
	doc := mustIndex(t, "/p", testutil.El("div", testutil.El("h1", "Title")))

	edited := doc.Root.Clone()
	edited.Children[0].Data = headingPayload{}
	edited.Children = append(edited.Children, testutil.El("p", "new"))
	edited.Children[0].Tag = "p" // h1 -> p drops the heading payload

	out, err := New(ir.DefaultFamilyTable()).Refresh(doc, edited)
	require.NoError(t, err)

	assert.Equal(t, doc.Root.ID, out.ID)
	assert.False(t, out.Children[1].ID.IsZero())
	assert.Equal(t, ir.FamilyOther, out.Children[0].Family)
	assert.Nil(t, out.Children[0].Data)
	assert.True(t, edited.Children[1].ID.IsZero(), "input tree is not mutated")
}

func TestSummarize(t *testing.T) {
	doc := mustIndex(t, "/p", testutil.El("div", testutil.El("a", "x"), testutil.El("a", "y"), testutil.El("p", "z")))
	s := Summarize(doc)
	assert.Equal(t, 4, s.Elements)
	assert.Equal(t, 3, s.Texts)
	assert.Equal(t, 7, s.Nodes())
	assert.Equal(t, 2, s.ByFamily[ir.FamilyLink])
	assert.Equal(t, 2, s.ByFamily[ir.FamilyOther])
}
