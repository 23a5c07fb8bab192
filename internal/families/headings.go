package families

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/pipeline"
)

// HeadingAnchors gives every heading without an id a slug anchor derived
// from its text. Anchors are unique within the page: a slug already used by
// any element id gets a numeric suffix.
type HeadingAnchors struct{}

// Descriptor implements pipeline.Transform.
func (HeadingAnchors) Descriptor() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:     "heading-anchors",
		Provides: ir.CapHeadingsProcessed,
		Input:    ir.PhaseIndexed,
		Output:   ir.PhaseIndexed,
	}
}

// Apply implements pipeline.Transform.
func (HeadingAnchors) Apply(ctx context.Context, doc *ir.Document) (*ir.Node, error) {
	used := make(map[string]bool)
	doc.Root.Walk(func(n *ir.Node) bool {
		if id, ok := n.Attr("id"); ok && n.IsElement() {
			used[id] = true
		}
		return true
	})

	changed := false
	for _, h := range elements(doc.Root, ir.FamilyHeading) {
		if _, ok := h.Attr("id"); ok {
			continue
		}
		base := Slugify(h.TextContent())
		if base == "" {
			base = "section"
		}
		anchor := base
		for i := 1; used[anchor]; i++ {
			anchor = base + "-" + strconv.Itoa(i)
		}
		used[anchor] = true
		h.SetAttr("id", anchor)
		changed = true
	}
	if !changed {
		return nil, nil
	}
	return doc.Root, nil
}

// Slugify turns heading text into an anchor: accents stripped, lower case,
// runs of anything other than letters and digits collapsed to one '-'.
func Slugify(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}
