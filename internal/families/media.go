package families

import (
	"context"

	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/pipeline"
)

// MediaProcessor defers offscreen media: images get loading="lazy" and
// decoding="async", video and audio get preload="metadata". Values already
// present are left alone.
type MediaProcessor struct{}

// Descriptor implements pipeline.Transform.
func (MediaProcessor) Descriptor() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:     "media-processor",
		Provides: ir.CapMediaProcessed,
		Input:    ir.PhaseIndexed,
		Output:   ir.PhaseIndexed,
	}
}

// Apply implements pipeline.Transform.
func (MediaProcessor) Apply(ctx context.Context, doc *ir.Document) (*ir.Node, error) {
	changed := false
	setDefault := func(n *ir.Node, key, value string) {
		if _, ok := n.Attr(key); !ok {
			n.SetAttr(key, value)
			changed = true
		}
	}
	for _, n := range elements(doc.Root, ir.FamilyMedia) {
		switch n.Tag {
		case "img":
			setDefault(n, "loading", "lazy")
			setDefault(n, "decoding", "async")
		case "video", "audio":
			setDefault(n, "preload", "metadata")
		}
	}
	if !changed {
		return nil, nil
	}
	return doc.Root, nil
}
