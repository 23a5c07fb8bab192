package families

import (
	"context"

	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/pipeline"
)

// Process advances a document to the Processed phase, attaching each
// element's family payload.
type Process struct {
	registry *Registry
}

// NewProcess creates the transform over reg.
func NewProcess(reg *Registry) Process {
	return Process{registry: reg}
}

// Descriptor implements pipeline.Transform.
func (Process) Descriptor() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:     "process",
		Provides: ir.CapMetadataExtracted,
		Input:    ir.PhaseIndexed,
		Output:   ir.PhaseProcessed,
	}
}

// Apply implements pipeline.Transform.
func (p Process) Apply(ctx context.Context, doc *ir.Document) (*ir.Node, error) {
	doc.Root.Walk(func(n *ir.Node) bool {
		if !n.IsElement() || n.Family == ir.FamilyOther || n.Family == "" {
			return true
		}
		if ext, ok := p.registry.Lookup(n.Family); ok && ext.Process != nil {
			n.Data = ext.Process(n)
		}
		return true
	})
	return doc.Root, nil
}

// DefaultPipeline assembles the standard transform order: link checking,
// link resolution, heading anchors, svg and media processing, then
// Process. Identities are refreshed with reg's family table; opts are
// applied after that default and may override it.
func DefaultPipeline(reg *Registry, checker *LinkChecker, opts ...pipeline.Option) *pipeline.Pipeline {
	if checker == nil {
		checker = NewLinkChecker(WithNetwork(false))
	}
	opts = append([]pipeline.Option{pipeline.WithReindexer(index.New(reg.Table()))}, opts...)
	return pipeline.New(opts...).
		Then(checker).
		Then(NewLinkResolver()).
		Then(HeadingAnchors{}).
		Then(SvgOptimizer{}).
		Then(MediaProcessor{}).
		Then(NewProcess(reg))
}

// Outline returns the heading payloads of a processed document in order.
func Outline(doc *ir.Document) []HeadingData {
	return payloads[HeadingData](doc)
}

// Links returns the link payloads of a processed document in order.
func Links(doc *ir.Document) []LinkData {
	return payloads[LinkData](doc)
}

func payloads[T ir.FamilyData](doc *ir.Document) []T {
	var out []T
	doc.Root.Walk(func(n *ir.Node) bool {
		if d, ok := n.Data.(T); ok {
			out = append(out, d)
		}
		return true
	})
	return out
}
