package pipeline

import (
	"context"
	"fmt"

	"github.com/roach88/vtree/internal/ir"
)

// Descriptor is the static contract of a transform.
type Descriptor struct {
	// Name identifies the transform in errors and logs.
	Name string

	// Requires lists capabilities that must already be present.
	Requires []ir.Capability

	// Provides is the capability granted after a successful step.
	// Empty when the transform grants nothing.
	Provides ir.Capability

	// Input is the phase the document must be in.
	Input ir.Phase

	// Output is the phase of the resulting document. Equal to Input for
	// same-phase transforms.
	Output ir.Phase
}

// validate checks that the descriptor describes a legal transition.
func (d Descriptor) validate() error {
	if d.Name == "" {
		return fmt.Errorf("transform without name")
	}
	if !d.Input.Valid() || !d.Output.Valid() {
		return fmt.Errorf("transform %s: invalid phases %s -> %s", d.Name, d.Input, d.Output)
	}
	if d.Input == ir.PhaseRaw {
		return fmt.Errorf("transform %s: raw documents must be indexed before transforms run", d.Name)
	}
	if d.Output < d.Input {
		return fmt.Errorf("transform %s: phase moves backwards %s -> %s", d.Name, d.Input, d.Output)
	}
	if d.Input.Terminal() {
		return fmt.Errorf("transform %s: %s is terminal", d.Name, d.Input)
	}
	return nil
}

// Transform rewrites a document tree.
//
// Apply receives a private copy of the current document and returns the new
// root, or nil when the tree is unchanged. It may modify the copy in place
// and return its root. Transforms should be idempotent and must honour ctx.
type Transform interface {
	Descriptor() Descriptor
	Apply(ctx context.Context, doc *ir.Document) (*ir.Node, error)
}

// Func adapts a plain function to Transform.
type Func struct {
	Desc Descriptor
	Fn   func(ctx context.Context, doc *ir.Document) (*ir.Node, error)
}

// Descriptor implements Transform.
func (f Func) Descriptor() Descriptor { return f.Desc }

// Apply implements Transform.
func (f Func) Apply(ctx context.Context, doc *ir.Document) (*ir.Node, error) {
	return f.Fn(ctx, doc)
}
