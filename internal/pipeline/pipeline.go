package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/ir"
)

// Reindexer recomputes identities of a tree that replaces doc's root.
// Implemented by *index.Indexer.
type Reindexer interface {
	Refresh(doc *ir.Document, root *ir.Node) (*ir.Node, error)
}

// Step describes one completed step, as reported to hooks and in results.
type Step struct {
	Index    int
	Name     string
	RunID    string
	Changed  bool
	Duration time.Duration
	Phase    ir.Phase
	Provided ir.Capability
}

// Hook observes the document produced by a step. It receives a copy;
// nothing it does affects the run.
type Hook func(step Step, doc *ir.Document)

// Result is a successful run.
type Result struct {
	Doc   *ir.Document
	RunID string
	Steps []Step
}

// Pipeline is an ordered list of transforms.
//
// A Pipeline is built once and may then be run concurrently from any number
// of goroutines: Run does not modify it.
type Pipeline struct {
	transforms []Transform
	hooks      []Hook
	reindexer  Reindexer
	ids        RunIDGenerator
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithRunIDs sets the run id generator. Default: UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = g
	}
}

// WithReindexer sets the identity refresher used after every step.
// Default: an index.Indexer over ir.DefaultFamilyTable.
func WithReindexer(r Reindexer) Option {
	return func(p *Pipeline) {
		p.reindexer = r
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reindexer == nil {
		p.reindexer = index.New(ir.DefaultFamilyTable(), index.WithLogger(p.logger))
	}
	return p
}

// Then appends a transform and returns the pipeline for chaining.
func (p *Pipeline) Then(t Transform) *Pipeline {
	p.transforms = append(p.transforms, t)
	return p
}

// Inspect registers a hook called after every successful step.
func (p *Pipeline) Inspect(h Hook) *Pipeline {
	p.hooks = append(p.hooks, h)
	return p
}

// Len returns the number of transforms.
func (p *Pipeline) Len() int { return len(p.transforms) }

// Descriptors returns the descriptors of the transforms in order.
func (p *Pipeline) Descriptors() []Descriptor {
	out := make([]Descriptor, len(p.transforms))
	for i, t := range p.transforms {
		out[i] = t.Descriptor()
	}
	return out
}

// Validate checks the pipeline's shape without running it: starting from a
// document in phase start holding have, every step must find its input
// phase and its required capabilities.
func (p *Pipeline) Validate(start ir.Phase, have ir.CapabilitySet) error {
	phase := start
	caps := have
	for i, t := range p.transforms {
		d := t.Descriptor()
		if err := d.validate(); err != nil {
			return &Error{Code: ErrCodePhase, Message: err.Error(), Transform: d.Name, Step: i}
		}
		if phase != d.Input {
			e := newPhaseError(d, phase)
			e.Step = i
			return e
		}
		if missing := caps.Missing(d.Requires...); len(missing) > 0 {
			e := newOrderError(d, missing)
			e.Step = i
			return e
		}
		phase = d.Output
		caps = caps.With(d.Provides)
	}
	return nil
}

// Run applies every transform in order to doc.
//
// On success the result holds the final document. On failure the error is a
// *Error and no document is returned. doc itself is never modified.
func (p *Pipeline) Run(ctx context.Context, doc *ir.Document) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("pipeline: nil document")
	}
	runID := p.ids.Generate()
	log := p.logger.With("run_id", runID, "path", doc.Path)
	started := time.Now()

	res := &Result{RunID: runID, Steps: make([]Step, 0, len(p.transforms))}
	cur := doc
	for i, t := range p.transforms {
		step, next, err := p.step(ctx, i, runID, t, cur)
		if err != nil {
			log.Debug("pipeline run failed",
				"step", i,
				"transform", t.Descriptor().Name,
				"error", err,
			)
			return nil, err
		}
		res.Steps = append(res.Steps, step)
		for _, h := range p.hooks {
			h(step, next.Clone())
		}
		cur = next
	}

	res.Doc = cur
	log.Debug("pipeline run complete",
		"steps", len(res.Steps),
		"phase", cur.Phase().String(),
		"capabilities", cur.Capabilities().String(),
		"duration", time.Since(started),
	)
	return res, nil
}

func (p *Pipeline) step(ctx context.Context, i int, runID string, t Transform, cur *ir.Document) (Step, *ir.Document, error) {
	d := t.Descriptor()
	fail := func(e *Error) (Step, *ir.Document, error) {
		e.Step = i
		e.RunID = runID
		if e.Transform == "" {
			e.Transform = d.Name
		}
		return Step{}, nil, e
	}
	canceled := func(err error) (Step, *ir.Document, error) {
		return fail(&Error{Code: ErrCodeCanceled, Message: "run canceled", Err: err})
	}

	if err := ctx.Err(); err != nil {
		return canceled(err)
	}
	if err := Check(cur, d); err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			return fail(pe)
		}
		return fail(&Error{Code: ErrCodePhase, Message: "check failed", Err: err})
	}

	start := time.Now()
	root, err := t.Apply(ctx, cur.Clone())
	if cerr := ctx.Err(); cerr != nil {
		return canceled(cerr)
	}
	if err != nil {
		return fail(&Error{Code: ErrCodeTransform, Message: "transform returned an error", Err: err})
	}

	if root == nil {
		root = cur.Root
	} else {
		root, err = p.reindexer.Refresh(cur, root)
		if err != nil {
			return fail(&Error{Code: ErrCodeTransform, Message: "transform returned an invalid tree", Err: err})
		}
	}

	next, err := Transition(cur, d, root)
	if err != nil {
		return fail(&Error{Code: ErrCodePhase, Message: "transition rejected", Err: err})
	}
	return Step{
		Index:    i,
		Name:     d.Name,
		RunID:    runID,
		Changed:  root.Fingerprint != cur.Root.Fingerprint,
		Duration: time.Since(start),
		Phase:    next.Phase(),
		Provided: d.Provides,
	}, next, nil
}
