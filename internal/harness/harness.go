package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/vtree/internal/diff"
	"github.com/roach88/vtree/internal/families"
	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/parse"
	"github.com/roach88/vtree/internal/pipeline"
	"github.com/roach88/vtree/internal/testutil"
)

// Harness holds what a scenario needs beyond its own fields.
type Harness struct {
	registry *families.Registry
	indexer  *index.Indexer
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// The returned error covers scenarios that could not be executed at all
// (unparseable HTML, bad families file); assertion failures are reported
// in the result.
func Run(s *Scenario) (*Result, error) {
	h, err := newHarness(s)
	if err != nil {
		return nil, err
	}

	old, err := h.load(s, s.Old)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: old: %w", s.Name, err)
	}
	next, err := h.load(s, s.New)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: new: %w", s.Name, err)
	}

	res, err := diff.Diff(old, next, diff.WithOptions(s.Options.diffOptions()))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := NewResult()
	result.Diff = res
	result.Old = old
	result.New = next
	paths := SlotPaths(old.Root)
	for _, op := range res.Ops {
		result.Ops = append(result.Ops, FormatOp(op, paths))
	}

	if !res.ShouldReload {
		if err := checkRoundTrip(old, next, res.Ops); err != nil {
			result.AddError(err.Error())
		}
	}
	for _, a := range s.Assertions {
		if err := evaluate(result, a); err != nil {
			result.AddError(err.Error())
		}
	}

	h.logger.Debug("scenario executed",
		"scenario", s.Name,
		"ops", len(res.Ops),
		"reload", res.ShouldReload,
		"pass", result.Pass,
	)
	return result, nil
}

func newHarness(s *Scenario) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := families.Builtin()
	if s.Families != "" {
		exts, err := families.LoadCUEFile(s.Families)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		if err := reg.RegisterAll(exts); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}
	h := &Harness{
		registry: reg,
		indexer:  index.New(reg.Table(), index.WithLogger(logger)),
		logger:   logger,
	}
	if s.Process {
		h.pipeline = families.DefaultPipeline(reg, nil,
			pipeline.WithReindexer(h.indexer),
			pipeline.WithLogger(logger),
			pipeline.WithRunIDs(testutil.NewSequentialRunIDs(s.Name)),
		)
	}
	return h, nil
}

func (h *Harness) load(s *Scenario, src string) (*ir.Document, error) {
	var raw *ir.Document
	var err error
	if s.Fragment {
		raw, err = parse.ParseFragment(s.Path, strings.NewReader(src))
	} else {
		raw, err = parse.ParseString(s.Path, src)
	}
	if err != nil {
		return nil, err
	}
	doc, err := h.indexer.Index(raw, ir.SeedFromPath(s.Path))
	if err != nil {
		return nil, err
	}
	if h.pipeline == nil {
		return doc, nil
	}
	run, err := h.pipeline.Run(context.Background(), doc)
	if err != nil {
		return nil, err
	}
	return run.Doc, nil
}

// checkRoundTrip applies ops to old and compares the outcome with next.
func checkRoundTrip(old, next *ir.Document, ops []diff.Op) error {
	patched, err := diff.Apply(old, ops)
	if err != nil {
		return fmt.Errorf("round trip: apply failed: %w", err)
	}
	if !ir.Equal(patched.Root, next.Root) {
		return fmt.Errorf("round trip: patched tree differs from new version")
	}
	if !slices.Equal(testutil.IDs(patched.Root), testutil.IDs(next.Root)) {
		return fmt.Errorf("round trip: structural ids differ")
	}
	if patched.Root.Fingerprint != next.Root.Fingerprint {
		return fmt.Errorf("round trip: root fingerprint %s, want %s",
			patched.Root.Fingerprint.Short(), next.Root.Fingerprint.Short())
	}
	return nil
}
