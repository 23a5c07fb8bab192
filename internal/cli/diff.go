package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/diff"
	"github.com/roach88/vtree/internal/harness"
	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/render"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	PageOptions
	Process      bool // run the family pipeline before diffing
	FailOnReload bool // exit 1 when the result asks for a full reload
}

// DiffReport is the output of the diff command.
type DiffReport struct {
	Reload bool            `json:"reload"`
	Reason string          `json:"reason,omitempty"`
	Stats  diff.Stats      `json:"stats"`
	Ops    []render.WireOp `json:"ops"`

	lines []string
}

func (r DiffReport) String() string {
	var b strings.Builder
	if r.Reload {
		fmt.Fprintf(&b, "reload: %s\n", r.Reason)
	}
	fmt.Fprintf(&b, "%d operations", len(r.lines))
	for _, l := range r.lines {
		b.WriteString("\n  ")
		b.WriteString(l)
	}
	return b.String()
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <old-file> <new-file>",
		Short: "Compute the patch between two versions of a page",
		Long: `Index two versions of the same page and print the operations that turn
the first into the second. Both versions share the page path, so their
structural ids are comparable. Text output addresses nodes by slot path in
the old version; JSON output carries wire operations with hex ids.

Exit codes:
  0 - Patch computed
  1 - Reload required (with --fail-on-reload)
  2 - Command error

Examples:
  vtree diff old.html new.html --path /guide
  vtree diff old.html new.html --process --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], args[1], cmd)
		},
	}

	opts.PageOptions.bind(cmd)
	cmd.Flags().BoolVar(&opts.Process, "process", false, "run the family pipeline on both versions")
	cmd.Flags().BoolVar(&opts.FailOnReload, "fail-on-reload", false, "exit 1 when a full reload is required")

	return cmd
}

func runDiff(opts *DiffOptions, oldFile, newFile string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	// Both versions are one page: the path comes from the new file unless
	// given explicitly.
	po := opts.PageOptions
	po.Path = po.pagePath(newFile)

	load := func(file string) (*ir.Document, error) {
		if !opts.Process {
			return e.load(file, &po)
		}
		res, err := e.process(cmd.Context(), file, &po)
		if err != nil {
			return nil, err
		}
		out.VerboseLog("processed %s (run %s, %d steps)", file, res.RunID, len(res.Steps))
		return res.Doc, nil
	}

	prev, err := load(oldFile)
	if err != nil {
		return out.Fail(ExitCommandError, "failed to load old version", err)
	}
	next, err := load(newFile)
	if err != nil {
		return out.Fail(ExitCommandError, "failed to load new version", err)
	}

	res, err := diff.Diff(prev, next, diff.WithOptions(e.cfg.DiffOptions()))
	if err != nil {
		return out.Fail(ExitCommandError, "diff failed", err)
	}
	wire, err := render.WireOps(res.Ops)
	if err != nil {
		return out.Fail(ExitCommandError, "failed to encode operations", err)
	}

	report := DiffReport{
		Reload: res.ShouldReload,
		Reason: res.Reason,
		Stats:  res.Stats,
		Ops:    wire,
	}
	paths := harness.SlotPaths(prev.Root)
	for _, op := range res.Ops {
		report.lines = append(report.lines, harness.FormatOp(op, paths))
	}
	e.logger.Debug("diff computed",
		"path", po.Path,
		"ops", len(res.Ops),
		"reload", res.ShouldReload,
	)

	if err := out.Success(report); err != nil {
		return err
	}
	if res.ShouldReload && opts.FailOnReload {
		return NewExitError(ExitFailure, "reload required: "+res.Reason)
	}
	return nil
}
