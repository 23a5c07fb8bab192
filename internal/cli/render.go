package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/families"
	"github.com/roach88/vtree/internal/render"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	PageOptions
	Output  string // output file; empty writes to stdout
	IDs     bool
	Doctype bool
}

// RenderSummary is the JSON output of the render command.
type RenderSummary struct {
	Path         string                 `json:"path"`
	RunID        string                 `json:"run_id"`
	Capabilities []string               `json:"capabilities"`
	Outline      []families.HeadingData `json:"outline,omitempty"`
	Links        []families.LinkData    `json:"links,omitempty"`
	Output       string                 `json:"output,omitempty"`
	HTML         string                 `json:"html,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Process a page through the family pipeline and render it",
		Long: `Run a page through the default family pipeline (link checking and
resolution, heading anchors, SVG cleanup, media attributes, family payloads)
and write the result as HTML.

Examples:
  vtree render site/guide.html
  vtree render site/guide.html -o out/guide.html --ids
  vtree render site/guide.html --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	opts.PageOptions.bind(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.IDs, "ids", false, "emit data-vid attributes")
	cmd.Flags().BoolVar(&opts.Doctype, "doctype", false, "prefix full documents with <!DOCTYPE html>")

	return cmd
}

func runRender(opts *RenderOptions, file string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	res, err := e.process(cmd.Context(), file, &opts.PageOptions)
	if err != nil {
		code := ExitCommandError
		if errorCode(err) == CodeBrokenLinks {
			code = ExitFailure
		}
		return out.Fail(code, "pipeline failed", err)
	}
	out.VerboseLog("run %s: %d steps", res.RunID, len(res.Steps))

	var ro []render.Option
	if opts.IDs || e.cfg.Render.EmitIDs {
		ro = append(ro, render.WithIDs())
	}
	if (opts.Doctype || e.cfg.Render.Doctype) && !opts.Fragment {
		ro = append(ro, render.WithDoctype())
	}
	rendered, html, err := render.Render(res.Doc, ro...)
	if err != nil {
		return out.Fail(ExitCommandError, "render failed", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, html, 0o644); err != nil {
			return out.Fail(ExitCommandError, "failed to write output", err)
		}
	}

	if opts.Format != "json" {
		if opts.Output == "" {
			_, err := cmd.OutOrStdout().Write(append(html, '\n'))
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", opts.Output, len(html))
		return nil
	}

	summary := RenderSummary{
		Path:    rendered.Path,
		RunID:   res.RunID,
		Outline: families.Outline(res.Doc),
		Links:   families.Links(res.Doc),
		Output:  opts.Output,
	}
	for _, c := range rendered.Capabilities().List() {
		summary.Capabilities = append(summary.Capabilities, string(c))
	}
	if opts.Output == "" {
		summary.HTML = string(html)
	}
	return out.Success(summary)
}
