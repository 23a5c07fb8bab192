package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/config"
	"github.com/roach88/vtree/internal/families"
	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/parse"
	"github.com/roach88/vtree/internal/pipeline"
)

// PageOptions are the flags shared by commands that read pages.
type PageOptions struct {
	Path     string // logical page path; defaults to the file name
	Fragment bool   // parse as body content
}

func (o *PageOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Path, "path", "", "logical page path (default: /<file name>)")
	cmd.Flags().BoolVar(&o.Fragment, "fragment", false, "parse the file as a body fragment")
}

func (o *PageOptions) pagePath(file string) string {
	if o.Path != "" {
		return o.Path
	}
	return "/" + file
}

// env is the per-invocation wiring built from the configuration.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *families.Registry
	indexer  *index.Indexer
}

func newEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())
	reg, err := cfg.Registry()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load families", err)
	}
	return &env{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		indexer:  index.New(reg.Table(), index.WithLogger(logger)),
	}, nil
}

// pipeline assembles the default family pipeline.
func (e *env) pipeline() *pipeline.Pipeline {
	return families.DefaultPipeline(e.registry, e.cfg.LinkChecker(e.logger),
		pipeline.WithReindexer(e.indexer),
		pipeline.WithLogger(e.logger),
	)
}

// load reads, parses and indexes file.
func (e *env) load(file string, po *PageOptions) (*ir.Document, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open page", err)
	}
	defer f.Close()

	path := po.pagePath(file)
	var raw *ir.Document
	if po.Fragment {
		raw, err = parse.ParseFragment(path, f)
	} else {
		raw, err = parse.Parse(path, f)
	}
	if err != nil {
		return nil, err
	}
	doc, err := e.indexer.Index(raw, ir.SeedFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", file, err)
	}
	return doc, nil
}

// process loads file and runs it through the pipeline.
func (e *env) process(ctx context.Context, file string, po *PageOptions) (*pipeline.Result, error) {
	doc, err := e.load(file, po)
	if err != nil {
		return nil, err
	}
	return e.pipeline().Run(ctx, doc)
}
