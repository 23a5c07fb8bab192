package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/reload"
	"github.com/roach88/vtree/internal/render"
	"github.com/roach88/vtree/internal/store"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Store       string // overrides the config's store path
	MetricsAddr string // serve /metrics here when set
	NoSync      bool   // skip the initial pass over existing pages
}

// PatchLine is one line of watch output: the patch set for one page
// update.
type PatchLine struct {
	Page       string          `json:"page"`
	Generation uint64          `json:"generation"`
	RunID      string          `json:"run_id"`
	Reload     bool            `json:"reload"`
	Reason     string          `json:"reason,omitempty"`
	Ops        []render.WireOp `json:"ops,omitempty"`
	HTML       string          `json:"html,omitempty"`
}

// lineSink writes patch sets as JSON lines. A full reload carries the
// rendered page instead of operations.
type lineSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newLineSink(w io.Writer) *lineSink {
	return &lineSink{enc: json.NewEncoder(w)}
}

func (s *lineSink) Publish(_ context.Context, ps reload.PatchSet) error {
	line := PatchLine{
		Page:       ps.Page.String(),
		Generation: ps.Generation,
		RunID:      ps.RunID,
		Reload:     ps.Result.ShouldReload,
		Reason:     ps.Result.Reason,
	}
	if ps.Result.ShouldReload {
		_, html, err := render.Render(ps.Doc, render.WithIDs())
		if err != nil {
			return err
		}
		line.HTML = string(html)
	} else {
		ops, err := render.WireOps(ps.Result.Ops)
		if err != nil {
			return err
		}
		line.Ops = ops
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(line)
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a content directory and stream patches",
		Long: `Watch a directory of HTML pages. Every change is processed, diffed against
the previous version of the page and printed as one JSON line on stdout.
Pages with no previous version, or with too many changes, are sent as a
full reload carrying the rendered HTML.

Snapshots are kept in the SQLite store from the config (or --store) so that
a restart diffs against the last published version.

Examples:
  vtree watch site
  vtree watch site --store .vtree/snapshots.db --metrics-addr :9090`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "snapshot database (default: config store)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.NoSync, "no-sync", false, "do not process existing pages at startup")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, dir string, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = e.cfg.Root
	}
	if dir == "" {
		return NewExitError(ExitCommandError, "no directory given and config has no root")
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("content directory not found: %s", dir))
	}

	copts := []reload.Option{
		reload.WithIndexer(e.indexer),
		reload.WithDiffOptions(e.cfg.DiffOptions()),
		reload.WithLogger(e.logger),
	}
	storePath := opts.Store
	if storePath == "" {
		storePath = e.cfg.Store
	}
	if storePath != "" {
		st, err := store.Open(storePath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open snapshot store", err)
		}
		defer st.Close()
		copts = append(copts, reload.WithStore(st))
	}

	coord := reload.New(e.pipeline(), newLineSink(cmd.OutOrStdout()), copts...)
	restored, err := coord.Restore(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to restore generations", err)
	}
	e.logger.Info("snapshots restored", "count", restored, "store", storePath)

	if opts.MetricsAddr != "" {
		stopMetrics := serveMetrics(opts.MetricsAddr, e.logger)
		defer stopMetrics()
	}

	w := reload.NewWatcher(dir, coord,
		reload.WithDebounce(e.cfg.Watch.Debounce),
		reload.WithExtensions(e.cfg.Watch.Extensions...),
		reload.WithWatcherLogger(e.logger),
	)
	if !opts.NoSync {
		n, err := w.Sync(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "initial sync failed", err)
		}
		e.logger.Info("initial sync complete", "pages", n)
	}
	return w.Run(ctx)
}

// serveMetrics starts the metrics endpoint and returns its shutdown
// function.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
