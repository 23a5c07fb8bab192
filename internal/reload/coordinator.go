package reload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/vtree/internal/cache"
	"github.com/roach88/vtree/internal/codec"
	"github.com/roach88/vtree/internal/diff"
	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/parse"
	"github.com/roach88/vtree/internal/pipeline"
	"github.com/roach88/vtree/internal/store"
)

// ErrSuperseded is returned by Update when a newer update of the same page
// made this one obsolete. Nothing was published.
var ErrSuperseded = errors.New("update superseded by a newer generation")

// ReasonNoSnapshot is the reload reason when a page has no prior version.
const ReasonNoSnapshot = "no cached snapshot"

// PatchSet is what a Sink receives for one page update.
type PatchSet struct {
	Page       cache.Key
	Generation uint64
	RunID      string
	Result     *diff.Result

	// Doc is the new processed document. Sinks that perform a full reload
	// render it; others may ignore it.
	Doc *ir.Document
}

// Sink publishes patch sets. Publish is called with strictly increasing
// generations for a given page.
type Sink interface {
	Publish(ctx context.Context, ps PatchSet) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ps PatchSet) error

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, ps PatchSet) error { return f(ctx, ps) }

// Snapshots persists indexed documents across restarts.
// Implemented by *store.Store.
type Snapshots interface {
	SaveSnapshot(ctx context.Context, key string, generation uint64, doc *ir.Document) (bool, error)
	LoadSnapshot(ctx context.Context, key string) (*ir.Document, uint64, error)
	DeleteSnapshot(ctx context.Context, key string) (bool, error)
	ListSnapshots(ctx context.Context) ([]store.SnapshotInfo, error)
}

// Coordinator serialises updates per page. Safe for concurrent use.
type Coordinator struct {
	pipeline *pipeline.Pipeline
	sink     Sink
	indexer  *index.Indexer
	cache    *cache.Cache
	gens     *cache.Generations
	store    Snapshots
	diffOpts diff.Options
	parse    []parse.Option
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[cache.Key]*inflight
	locks    map[cache.Key]*sync.Mutex

	loads singleflight.Group
}

type inflight struct {
	generation uint64
	cancel     context.CancelCauseFunc
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStore enables the persistent snapshot fallback.
func WithStore(s Snapshots) Option {
	return func(c *Coordinator) {
		c.store = s
	}
}

// WithCache shares an existing cache.
func WithCache(cc *cache.Cache) Option {
	return func(c *Coordinator) {
		c.cache = cc
	}
}

// WithIndexer sets the identity assigner. It must classify families with
// the same table as the pipeline's reindexer.
func WithIndexer(ix *index.Indexer) Option {
	return func(c *Coordinator) {
		c.indexer = ix
	}
}

// WithDiffOptions sets the reload tuning.
func WithDiffOptions(o diff.Options) Option {
	return func(c *Coordinator) {
		c.diffOpts = o
	}
}

// WithParseOptions sets the HTML parser options.
func WithParseOptions(opts ...parse.Option) Option {
	return func(c *Coordinator) {
		c.parse = opts
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// New creates a coordinator running p and publishing to sink.
func New(p *pipeline.Pipeline, sink Sink, opts ...Option) *Coordinator {
	c := &Coordinator{
		pipeline: p,
		sink:     sink,
		cache:    cache.New(),
		gens:     cache.NewGenerations(),
		diffOpts: diff.DefaultOptions(),
		logger:   slog.Default(),
		inflight: make(map[cache.Key]*inflight),
		locks:    make(map[cache.Key]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.indexer == nil {
		c.indexer = index.New(ir.DefaultFamilyTable(), index.WithLogger(c.logger))
	}
	return c
}

// Restore raises generation counters above every persisted snapshot so
// that new updates are never older than what the store holds. Returns the
// number of snapshots seen.
func (c *Coordinator) Restore(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	infos, err := c.store.ListSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore generations: %w", err)
	}
	for _, info := range infos {
		c.gens.Observe(cache.NewKey(info.Key), info.Generation)
	}
	return len(infos), nil
}

// Get returns the last published entry for path.
func (c *Coordinator) Get(path string) (cache.Entry, bool) {
	return c.cache.Get(cache.NewKey(path))
}

// Update processes a new version of the page at path and publishes the
// patch set that brings the previous version up to date.
//
// Returns ErrSuperseded when a newer update of the same page started or
// finished first.
func (c *Coordinator) Update(ctx context.Context, path string, src []byte) (*PatchSet, error) {
	started := time.Now()
	key := cache.NewKey(path)
	gen := c.gens.Next(key)

	runCtx, done := c.begin(ctx, key, gen)
	defer done()

	log := c.logger.With("page", key.String(), "generation", gen)
	ps, err := c.update(runCtx, key, gen, src)
	switch {
	case err == nil:
		outcome := "patch"
		if ps.Result.ShouldReload {
			outcome = "reload"
		} else if ps.Result.Empty() {
			outcome = "unchanged"
		}
		updatesTotal.WithLabelValues(outcome).Inc()
		updateDuration.Observe(time.Since(started).Seconds())
		log.Debug("update published",
			"run_id", ps.RunID,
			"ops", len(ps.Result.Ops),
			"reload", ps.Result.ShouldReload,
			"reason", ps.Result.Reason,
		)
		return ps, nil
	case errors.Is(err, ErrSuperseded) || errors.Is(context.Cause(runCtx), ErrSuperseded):
		updatesTotal.WithLabelValues("superseded").Inc()
		log.Debug("update superseded")
		return nil, ErrSuperseded
	default:
		updatesTotal.WithLabelValues("error").Inc()
		log.Warn("update failed", "error", err)
		return nil, err
	}
}

// begin registers gen as the in-flight update for key, cancelling any
// older one.
func (c *Coordinator) begin(ctx context.Context, key cache.Key, gen uint64) (context.Context, func()) {
	runCtx, cancel := context.WithCancelCause(ctx)
	c.mu.Lock()
	if prev, ok := c.inflight[key]; ok && prev.generation < gen {
		prev.cancel(ErrSuperseded)
	}
	c.inflight[key] = &inflight{generation: gen, cancel: cancel}
	c.mu.Unlock()

	return runCtx, func() {
		c.mu.Lock()
		if cur, ok := c.inflight[key]; ok && cur.generation == gen {
			delete(c.inflight, key)
		}
		c.mu.Unlock()
		cancel(nil)
	}
}

func (c *Coordinator) lock(key cache.Key) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

func (c *Coordinator) update(ctx context.Context, key cache.Key, gen uint64, src []byte) (*PatchSet, error) {
	raw, err := parse.Parse(key.String(), bytes.NewReader(src), c.parse...)
	if err != nil {
		return nil, err
	}
	indexed, err := c.indexer.Index(raw, ir.SeedFromPath(key.String()))
	if err != nil {
		return nil, err
	}
	run, err := c.pipeline.Run(ctx, indexed)
	if err != nil {
		return nil, err
	}

	// Everything from reading the prior version to publishing happens under
	// the page lock, so each patch applies to the version published just
	// before it.
	l := c.lock(key)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prior, ok, err := c.prior(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok && prior.Generation >= gen {
		return nil, ErrSuperseded
	}

	var res *diff.Result
	if !ok {
		res = &diff.Result{ShouldReload: true, Reason: ReasonNoSnapshot}
	} else {
		res, err = diff.Diff(prior.Doc, run.Doc, diff.WithOptions(c.diffOpts))
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", key, err)
		}
	}

	// The cache only advances once the client has the version: a failed
	// publish leaves the prior entry as the base of the next patch.
	ps := &PatchSet{Page: key, Generation: gen, RunID: run.RunID, Result: res, Doc: run.Doc}
	patchOps.Observe(float64(len(res.Ops)))
	if err := c.sink.Publish(ctx, *ps); err != nil {
		return nil, fmt.Errorf("publish %s: %w", key, err)
	}
	if !c.cache.InsertIfNewer(key, cache.Entry{Doc: run.Doc, Generation: gen}) {
		c.logger.Warn("published version not cached", "page", key.String(), "generation", gen)
	}

	c.persist(ctx, key, gen, indexed)
	return ps, nil
}

// prior returns the last published version of key: from the cache, or
// rebuilt from the snapshot store when the cache is cold.
func (c *Coordinator) prior(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	if e, ok := c.cache.Get(key); ok {
		return e, true, nil
	}
	if c.store == nil {
		return cache.Entry{}, false, nil
	}

	// The load is shared by every waiter, so it must not inherit one
	// caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := c.loads.DoChan(key.String(), func() (any, error) {
		return c.loadSnapshot(shared, key)
	})
	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return cache.Entry{}, false, context.Cause(ctx)
	}
	if r.Err != nil {
		return cache.Entry{}, false, r.Err
	}
	e, _ := r.Val.(*cache.Entry)
	if e == nil {
		return cache.Entry{}, false, nil
	}
	return *e, true, nil
}

// loadSnapshot decodes the persisted indexed document and runs the
// pipeline over it to rebuild the processed version clients last saw.
// A corrupt snapshot is deleted and treated as absent.
func (c *Coordinator) loadSnapshot(ctx context.Context, key cache.Key) (*cache.Entry, error) {
	doc, gen, err := c.store.LoadSnapshot(ctx, key.String())
	switch {
	case errors.Is(err, store.ErrNotFound):
		snapshotFallbacks.WithLabelValues("miss").Inc()
		return nil, nil
	case codec.IsDecodeError(err):
		snapshotFallbacks.WithLabelValues("corrupt").Inc()
		c.logger.Warn("discarding corrupt snapshot", "page", key.String(), "error", err)
		if _, derr := c.store.DeleteSnapshot(ctx, key.String()); derr != nil {
			c.logger.Warn("delete corrupt snapshot", "page", key.String(), "error", derr)
		}
		return nil, nil
	case err != nil:
		snapshotFallbacks.WithLabelValues("error").Inc()
		return nil, err
	}
	if doc.Seed != ir.SeedFromPath(key.String()) {
		snapshotFallbacks.WithLabelValues("corrupt").Inc()
		c.logger.Warn("discarding snapshot with foreign seed", "page", key.String())
		if _, derr := c.store.DeleteSnapshot(ctx, key.String()); derr != nil {
			c.logger.Warn("delete snapshot", "page", key.String(), "error", derr)
		}
		return nil, nil
	}

	c.gens.Observe(key, gen)
	run, err := c.pipeline.Run(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("rebuild snapshot %s: %w", key, err)
	}
	snapshotFallbacks.WithLabelValues("hit").Inc()
	return &cache.Entry{Doc: run.Doc, Generation: gen}, nil
}

func (c *Coordinator) persist(ctx context.Context, key cache.Key, gen uint64, doc *ir.Document) {
	if c.store == nil {
		return
	}
	if _, err := c.store.SaveSnapshot(context.WithoutCancel(ctx), key.String(), gen, doc); err != nil {
		c.logger.Warn("persist snapshot", "page", key.String(), "generation", gen, "error", err)
	}
}

// Forget drops every trace of the page at path: any in-flight update is
// cancelled and the cached and persisted versions are removed.
func (c *Coordinator) Forget(ctx context.Context, path string) error {
	key := cache.NewKey(path)
	c.mu.Lock()
	if cur, ok := c.inflight[key]; ok {
		cur.cancel(ErrSuperseded)
		delete(c.inflight, key)
	}
	c.mu.Unlock()

	l := c.lock(key)
	l.Lock()
	defer l.Unlock()
	c.cache.Remove(key)
	if c.store != nil {
		if _, err := c.store.DeleteSnapshot(ctx, key.String()); err != nil {
			return fmt.Errorf("forget %s: %w", key, err)
		}
	}
	return nil
}
