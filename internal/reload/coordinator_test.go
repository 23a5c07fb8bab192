package reload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/diff"
	"github.com/roach88/vtree/internal/families"
	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/pipeline"
	"github.com/roach88/vtree/internal/store"
)

type recordingSink struct {
	mu   sync.Mutex
	sets []PatchSet
	err  error
}

func (s *recordingSink) Publish(_ context.Context, ps PatchSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sets = append(s.sets, ps)
	return nil
}

func (s *recordingSink) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *recordingSink) published() []PatchSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PatchSet(nil), s.sets...)
}

func newCoordinator(t *testing.T, sink Sink, opts ...Option) *Coordinator {
	t.Helper()
	reg := families.Builtin()
	opts = append([]Option{WithIndexer(index.New(reg.Table()))}, opts...)
	return New(families.DefaultPipeline(reg, nil), sink, opts...)
}

func page(body string) []byte {
	return []byte("<!DOCTYPE html><html><head><title>T</title></head><body>" + body + "</body></html>")
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpdateFirstVersionReloads(t *testing.T) {
	sink := &recordingSink{}
	c := newCoordinator(t, sink)

	ps, err := c.Update(context.Background(), "/docs/intro", page("<p>one</p>"))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), ps.Generation)
	assert.True(t, ps.Result.ShouldReload)
	assert.Equal(t, ReasonNoSnapshot, ps.Result.Reason)
	assert.NotEmpty(t, ps.RunID)
	assert.Equal(t, ir.PhaseProcessed, ps.Doc.Phase())

	e, ok := c.Get("docs/intro/")
	require.True(t, ok, "lookups normalise the path")
	assert.Equal(t, uint64(1), e.Generation)
	assert.Len(t, sink.published(), 1)
}

func TestUpdateEmitsPatch(t *testing.T) {
	sink := &recordingSink{}
	c := newCoordinator(t, sink)
	ctx := context.Background()

	first, err := c.Update(ctx, "/p", page("<p>one</p><p>keep</p>"))
	require.NoError(t, err)
	second, err := c.Update(ctx, "/p", page("<p>two</p><p>keep</p>"))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), second.Generation)
	require.False(t, second.Result.ShouldReload)
	require.Len(t, second.Result.Ops, 1)
	op, ok := second.Result.Ops[0].(diff.UpdateText)
	require.True(t, ok, "got %s", second.Result.Ops[0])
	assert.Equal(t, "two", op.Text)

	patched, err := diff.Apply(first.Doc, second.Result.Ops)
	require.NoError(t, err)
	assert.Equal(t, second.Doc.Root.Fingerprint, patched.Root.Fingerprint)

	third, err := c.Update(ctx, "/p", page("<p>two</p><p>keep</p>"))
	require.NoError(t, err)
	assert.True(t, third.Result.Empty())

	sets := sink.published()
	require.Len(t, sets, 3)
	for i, ps := range sets {
		assert.Equal(t, uint64(i+1), ps.Generation)
	}
}

// blockOn stalls any document whose text contains marker until its run is
// cancelled.
func blockOn(marker string, entered chan<- struct{}) pipeline.Func {
	return pipeline.Func{
		Desc: pipeline.Descriptor{Name: "block", Input: ir.PhaseIndexed, Output: ir.PhaseIndexed},
		Fn: func(ctx context.Context, doc *ir.Document) (*ir.Node, error) {
			if !strings.Contains(doc.Root.TextContent(), marker) {
				return nil, nil
			}
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

func TestUpdateSuperseded(t *testing.T) {
	entered := make(chan struct{})
	sink := &recordingSink{}
	p := pipeline.New().Then(blockOn("slow", entered))
	c := New(p, sink)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := c.Update(ctx, "/p", page("<p>slow</p>"))
		errc <- err
	}()
	<-entered

	ps, err := c.Update(ctx, "/p", page("<p>fast</p>"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ps.Generation)

	assert.ErrorIs(t, <-errc, ErrSuperseded)
	sets := sink.published()
	require.Len(t, sets, 1)
	assert.Equal(t, uint64(2), sets[0].Generation)
}

func TestUpdateParentCancel(t *testing.T) {
	entered := make(chan struct{})
	c := New(pipeline.New().Then(blockOn("slow", entered)), &recordingSink{})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := c.Update(ctx, "/p", page("<p>slow</p>"))
		errc <- err
	}()
	<-entered
	cancel()

	err := <-errc
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSuperseded)
	assert.True(t, pipeline.IsCanceled(err))
}

func TestUpdateSinkError(t *testing.T) {
	boom := errors.New("boom")
	c := newCoordinator(t, &recordingSink{err: boom})

	_, err := c.Update(context.Background(), "/p", page("<p>x</p>"))
	assert.ErrorIs(t, err, boom)
}

func TestUpdateSinkErrorKeepsPublishedBase(t *testing.T) {
	sink := &recordingSink{}
	c := newCoordinator(t, sink)
	ctx := context.Background()

	first, err := c.Update(ctx, "/p", page("<p>a</p><p>b</p>"))
	require.NoError(t, err)

	boom := errors.New("boom")
	sink.fail(boom)
	_, err = c.Update(ctx, "/p", page("<p>a</p><p>b</p><p>c</p>"))
	require.ErrorIs(t, err, boom)

	e, ok := c.Get("/p")
	require.True(t, ok)
	assert.Equal(t, uint64(1), e.Generation, "an unpublished version is not cached")

	sink.fail(nil)
	third, err := c.Update(ctx, "/p", page("<p>a</p><p>b</p><p>c</p><p>d</p>"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), third.Generation)
	require.False(t, third.Result.ShouldReload)

	// The client holds generation 1; the patch must bring it to 3.
	patched, err := diff.Apply(first.Doc, third.Result.Ops)
	require.NoError(t, err)
	assert.True(t, ir.Equal(third.Doc.Root, patched.Root))
	assert.Equal(t, third.Doc.Root.Fingerprint, patched.Root.Fingerprint)

	sets := sink.published()
	require.Len(t, sets, 2)
	assert.Equal(t, uint64(1), sets[0].Generation)
	assert.Equal(t, uint64(3), sets[1].Generation)
}

// gatedStore holds snapshot loads until release is closed.
type gatedStore struct {
	*store.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) LoadSnapshot(ctx context.Context, key string) (*ir.Document, uint64, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
	return g.Store.LoadSnapshot(ctx, key)
}

func TestUpdateSupersededWaiterDoesNotCancelSharedLoad(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	_, err := newCoordinator(t, &recordingSink{}, WithStore(st)).Update(ctx, "/p", page("<p>one</p><p>keep</p>"))
	require.NoError(t, err)

	gated := &gatedStore{Store: st, entered: make(chan struct{}), release: make(chan struct{})}
	sink := &recordingSink{}
	c := newCoordinator(t, sink, WithStore(gated))
	_, err = c.Restore(ctx)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Update(ctx, "/p", page("<p>stale</p><p>keep</p>"))
		errc <- err
	}()
	<-gated.entered

	type outcome struct {
		ps  *PatchSet
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ps, err := c.Update(ctx, "/p", page("<p>two</p><p>keep</p>"))
		done <- outcome{ps, err}
	}()

	assert.ErrorIs(t, <-errc, ErrSuperseded)
	close(gated.release)

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, uint64(3), out.ps.Generation)
	require.False(t, out.ps.Result.ShouldReload, "diffed against the stored snapshot")
	require.Len(t, out.ps.Result.Ops, 1)
	op, ok := out.ps.Result.Ops[0].(diff.UpdateText)
	require.True(t, ok, "got %s", out.ps.Result.Ops[0])
	assert.Equal(t, "two", op.Text)
}

func TestUpdatePipelineError(t *testing.T) {
	failing := pipeline.Func{
		Desc: pipeline.Descriptor{Name: "fail", Input: ir.PhaseIndexed, Output: ir.PhaseIndexed},
		Fn: func(context.Context, *ir.Document) (*ir.Node, error) {
			return nil, errors.New("nope")
		},
	}
	sink := &recordingSink{}
	c := New(pipeline.New().Then(failing), sink)

	_, err := c.Update(context.Background(), "/p", page("<p>x</p>"))
	assert.True(t, pipeline.IsTransformFailed(err))
	assert.Empty(t, sink.published())
	_, ok := c.Get("/p")
	assert.False(t, ok)
}

func TestUpdateFromSnapshotStore(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	first := newCoordinator(t, &recordingSink{}, WithStore(st))
	_, err := first.Update(ctx, "/p", page("<p>one</p>"))
	require.NoError(t, err)

	// A fresh coordinator has a cold cache but the same store.
	sink := &recordingSink{}
	second := newCoordinator(t, sink, WithStore(st))
	n, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ps, err := second.Update(ctx, "/p", page("<p>two</p>"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ps.Generation)
	assert.False(t, ps.Result.ShouldReload)
	require.Len(t, ps.Result.Ops, 1)

	_, gen, err := st.LoadSnapshot(ctx, "/p")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gen)
}

func TestUpdateCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	require.NoError(t, st.PutRaw(ctx, "/p", 7, []byte("not a snapshot")))

	c := newCoordinator(t, &recordingSink{}, WithStore(st))
	ps, err := c.Update(ctx, "/p", page("<p>one</p>"))
	require.NoError(t, err)
	assert.True(t, ps.Result.ShouldReload)
	assert.Equal(t, ReasonNoSnapshot, ps.Result.Reason)

	doc, gen, err := st.LoadSnapshot(ctx, "/p")
	require.NoError(t, err, "the corrupt row was replaced")
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, ir.PhaseIndexed, doc.Phase())
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	c := newCoordinator(t, &recordingSink{}, WithStore(st))

	_, err := c.Update(ctx, "/p", page("<p>one</p>"))
	require.NoError(t, err)
	require.NoError(t, c.Forget(ctx, "/p"))

	_, ok := c.Get("/p")
	assert.False(t, ok)
	_, _, err = st.LoadSnapshot(ctx, "/p")
	assert.ErrorIs(t, err, store.ErrNotFound)

	ps, err := c.Update(ctx, "/p", page("<p>one</p>"))
	require.NoError(t, err)
	assert.True(t, ps.Result.ShouldReload)
	assert.Equal(t, uint64(2), ps.Generation, "generations keep increasing")
}

func TestUpdateConcurrentPages(t *testing.T) {
	sink := &recordingSink{}
	c := newCoordinator(t, sink)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Update(ctx, fmt.Sprintf("/page/%d", i), page(fmt.Sprintf("<p>%d</p>", i)))
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, sink.published(), 16)
}
