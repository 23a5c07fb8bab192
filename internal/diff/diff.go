package diff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/vtree/internal/ir"
)

// Defaults for Options.
const (
	DefaultReloadThreshold = 0.5
	DefaultMaxOps          = 500
)

// Options tunes the reload decision.
type Options struct {
	// ReloadThreshold is the fraction of top-level child slots that may be
	// inserted, removed or replaced before a full reload is signalled.
	ReloadThreshold float64

	// MaxOps signals a reload when a patch grows beyond this many
	// operations. Zero disables the limit.
	MaxOps int
}

// DefaultOptions returns the default tuning.
func DefaultOptions() Options {
	return Options{ReloadThreshold: DefaultReloadThreshold, MaxOps: DefaultMaxOps}
}

// Option configures a single Diff call.
type Option func(*Options)

// WithReloadThreshold overrides the top-level change fraction.
func WithReloadThreshold(f float64) Option {
	return func(o *Options) {
		o.ReloadThreshold = f
	}
}

// WithMaxOps overrides the op count limit. Zero disables it.
func WithMaxOps(n int) Option {
	return func(o *Options) {
		o.MaxOps = n
	}
}

// WithOptions replaces all tuning at once.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		*o = opts
	}
}

// Stats counts what a diff visited and emitted.
type Stats struct {
	Compared    int `json:"compared"`
	Inserts     int `json:"inserts"`
	Removes     int `json:"removes"`
	Moves       int `json:"moves"`
	Replaces    int `json:"replaces"`
	AttrUpdates int `json:"attr_updates"`
	TextUpdates int `json:"text_updates"`

	// TopLevelChanged counts top-level child slots that were inserted,
	// removed or replaced; TopLevelSlots is the larger of the two
	// top-level child counts.
	TopLevelChanged int `json:"top_level_changed"`
	TopLevelSlots   int `json:"top_level_slots"`
}

// Result is the outcome of a diff.
type Result struct {
	Ops []Op

	// ShouldReload signals that the patch is not worth applying and the
	// page should be reloaded in full. Ops may still be populated when the
	// decision came from the size limits.
	ShouldReload bool

	// Reason explains ShouldReload.
	Reason string

	Stats Stats
}

// Empty reports whether the documents were equivalent.
func (r *Result) Empty() bool {
	return len(r.Ops) == 0 && !r.ShouldReload
}

// Diff computes the operations that turn prev into next.
//
// Both documents must be in the same phase, and that phase must carry
// identities. Given two such documents Diff does not fail; the worst case
// is a result with ShouldReload set.
func Diff(prev, next *ir.Document, opts ...Option) (*Result, error) {
	if prev == nil || next == nil {
		return nil, fmt.Errorf("diff: nil document")
	}
	if prev.Phase() != next.Phase() {
		return nil, &ir.PhaseError{Op: "diff", Got: prev.Phase(), Other: next.Phase()}
	}
	if !prev.Phase().HasIdentity() {
		return nil, &ir.PhaseError{Op: "diff", Got: prev.Phase(), Want: ir.PhaseIndexed}
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{}
	if prev.Seed != next.Seed {
		res.ShouldReload = true
		res.Reason = "page seed changed"
		return res, nil
	}

	a, b := prev.Root, next.Root
	if a.Kind != b.Kind || a.Tag != b.Tag || a.Family != b.Family {
		res.ShouldReload = true
		res.Reason = fmt.Sprintf("root changed: %s -> %s", describe(a), describe(b))
		return res, nil
	}

	d := &differ{}
	d.stats.Compared++
	if a.Fingerprint != b.Fingerprint {
		if a.IsText() {
			d.updateText(a, b)
		} else {
			d.updateAttrs(a, b)
			d.stats.TopLevelChanged = d.children(a, b)
			d.stats.TopLevelSlots = max(len(a.Children), len(b.Children))
		}
	}
	res.Ops = d.ops
	res.Stats = d.stats

	if s := res.Stats; s.TopLevelSlots > 0 {
		ratio := float64(s.TopLevelChanged) / float64(s.TopLevelSlots)
		if ratio > o.ReloadThreshold {
			res.ShouldReload = true
			res.Reason = fmt.Sprintf("top-level change ratio %.2f exceeds %.2f", ratio, o.ReloadThreshold)
			return res, nil
		}
	}
	if o.MaxOps > 0 && len(res.Ops) > o.MaxOps {
		res.ShouldReload = true
		res.Reason = fmt.Sprintf("patch has %d operations, limit %d", len(res.Ops), o.MaxOps)
	}
	return res, nil
}

func describe(n *ir.Node) string {
	if n.IsText() {
		return ir.TextKindKey
	}
	return fmt.Sprintf("<%s> (%s)", n.Tag, n.Family)
}

type differ struct {
	ops   []Op
	stats Stats
}

func (d *differ) emit(op Op) {
	d.ops = append(d.ops, op)
}

// pair diffs a matched pair. Reports whether the pair was replaced.
func (d *differ) pair(o, n *ir.Node) bool {
	d.stats.Compared++
	if o.Fingerprint == n.Fingerprint {
		return false
	}
	if o.Kind != n.Kind || o.Tag != n.Tag || o.Family != n.Family {
		d.emit(Replace{Target: o.ID, Subtree: n.Clone()})
		d.stats.Replaces++
		return true
	}
	if o.IsText() {
		d.updateText(o, n)
		return false
	}
	d.updateAttrs(o, n)
	d.children(o, n)
	return false
}

func (d *differ) updateText(o, n *ir.Node) {
	if o.Text == n.Text {
		return
	}
	d.emit(UpdateText{Target: o.ID, Text: n.Text})
	d.stats.TextUpdates++
}

func (d *differ) updateAttrs(o, n *ir.Node) {
	if changes := attrChanges(o.Attrs, n.Attrs); len(changes) > 0 {
		d.emit(UpdateAttrs{Target: o.ID, Changes: changes})
		d.stats.AttrUpdates++
	}
}

// attrChanges lists added, changed and removed keys, ordered by key.
func attrChanges(prev, next []ir.Attr) []AttrChange {
	var out []AttrChange
	old := make(map[string]string, len(prev))
	for _, a := range prev {
		old[a.Key] = a.Value
	}
	seen := make(map[string]bool, len(next))
	for _, a := range next {
		seen[a.Key] = true
		if v, ok := old[a.Key]; !ok || v != a.Value {
			out = append(out, AttrChange{Key: a.Key, Value: a.Value})
		}
	}
	for _, a := range prev {
		if !seen[a.Key] {
			out = append(out, AttrChange{Key: a.Key, Removed: true})
		}
	}
	slices.SortFunc(out, func(x, y AttrChange) int { return strings.Compare(x.Key, y.Key) })
	return out
}

// children reconciles the child lists of a matched pair and recurses into
// changed pairs. Returns the number of child slots inserted, removed or
// replaced at this level.
func (d *differ) children(op, np *ir.Node) int {
	olds, news := op.Children, np.Children
	oldMatch := make([]int, len(olds))
	newMatch := make([]int, len(news))
	for i := range oldMatch {
		oldMatch[i] = -1
	}
	for j := range newMatch {
		newMatch[j] = -1
	}
	link := func(i, j int) {
		oldMatch[i] = j
		newMatch[j] = i
	}

	// Content pass. Candidate lists stay in ascending old order, so a strict
	// comparison keeps the earlier child on equal distance.
	byFP := make(map[ir.Fingerprint][]int, len(olds))
	for i, c := range olds {
		byFP[c.Fingerprint] = append(byFP[c.Fingerprint], i)
	}
	for j, c := range news {
		cands := byFP[c.Fingerprint]
		if len(cands) == 0 {
			continue
		}
		best := 0
		for k := 1; k < len(cands); k++ {
			if absInt(cands[k]-j) < absInt(cands[best]-j) {
				best = k
			}
		}
		link(cands[best], j)
		byFP[c.Fingerprint] = slices.Delete(cands, best, best+1)
	}

	// Slot pass.
	byID := make(map[ir.StructuralID]int, len(olds))
	for i, c := range olds {
		if oldMatch[i] < 0 {
			byID[c.ID] = i
		}
	}
	for j, c := range news {
		if newMatch[j] >= 0 {
			continue
		}
		if i, ok := byID[c.ID]; ok {
			link(i, j)
			delete(byID, c.ID)
		}
	}

	changed := 0
	var common, seq []int
	for i, j := range oldMatch {
		if j < 0 {
			d.emit(Remove{Target: olds[i].ID})
			d.stats.Removes++
			changed++
			continue
		}
		common = append(common, i)
		seq = append(seq, j)
	}

	stay := make(map[int]bool, len(common))
	for _, k := range lis(seq) {
		stay[common[k]] = true
	}

	for j, i := range newMatch {
		switch {
		case i < 0:
			d.emit(Insert{Parent: op.ID, Position: j, Subtree: news[j].Clone()})
			d.stats.Inserts++
			changed++
		case !stay[i]:
			d.emit(Move{Target: olds[i].ID, Parent: op.ID, Position: j})
			d.stats.Moves++
		}
	}

	for j, i := range newMatch {
		if i >= 0 && d.pair(olds[i], news[j]) {
			changed++
		}
	}
	return changed
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
