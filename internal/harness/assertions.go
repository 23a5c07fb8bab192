package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Ops      []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Ops) > 0 {
		fmt.Fprintf(&buf, "\nPatch:\n")
		for i, op := range e.Ops {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, op)
		}
	}
	return buf.String()
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertReload:
		return assertReload(r, a)
	case AssertOpCount:
		return assertOpCount(r, a)
	case AssertOpKinds:
		return assertOpKinds(r, a)
	case AssertContainsOp:
		return assertContainsOp(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertReload(r *Result, a Assertion) error {
	got := r.Diff.ShouldReload
	if got != *a.Reload {
		return &AssertionError{
			Type:     AssertReload,
			Expected: fmt.Sprintf("reload=%t", *a.Reload),
			Actual:   fmt.Sprintf("reload=%t (%s)", got, r.Diff.Reason),
			Ops:      r.Ops,
		}
	}
	if a.Reason != "" && !strings.Contains(r.Diff.Reason, a.Reason) {
		return &AssertionError{
			Type:     AssertReload,
			Expected: fmt.Sprintf("reason containing %q", a.Reason),
			Actual:   fmt.Sprintf("reason %q", r.Diff.Reason),
		}
	}
	return nil
}

func assertOpCount(r *Result, a Assertion) error {
	if len(r.Diff.Ops) != *a.Count {
		return &AssertionError{
			Type:     AssertOpCount,
			Expected: fmt.Sprintf("%d operations", *a.Count),
			Actual:   fmt.Sprintf("%d operations", len(r.Diff.Ops)),
			Ops:      r.Ops,
		}
	}
	return nil
}

func assertOpKinds(r *Result, a Assertion) error {
	got := make([]string, len(r.Diff.Ops))
	for i, op := range r.Diff.Ops {
		got[i] = string(op.Kind())
	}
	if !slices.Equal(got, a.Kinds) {
		return &AssertionError{
			Type:     AssertOpKinds,
			Expected: "[" + strings.Join(a.Kinds, ", ") + "]",
			Actual:   "[" + strings.Join(got, ", ") + "]",
			Ops:      r.Ops,
		}
	}
	return nil
}

func assertContainsOp(r *Result, a Assertion) error {
	if slices.Contains(r.Ops, a.Op) {
		return nil
	}
	return &AssertionError{
		Type:     AssertContainsOp,
		Expected: a.Op,
		Actual:   "not found in patch",
		Ops:      r.Ops,
	}
}
