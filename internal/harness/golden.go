package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Format renders a result as the text stored in golden files:
//
//	scenario: <name>
//	reload: <bool>
//	reason: <reason>        (only when reloading)
//	ops: <count>
//	  <op>
//	  ...
func Format(name string, r *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "reload: %t\n", r.Diff.ShouldReload)
	if r.Diff.ShouldReload {
		fmt.Fprintf(&b, "reason: %s\n", r.Diff.Reason)
	}
	fmt.Fprintf(&b, "ops: %d\n", len(r.Ops))
	for _, op := range r.Ops {
		fmt.Fprintf(&b, "  %s\n", op)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its formatted patch with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Format(name, result))
}
