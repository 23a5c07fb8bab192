package harness

import (
	"github.com/roach88/vtree/internal/diff"
	"github.com/roach88/vtree/internal/ir"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every assertion and the round trip succeeded.
	Pass bool `json:"pass"`

	// Errors holds one message per failure.
	Errors []string `json:"errors,omitempty"`

	// Diff is the computed patch.
	Diff *diff.Result `json:"-"`

	// Ops are the formatted operations, in patch order.
	Ops []string `json:"ops"`

	Old *ir.Document `json:"-"`
	New *ir.Document `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
