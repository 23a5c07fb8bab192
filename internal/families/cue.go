package families

import (
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/vtree/internal/ir"
)

// CompileError is a custom family declaration error with source position.
type CompileError struct {
	Family  string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	where := e.Field
	if e.Family != "" {
		where = "family." + e.Family + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// LoadCUEFile reads custom family declarations from a CUE file.
func LoadCUEFile(path string) ([]Extension, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read families: %w", err)
	}
	return LoadCUE(path, src)
}

// LoadCUE compiles custom family declarations:
//
//	family: callout: {
//		tags:  ["div", "aside"]
//		attrs: ["data-callout"]
//		capture: ["data-callout", "title"]
//	}
//
// An element belongs to the family when its tag is listed (or tags is
// empty) and every attribute in attrs is present. capture names the
// attributes copied into the ExtensionData payload; it defaults to attrs.
func LoadCUE(filename string, src []byte) ([]Extension, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileFamilies(v.LookupPath(cue.ParsePath("family")))
}

// CompileFamilies compiles every field of v as one family, in source order.
// A missing value yields no families.
func CompileFamilies(v cue.Value) ([]Extension, error) {
	if !v.Exists() {
		return nil, nil
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []Extension
	for iter.Next() {
		ext, err := compileFamily(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, ext)
	}
	return out, nil
}

func compileFamily(name string, v cue.Value) (Extension, error) {
	tags, err := stringList(name, "tags", v)
	if err != nil {
		return Extension{}, err
	}
	attrs, err := stringList(name, "attrs", v)
	if err != nil {
		return Extension{}, err
	}
	capture, err := stringList(name, "capture", v)
	if err != nil {
		return Extension{}, err
	}
	if len(tags) == 0 && len(attrs) == 0 {
		return Extension{}, &CompileError{
			Family:  name,
			Field:   "tags",
			Message: "tags or attrs is required",
			Pos:     v.Pos(),
		}
	}
	if capture == nil {
		capture = attrs
	}

	family := ir.Family(name)
	return Extension{
		Name: family,
		Match: func(tag string, as []ir.Attr) bool {
			if len(tags) > 0 && !slices.Contains(tags, tag) {
				return false
			}
			for _, want := range attrs {
				if !slices.ContainsFunc(as, func(a ir.Attr) bool { return a.Key == want }) {
					return false
				}
			}
			return true
		},
		Process: func(n *ir.Node) ir.FamilyData {
			d := ExtensionData{Name: family}
			for _, key := range capture {
				if val, ok := n.Attr(key); ok {
					d.Attrs = append(d.Attrs, ir.Attr{Key: key, Value: val})
				}
			}
			return d
		},
	}, nil
}

func stringList(family, field string, v cue.Value) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	var out []string
	if err := fv.Decode(&out); err != nil {
		return nil, &CompileError{
			Family:  family,
			Field:   field,
			Message: "must be a list of strings",
			Pos:     fv.Pos(),
		}
	}
	for _, s := range out {
		if s == "" {
			return nil, &CompileError{Family: family, Field: field, Message: "empty name", Pos: fv.Pos()}
		}
	}
	return out, nil
}

// formatCUEError keeps the position of the first CUE error.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if pos := errors.Positions(first); len(pos) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: pos[0]}
	}
	return err
}

// RegisterAll registers exts in order, stopping at the first error.
func (r *Registry) RegisterAll(exts []Extension) error {
	for _, ext := range exts {
		if err := r.Register(ext); err != nil {
			return err
		}
	}
	return nil
}
