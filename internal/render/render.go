// Package render writes processed documents as HTML and encodes patch
// operations for transport.
package render

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/roach88/vtree/internal/ir"
)

// IDAttr carries a node's StructuralID in rendered output so that a client
// can resolve patch targets.
const IDAttr = "data-vid"

// Options controls rendering.
type Options struct {
	// EmitIDs adds IDAttr to every element.
	EmitIDs bool

	// Doctype prefixes full documents with <!DOCTYPE html>.
	Doctype bool
}

// Option configures rendering.
type Option func(*Options)

// WithIDs emits data-vid attributes.
func WithIDs() Option {
	return func(o *Options) {
		o.EmitIDs = true
	}
}

// WithDoctype prefixes the output with a doctype.
func WithDoctype() Option {
	return func(o *Options) {
		o.Doctype = true
	}
}

// Render writes a Processed document and returns the Rendered document
// along with the HTML.
func Render(doc *ir.Document, opts ...Option) (*ir.Document, []byte, error) {
	if doc == nil {
		return nil, nil, fmt.Errorf("render: nil document")
	}
	if doc.Phase() != ir.PhaseProcessed {
		return nil, nil, &ir.PhaseError{Op: "render", Got: doc.Phase(), Want: ir.PhaseProcessed}
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	var buf bytes.Buffer
	if o.Doctype {
		buf.WriteString("<!DOCTYPE html>")
	}
	if err := WriteHTML(&buf, doc.Root, o); err != nil {
		return nil, nil, fmt.Errorf("render %s: %w", doc.Path, err)
	}

	rendered, err := ir.Advance(doc, doc.Root, ir.PhaseRendered)
	if err != nil {
		return nil, nil, fmt.Errorf("render %s: %w", doc.Path, err)
	}
	return rendered, buf.Bytes(), nil
}

// WriteHTML serializes a subtree. Void elements, raw text elements and
// escaping follow the HTML5 serialization rules.
func WriteHTML(w io.Writer, n *ir.Node, o Options) error {
	return html.Render(w, toHTML(n, o))
}

// HTML serializes a subtree to a string.
func HTML(n *ir.Node, o Options) (string, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, n, o); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toHTML(n *ir.Node, o Options) *html.Node {
	if n.IsText() {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	h := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	for _, a := range n.Attrs {
		h.Attr = append(h.Attr, html.Attribute{Key: a.Key, Val: a.Value})
	}
	if o.EmitIDs && !n.ID.IsZero() {
		h.Attr = append(h.Attr, html.Attribute{Key: IDAttr, Val: n.ID.String()})
	}
	for _, c := range n.Children {
		h.AppendChild(toHTML(c, o))
	}
	return h
}
