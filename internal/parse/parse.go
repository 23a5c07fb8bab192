// Package parse turns HTML into Raw documents.
package parse

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/roach88/vtree/internal/ir"
)

// Options controls tree conversion.
type Options struct {
	// KeepWhitespace keeps whitespace-only text nodes everywhere. By default
	// they are kept only inside pre and textarea.
	KeepWhitespace bool
}

// Option configures parsing.
type Option func(*Options)

// WithKeepWhitespace keeps whitespace-only text nodes.
func WithKeepWhitespace() Option {
	return func(o *Options) {
		o.KeepWhitespace = true
	}
}

// Parse reads a full HTML document. The root of the result is the html
// element; the parser supplies html, head and body when the source omits
// them.
func Parse(path string, r io.Reader, opts ...Option) (*ir.Document, error) {
	o := options(opts)
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return ir.NewRaw(path, convertElement(c, o, false)), nil
		}
	}
	return nil, fmt.Errorf("parse %s: %w: no html element", path, ir.ErrMalformed)
}

// ParseFragment reads an HTML fragment as body content. The root of the
// result is a body element holding the fragment's nodes.
func ParseFragment(path string, r io.Reader, opts ...Option) (*ir.Document, error) {
	o := options(opts)
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment %s: %w", path, err)
	}
	root := ir.NewElement("body", nil)
	root.Children = convertChildren(nodes, o, false)
	return ir.NewRaw(path, root), nil
}

// ParseString is Parse over a string.
func ParseString(path, src string, opts ...Option) (*ir.Document, error) {
	return Parse(path, strings.NewReader(src), opts...)
}

func options(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func convertElement(n *html.Node, o Options, preserve bool) *ir.Node {
	attrs := make([]ir.Attr, 0, len(n.Attr))
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		attrs = append(attrs, ir.Attr{Key: key, Value: a.Val})
	}
	el := ir.NewElement(n.Data, attrs)

	switch n.DataAtom {
	case atom.Pre, atom.Textarea, atom.Script, atom.Style:
		preserve = true
	}

	var kids []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		kids = append(kids, c)
	}
	el.Children = convertChildren(kids, o, preserve)
	return el
}

// convertChildren drops comments and doctypes, merges the text on either
// side of a dropped node, and drops whitespace-only text unless preserved.
func convertChildren(nodes []*html.Node, o Options, preserve bool) []*ir.Node {
	var out []*ir.Node
	var text strings.Builder
	pending := false

	flush := func() {
		if !pending {
			return
		}
		s := text.String()
		text.Reset()
		pending = false
		if !preserve && !o.KeepWhitespace && strings.TrimSpace(s) == "" {
			return
		}
		out = append(out, ir.NewText(s))
	}

	for _, c := range nodes {
		switch c.Type {
		case html.TextNode:
			text.WriteString(c.Data)
			pending = true
		case html.ElementNode:
			flush()
			out = append(out, convertElement(c, o, preserve))
		}
	}
	flush()
	return out
}
