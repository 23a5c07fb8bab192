package families

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/vtree/internal/ir"
)

// ErrDuplicateFamily is returned when a family name is registered twice.
var ErrDuplicateFamily = errors.New("duplicate family")

// Extension is one element family: how to recognise its elements and how
// to build their processed payload.
type Extension struct {
	Name  ir.Family
	Match func(tag string, attrs []ir.Attr) bool

	// Process builds the payload attached by the Process transform.
	// Nil means the family's elements carry no payload.
	Process func(n *ir.Node) ir.FamilyData
}

// Registry is an ordered set of extensions. Earlier registrations take
// precedence when several match the same element.
//
// Registration is not synchronised; build the registry before sharing it.
type Registry struct {
	exts   []Extension
	byName map[ir.Family]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[ir.Family]int)}
}

// Builtin returns a registry holding the link, heading, svg and media
// families.
func Builtin() *Registry {
	r := NewRegistry()
	for _, ext := range builtins() {
		if err := r.Register(ext); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends ext.
func (r *Registry) Register(ext Extension) error {
	switch {
	case ext.Name == "":
		return fmt.Errorf("register family: empty name")
	case ext.Name == ir.FamilyOther:
		return fmt.Errorf("register family: %q is reserved", ext.Name)
	case ext.Match == nil:
		return fmt.Errorf("register family %s: no matcher", ext.Name)
	}
	if _, dup := r.byName[ext.Name]; dup {
		return fmt.Errorf("register family %s: %w", ext.Name, ErrDuplicateFamily)
	}
	r.byName[ext.Name] = len(r.exts)
	r.exts = append(r.exts, ext)
	return nil
}

// Lookup returns the extension named name.
func (r *Registry) Lookup(name ir.Family) (Extension, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Extension{}, false
	}
	return r.exts[i], true
}

// Names lists registered families in precedence order.
func (r *Registry) Names() []ir.Family {
	out := make([]ir.Family, len(r.exts))
	for i, ext := range r.exts {
		out[i] = ext.Name
	}
	return out
}

// Table builds the FamilyTable used by the indexer.
func (r *Registry) Table() ir.FamilyTable {
	rules := make([]ir.FamilyRule, len(r.exts))
	for i, ext := range r.exts {
		rules[i] = ir.FamilyRule{Family: ext.Name, Match: ext.Match}
	}
	return ir.NewFamilyTable(rules...)
}

func builtins() []Extension {
	return []Extension{
		{Name: ir.FamilyLink, Match: tagMatcher("a"), Process: processLink},
		{Name: ir.FamilyHeading, Match: tagMatcher("h1", "h2", "h3", "h4", "h5", "h6"), Process: processHeading},
		{Name: ir.FamilySvg, Match: tagMatcher("svg"), Process: processSvg},
		{Name: ir.FamilyMedia, Match: tagMatcher("img", "video", "audio"), Process: processMedia},
	}
}

func tagMatcher(tags ...string) func(string, []ir.Attr) bool {
	return ir.TagRule("", tags...).Match
}

func processLink(n *ir.Node) ir.FamilyData {
	href, _ := n.Attr("href")
	broken, _ := n.Attr(BrokenAttr)
	return LinkData{Href: href, Type: ClassifyHref(href), Broken: broken == "true"}
}

func processHeading(n *ir.Node) ir.FamilyData {
	anchor, _ := n.Attr("id")
	toc, _ := n.Attr("data-toc")
	return HeadingData{
		Level:  HeadingLevel(n.Tag),
		Anchor: anchor,
		Text:   strings.Join(strings.Fields(n.TextContent()), " "),
		InTOC:  toc != "false",
	}
}

func processMedia(n *ir.Node) ir.FamilyData {
	src, _ := n.Attr("src")
	if src == "" {
		// <video><source src=…></video>
		for _, c := range n.ElementChildren() {
			if c.Tag == "source" {
				src, _ = c.Attr("src")
				break
			}
		}
	}
	alt, _ := n.Attr("alt")
	loading, _ := n.Attr("loading")
	typ := MediaTypeOf(src)
	if typ == MediaUnknown {
		switch n.Tag {
		case "video":
			typ = MediaVideo
		case "audio":
			typ = MediaAudio
		}
	}
	return MediaData{Src: src, Alt: alt, Type: typ, Lazy: loading == "lazy"}
}

func processSvg(n *ir.Node) ir.FamilyData {
	d := SvgData{}
	d.ViewBox, _ = n.Attr("viewBox")
	d.Width = parseLength(n, "width")
	d.Height = parseLength(n, "height")
	if vb := parseViewBox(d.ViewBox); vb != nil {
		if d.Width == 0 {
			d.Width = vb[2]
		}
		if d.Height == 0 {
			d.Height = vb[3]
		}
	}
	n.Walk(func(c *ir.Node) bool {
		if c.IsElement() {
			d.Elements++
		}
		return true
	})
	return d
}

func parseLength(n *ir.Node, key string) float64 {
	v, ok := n.Attr(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseViewBox returns min-x, min-y, width and height, or nil.
func parseViewBox(vb string) []float64 {
	fields := strings.FieldsFunc(vb, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(fields) != 4 {
		return nil
	}
	out := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil
		}
		out[i] = v
	}
	return out
}
