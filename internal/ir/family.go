package ir

// Family classifies an element and decides which specialised transform
// applies to it. Built-in families are listed below; extensions register
// additional names through a FamilyTable.
type Family string

// Built-in families.
const (
	FamilyOther   Family = "other"
	FamilyLink    Family = "link"
	FamilyHeading Family = "heading"
	FamilySvg     Family = "svg"
	FamilyMedia   Family = "media"
)

// FamilyData is the processed payload a family attaches to its elements.
// Implementations must be immutable once attached: cloned trees share them.
type FamilyData interface {
	Family() Family
}

// FamilyRule matches elements belonging to one family.
type FamilyRule struct {
	Family Family
	Match  func(tag string, attrs []Attr) bool
}

// FamilyTable is an ordered list of rules consulted once per element during
// indexing. The first matching rule wins; unmatched elements are
// FamilyOther. Text nodes have no family.
type FamilyTable struct {
	rules []FamilyRule
}

// NewFamilyTable builds a table from rules in priority order.
func NewFamilyTable(rules ...FamilyRule) FamilyTable {
	return FamilyTable{rules: append([]FamilyRule(nil), rules...)}
}

// TagRule matches any of the given tag names.
func TagRule(family Family, tags ...string) FamilyRule {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return FamilyRule{
		Family: family,
		Match: func(tag string, _ []Attr) bool {
			_, ok := set[tag]
			return ok
		},
	}
}

// DefaultFamilyTable is the built-in classification:
// a → link, h1..h6 → heading, svg → svg, img|video|audio → media.
func DefaultFamilyTable() FamilyTable {
	return NewFamilyTable(
		TagRule(FamilyLink, "a"),
		TagRule(FamilyHeading, "h1", "h2", "h3", "h4", "h5", "h6"),
		TagRule(FamilySvg, "svg"),
		TagRule(FamilyMedia, "img", "video", "audio"),
	)
}

// Classify returns the family of an element.
func (t FamilyTable) Classify(tag string, attrs []Attr) Family {
	for _, r := range t.rules {
		if r.Match != nil && r.Match(tag, attrs) {
			return r.Family
		}
	}
	return FamilyOther
}

// Families lists the distinct families named by the table, in rule order.
func (t FamilyTable) Families() []Family {
	var out []Family
	seen := make(map[Family]bool)
	for _, r := range t.rules {
		if !seen[r.Family] {
			seen[r.Family] = true
			out = append(out, r.Family)
		}
	}
	return out
}
