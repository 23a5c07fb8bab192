package families

import (
	"path"
	"strings"

	"github.com/roach88/vtree/internal/ir"
)

// LinkType classifies an href.
type LinkType uint8

const (
	LinkRelative LinkType = iota
	LinkExternal
	LinkAbsolute
	LinkFragment
	LinkEmail
)

func (t LinkType) String() string {
	switch t {
	case LinkExternal:
		return "external"
	case LinkAbsolute:
		return "absolute"
	case LinkFragment:
		return "fragment"
	case LinkEmail:
		return "email"
	default:
		return "relative"
	}
}

// MarshalText encodes the type by name.
func (t LinkType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ClassifyHref returns the type of an href value.
func ClassifyHref(href string) LinkType {
	switch {
	case strings.HasPrefix(href, "http://"),
		strings.HasPrefix(href, "https://"),
		strings.HasPrefix(href, "//"):
		return LinkExternal
	case strings.HasPrefix(href, "mailto:"):
		return LinkEmail
	case strings.HasPrefix(href, "/"):
		return LinkAbsolute
	case strings.HasPrefix(href, "#"):
		return LinkFragment
	default:
		return LinkRelative
	}
}

// LinkData is the processed payload of a link element.
type LinkData struct {
	Href   string   `json:"href"`
	Type   LinkType `json:"type"`
	Broken bool     `json:"broken,omitempty"`
}

func (LinkData) Family() ir.Family { return ir.FamilyLink }

// External reports whether the link leaves the site.
func (d LinkData) External() bool { return d.Type == LinkExternal }

// HeadingData is the processed payload of a heading.
type HeadingData struct {
	Level  int    `json:"level"`
	Anchor string `json:"anchor"`
	Text   string `json:"text"`

	// InTOC is false for headings marked data-toc="false".
	InTOC bool `json:"in_toc"`
}

func (HeadingData) Family() ir.Family { return ir.FamilyHeading }

// HeadingLevel returns the level encoded in an h1..h6 tag, or 0.
func HeadingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// MediaType is inferred from a source's file extension.
type MediaType uint8

const (
	MediaUnknown MediaType = iota
	MediaImage
	MediaSvg
	MediaVideo
	MediaAudio
)

func (t MediaType) String() string {
	switch t {
	case MediaImage:
		return "image"
	case MediaSvg:
		return "svg"
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// MediaTypeOf infers the media type of src from its extension. Query
// strings and fragments are ignored.
func MediaTypeOf(src string) MediaType {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	switch strings.ToLower(path.Ext(src)) {
	case ".svg":
		return MediaSvg
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".avif":
		return MediaImage
	case ".mp4", ".webm", ".ogg":
		return MediaVideo
	case ".mp3", ".wav", ".flac":
		return MediaAudio
	default:
		return MediaUnknown
	}
}

// MediaData is the processed payload of an img, video or audio element.
type MediaData struct {
	Src  string
	Alt  string
	Type MediaType
	Lazy bool
}

func (MediaData) Family() ir.Family { return ir.FamilyMedia }

// SvgData is the processed payload of an svg root.
type SvgData struct {
	ViewBox string
	Width   float64
	Height  float64

	// Elements counts the svg's descendant elements, itself included.
	Elements int
}

func (SvgData) Family() ir.Family { return ir.FamilySvg }

// ExtensionData is the payload of a custom family: the values of the
// attributes the family declared, in declaration order. Absent attributes
// are omitted.
type ExtensionData struct {
	Name  ir.Family
	Attrs []ir.Attr
}

func (d ExtensionData) Family() ir.Family { return d.Name }

// Value returns the captured value of key.
func (d ExtensionData) Value(key string) (string, bool) {
	for _, a := range d.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
