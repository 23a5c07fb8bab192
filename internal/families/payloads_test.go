package families

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHref(t *testing.T) {
	tests := []struct {
		href string
		want LinkType
	}{
		{"https://example.com", LinkExternal},
		{"http://example.com/a", LinkExternal},
		{"//cdn.example.com/x.js", LinkExternal},
		{"mailto:me@example.com", LinkEmail},
		{"/docs/intro", LinkAbsolute},
		{"#usage", LinkFragment},
		{"setup.html", LinkRelative},
		{"../up", LinkRelative},
		{"", LinkRelative},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyHref(tt.href))
		})
	}
}

func TestMediaTypeOf(t *testing.T) {
	tests := []struct {
		src  string
		want MediaType
	}{
		{"logo.svg", MediaSvg},
		{"/img/photo.JPG", MediaImage},
		{"a.webp?w=200", MediaImage},
		{"clip.mp4#t=10", MediaVideo},
		{"song.flac", MediaAudio},
		{"file.pdf", MediaUnknown},
		{"", MediaUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, MediaTypeOf(tt.src))
		})
	}
}

func TestHeadingLevel(t *testing.T) {
	assert.Equal(t, 1, HeadingLevel("h1"))
	assert.Equal(t, 6, HeadingLevel("h6"))
	assert.Equal(t, 0, HeadingLevel("h7"))
	assert.Equal(t, 0, HeadingLevel("header"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, World!", "hello-world"},
		{"Café Déjà vu", "cafe-deja-vu"},
		{"Step 2: Install", "step-2-install"},
		{"  --leading and trailing--  ", "leading-and-trailing"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestExtensionDataValue(t *testing.T) {
	d := ExtensionData{Name: "callout"}
	_, ok := d.Value("kind")
	assert.False(t, ok)
	assert.Equal(t, "callout", string(d.Family()))
}
