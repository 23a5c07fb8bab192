package cache

import "strings"

// Key is a normalized page path.
type Key string

// NewKey normalizes a URL path into a cache key: query and fragment are
// dropped, repeated slashes collapse, the path gains a leading slash and
// loses any trailing slash except for the root.
//
//	NewKey("blog/post/")      == "/blog/post"
//	NewKey("//blog//post?x#y") == "/blog/post"
func NewKey(path string) Key {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return Key(path)
}

// String returns the normalized path.
func (k Key) String() string { return string(k) }
