package davgate

import (
	"path"
	"strings"
	"unicode/utf8"
)

// IsValidKey validates that a string is usable as an object key inside a bucket.
// It checks that the key:
//   - is relative and does not end with "/" (the empty key is the bucket root)
//   - does not contain "//" (empty segments)
//   - has no "." or ".." segments
//   - is valid UTF-8
//   - does not contain a backslash, null bytes, control characters (< 0x20) or DEL (0x7f)
//
// Spaces and other printable characters are allowed; desktop clients use them freely.
func IsValidKey(k string) bool {
	if k == "" {
		return true
	}

	if k[0] == '/' || strings.HasSuffix(k, "/") {
		return false
	}

	if strings.Contains(k, "//") || strings.ContainsRune(k, '\\') {
		return false
	}

	if !utf8.ValidString(k) {
		return false
	}

	for _, seg := range strings.Split(k, "/") {
		if seg == "." || seg == ".." {
			return false
		}
	}

	for _, r := range k {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}

// NormalizeKey trims leading and trailing slashes and collapses empty segments.
func NormalizeKey(p string) string {
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "/")
}

// ParentKey returns the key of the collection containing k. The root's parent is the root.
func ParentKey(k string) string {
	dir := path.Dir(k)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// MarkerKey returns the collection marker key for k. The root has no marker.
func MarkerKey(k string) string {
	if k == "" {
		return ""
	}
	return k + "/"
}

// ChildPrefix returns the listing prefix for the members of collection k.
func ChildPrefix(k string) string {
	return MarkerKey(k)
}

// IsWithin reports whether key equals prefix or lies beneath it.
func IsWithin(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}

// RewritePrefix moves key from under src to under dst. key must satisfy IsWithin(key, src)
// or be the marker of src.
func RewritePrefix(key, src, dst string) string {
	rest := strings.TrimPrefix(key, src)
	if src == "" {
		rest = "/" + key
	}
	if dst == "" {
		return strings.TrimPrefix(rest, "/")
	}
	return dst + rest
}
