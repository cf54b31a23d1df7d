package davgate

import "crypto/subtle"

// ConstantTimeEqual reports whether a and b hold the same bytes. Lengths are
// compared first; content comparison takes the same time wherever the first
// difference lies.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
