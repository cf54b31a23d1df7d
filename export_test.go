package davgate

// SetCompare swaps the credential comparison so tests can observe calls to it.
func SetCompare(g *Guard, compare func(a, b []byte) bool) {
	g.compare = compare
}
