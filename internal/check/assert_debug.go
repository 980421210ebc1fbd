//go:build debug

// Package check provides build-tag-gated assertions for internal invariants.
package check

// Assert panics if cond is false. Active in debug builds only.
func Assert(cond bool, msg string) {
	if !cond {
		panic("assertion failed: " + msg)
	}
}
